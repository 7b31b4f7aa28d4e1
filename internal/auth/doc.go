// Package auth implements the Lumen role model.
//
// Clients identify themselves with an opaque, stable identifier generated by
// the browser. There are no passwords: the identifier is a pseudonym that lets
// an operator grant roles to a device once and have them stick.
//
// Roles are ordered viewer < controller < moderator < editor. A client holds
// one global role plus optional per-dashboard roles. Resolution precedence:
//
//  1. loopback connections are always editor
//  2. a role recorded for the dashboard in use
//  3. the client's global role
//
// Capabilities are checked with explicit comparisons against that order:
// edit needs controller, managing users of a dashboard needs moderator on it,
// managing users globally needs global editor, settings need editor anywhere.
// Becoming editor on any dashboard counts as editor everywhere.
package auth
