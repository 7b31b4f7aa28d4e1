// Package console is the Lumen service: one struct owning the show document,
// its model, the runtime state, the output engine and the client roster.
//
// Every handler, bridge and recorder receives the same *Service. Document
// changes go through it so that persistence, state reinitialisation and
// engine restarts happen in one place and in a fixed order: validate, save,
// swap the model, reinitialise state, restart output.
package console
