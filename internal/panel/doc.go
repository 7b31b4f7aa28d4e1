// Package panel serves the Lumen control UI.
//
// A pre-built UI directory (api.ui_dir) is served from disk so the UI can be
// rebuilt without restarting the server. Without one, a small embedded page
// points at the API.
//
// Routing is SPA style: an unknown path without a file extension serves
// index.html so client-side routes work; a missing asset (anything with an
// extension) is a plain 404.
package panel
