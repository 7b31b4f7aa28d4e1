// Package show holds the Lumen show document and the fixture/profile model.
//
// A show document is one JSON value containing:
//
//   - output settings (protocol, frame rate, sACN and Art-Net options)
//   - fixture profiles: control blocks made of typed components
//   - fixtures: a profile patched at a universe and start address
//   - looks: named presets of channel targets on the 0-100 scale
//   - dashboards and the active layout
//   - the client roster (roles, nicknames, pending access requests)
//
// Documents are validated as a whole when loaded; a malformed profile is
// rejected here and never reaches the resolver. A Model is the validated,
// indexed, read-only form used at runtime.
//
// Profiles lay channels out block by block: a block's first channel follows
// the last channel of the block before it, and a component's offset is
// relative to its block. ChannelsOf flattens that into absolute offsets.
//
// Storage is either a JSON file (FileStore, optionally watched for external
// edits) or a single SQLite row (SQLiteStore).
package show
