// Package history keeps a small JSON index of finished jobs so the CLI and
// the server can list past collections after a restart.
//
// The index is rewritten on every change through a temp file and a rename,
// so a crash leaves either the old or the new file, never a torn one.
package history
