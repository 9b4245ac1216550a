// Package mercanopy analyses Mercury source for editor tooling: it reads
// every document into terms, classifies them, links references across
// modules and keeps the result current as documents change.
//
// # Pipeline
//
// Every document moves through five states:
//
//	Changed -> Parsed -> Visited -> Linked -> Validated
//
// A build processes one stage at a time across the whole batch, so every
// module is registered before any document links against it. Editing a
// document sends it back to Changed; the documents that linked against it
// drop back to Visited and are relinked without being read again.
//
// # Usage
//
//	e, err := mercanopy.New(mercanopy.WithLogger(logger))
//	if err != nil { ... }
//	defer e.Close()
//
//	err = e.IndexDirectory(ctx, root, discover.Options{Extensions: []string{".m"}})
//	locs := e.Query().DefinitionAt(uri, line, col)
//
// Editor buffers go through [Engine.OpenDocument], [Engine.ChangeDocument]
// and [Engine.CloseDocument]. They never block on a running build and
// interrupt it instead. Positions are zero-based lines and byte columns.
//
// # Persistence
//
// With [WithDB] every validated document is written to SQLite (see the
// internal/store package) so that command line queries can run without
// rebuilding the workspace.
//
// # Lint scripts
//
// Risor scripts under scripts/lint run against each document as it becomes
// Validated. They see the document's definitions, declarations, references
// and imports and call report() to add diagnostics.
package mercanopy
