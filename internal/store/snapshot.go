package store

import (
	"database/sql"
	"fmt"
)

// Snapshot is everything persisted for one validated document.
//
// Reference.ID is a caller-chosen key (the reference's term handle) and
// ResolvedReference.ReferenceID refers to that key; ReplaceFile rewrites
// both to the real row IDs.
type Snapshot struct {
	File        File
	Symbols     []Symbol
	References  []Reference
	Resolutions []ResolvedReference
	Imports     []Import
	Calls       []CallEdge
	Diagnostics []Diagnostic
}

// ReplaceFile writes snap within a single transaction, dropping whatever
// was stored for the same URI before. It returns the file ID.
//
// Insert order respects FK dependencies:
//  1. File (upserted by URI)
//  2. Symbols, references, imports, diagnostics, call edges (file_id)
//  3. Resolved references (reference_id, remapped from the snapshot key)
func (s *Store) ReplaceFile(snap *Snapshot) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("replace file: begin: %w", err)
	}
	defer tx.Rollback()

	f := snap.File
	var fileID int64
	err = tx.QueryRow("SELECT id FROM files WHERE uri = ?", f.URI).Scan(&fileID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(
			"INSERT INTO files (uri, module, hash, version, line_count, last_indexed) VALUES (?, ?, ?, ?, ?, ?)",
			f.URI, f.Module, f.Hash, f.Version, f.LineCount, f.LastIndexed,
		)
		if err != nil {
			return 0, fmt.Errorf("replace file: insert file: %w", err)
		}
		if fileID, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("replace file: last insert id: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("replace file: lookup: %w", err)
	default:
		if err := deleteFileDataTx(tx, fileID); err != nil {
			return 0, fmt.Errorf("replace file: %w", err)
		}
		if _, err := tx.Exec(
			"UPDATE files SET module = ?, hash = ?, version = ?, line_count = ?, last_indexed = ? WHERE id = ?",
			f.Module, f.Hash, f.Version, f.LineCount, f.LastIndexed, fileID,
		); err != nil {
			return 0, fmt.Errorf("replace file: update file: %w", err)
		}
	}

	for i := range snap.Symbols {
		sym := &snap.Symbols[i]
		sym.FileID = fileID
		if err := insertSymbolTx(tx, sym); err != nil {
			return 0, fmt.Errorf("replace file: symbol %q: %w", sym.Name, err)
		}
	}

	keyToReal := make(map[int64]int64, len(snap.References))
	for i := range snap.References {
		ref := &snap.References[i]
		key := ref.ID
		ref.FileID = fileID
		if err := insertReferenceTx(tx, ref); err != nil {
			return 0, fmt.Errorf("replace file: reference %q: %w", ref.Name, err)
		}
		keyToReal[key] = ref.ID
	}

	for i := range snap.Resolutions {
		rr := &snap.Resolutions[i]
		realID, ok := keyToReal[rr.ReferenceID]
		if !ok {
			return 0, fmt.Errorf("replace file: resolution for unknown reference %d", rr.ReferenceID)
		}
		rr.ReferenceID = realID
		res, err := tx.Exec(
			"INSERT INTO resolved_references (reference_id, target_uri, target_term_id, builtin) VALUES (?, ?, ?, ?)",
			rr.ReferenceID, rr.TargetURI, rr.TargetTermID, rr.Builtin,
		)
		if err != nil {
			return 0, fmt.Errorf("replace file: resolved reference: %w", err)
		}
		rr.ID, _ = res.LastInsertId()
	}

	for i := range snap.Imports {
		imp := &snap.Imports[i]
		imp.FileID = fileID
		res, err := tx.Exec(
			"INSERT INTO imports (file_id, source, resolved_uri, line, col) VALUES (?, ?, ?, ?, ?)",
			imp.FileID, imp.Source, imp.ResolvedURI, imp.Line, imp.Col,
		)
		if err != nil {
			return 0, fmt.Errorf("replace file: import %q: %w", imp.Source, err)
		}
		imp.ID, _ = res.LastInsertId()
	}

	for i := range snap.Calls {
		c := &snap.Calls[i]
		c.FileID = fileID
		res, err := tx.Exec(
			`INSERT INTO call_graph (file_id, caller_name, caller_arity, callee_uri, callee_name, callee_arity, line, col)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.FileID, c.CallerName, c.CallerArity, c.CalleeURI, c.CalleeName, c.CalleeArity, c.Line, c.Col,
		)
		if err != nil {
			return 0, fmt.Errorf("replace file: call edge: %w", err)
		}
		c.ID, _ = res.LastInsertId()
	}

	for i := range snap.Diagnostics {
		d := &snap.Diagnostics[i]
		d.FileID = fileID
		res, err := tx.Exec(
			`INSERT INTO diagnostics (file_id, severity, source, message, start_line, start_col, end_line, end_col)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			d.FileID, d.Severity, d.Source, d.Message, d.StartLine, d.StartCol, d.EndLine, d.EndCol,
		)
		if err != nil {
			return 0, fmt.Errorf("replace file: diagnostic: %w", err)
		}
		d.ID, _ = res.LastInsertId()
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("replace file: commit: %w", err)
	}
	return fileID, nil
}

func insertSymbolTx(tx *sql.Tx, sym *Symbol) error {
	res, err := tx.Exec(
		`INSERT INTO symbols (file_id, term_id, name, arity, kind, role, exported,
			start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.FileID, sym.TermID, sym.Name, sym.Arity, sym.Kind, sym.Role, sym.Exported,
		sym.StartLine, sym.StartCol, sym.EndLine, sym.EndCol,
	)
	if err != nil {
		return err
	}
	sym.ID, err = res.LastInsertId()
	return err
}

func insertReferenceTx(tx *sql.Tx, ref *Reference) error {
	res, err := tx.Exec(
		`INSERT INTO references_ (file_id, term_id, name, arity, kind, qualifier,
			start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ref.FileID, ref.TermID, ref.Name, ref.Arity, ref.Kind, ref.Qualifier,
		ref.StartLine, ref.StartCol, ref.EndLine, ref.EndCol,
	)
	if err != nil {
		return err
	}
	ref.ID, err = res.LastInsertId()
	return err
}
