package store

import (
	"database/sql"
	"fmt"
)

// --- ResolvedReference operations ---

// ResolutionOf returns how a reference resolved, or nil when it did not.
func (s *Store) ResolutionOf(referenceID int64) (*ResolvedReference, error) {
	rr := &ResolvedReference{}
	var uri sql.NullString
	var termID sql.NullInt32
	err := s.db.QueryRow(
		"SELECT id, reference_id, target_uri, target_term_id, builtin FROM resolved_references WHERE reference_id = ?",
		referenceID,
	).Scan(&rr.ID, &rr.ReferenceID, &uri, &termID, &rr.Builtin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolution of: %w", err)
	}
	rr.TargetURI = uri.String
	rr.TargetTermID = termID.Int32
	return rr, nil
}

// ReferencesTo returns every stored reference resolved to the term
// handle termID of uri.
func (s *Store) ReferencesTo(uri string, termID int32) ([]*Reference, error) {
	refs, err := s.queryReferences(
		`SELECT `+referenceCols+` FROM references_ r
		 JOIN resolved_references rr ON rr.reference_id = r.id
		 JOIN files f ON f.id = r.file_id
		 WHERE rr.target_uri = ? AND rr.target_term_id = ?
		 ORDER BY f.uri, r.start_line, r.start_col`,
		uri, termID,
	)
	if err != nil {
		return nil, fmt.Errorf("references to: %w", err)
	}
	return refs, nil
}

// --- CallEdge operations ---

const callEdgeCols = `c.id, c.file_id, c.caller_name, c.caller_arity, c.callee_uri, c.callee_name, c.callee_arity, c.line, c.col`

func (s *Store) queryCallEdges(query string, args ...any) ([]*CallEdge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var edges []*CallEdge
	for rows.Next() {
		e := &CallEdge{}
		if err := rows.Scan(
			&e.ID, &e.FileID, &e.CallerName, &e.CallerArity, &e.CalleeURI, &e.CalleeName, &e.CalleeArity, &e.Line, &e.Col,
		); err != nil {
			return nil, fmt.Errorf("scan call edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// CallersOf returns the edges into name/arity as defined by the module of uri.
func (s *Store) CallersOf(uri, name string, arity int) ([]*CallEdge, error) {
	edges, err := s.queryCallEdges(
		`SELECT `+callEdgeCols+` FROM call_graph c JOIN files f ON f.id = c.file_id
		 WHERE c.callee_uri = ? AND c.callee_name = ? AND c.callee_arity = ?
		 ORDER BY f.uri, c.line, c.col`,
		uri, name, arity,
	)
	if err != nil {
		return nil, fmt.Errorf("callers of: %w", err)
	}
	return edges, nil
}

// CalleesOf returns the edges out of the clauses of name/arity in uri.
func (s *Store) CalleesOf(uri, name string, arity int) ([]*CallEdge, error) {
	edges, err := s.queryCallEdges(
		`SELECT `+callEdgeCols+` FROM call_graph c JOIN files f ON f.id = c.file_id
		 WHERE f.uri = ? AND c.caller_name = ? AND c.caller_arity = ?
		 ORDER BY c.line, c.col`,
		uri, name, arity,
	)
	if err != nil {
		return nil, fmt.Errorf("callees of: %w", err)
	}
	return edges, nil
}

// URIOf returns the URI of a file ID.
func (s *Store) URIOf(fileID int64) (string, error) {
	var uri string
	if err := s.db.QueryRow("SELECT uri FROM files WHERE id = ?", fileID).Scan(&uri); err != nil {
		return "", fmt.Errorf("uri of %d: %w", fileID, err)
	}
	return uri, nil
}
