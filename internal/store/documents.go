package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

const fileCols = `id, uri, module, hash, version, line_count, last_indexed`

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var module, hash sql.NullString
	if err := scanner.Scan(&f.ID, &f.URI, &module, &hash, &f.Version, &f.LineCount, &f.LastIndexed); err != nil {
		return nil, err
	}
	f.Module = module.String
	f.Hash = hash.String
	return f, nil
}

// FileByURI returns the file stored for uri, or nil when there is none.
func (s *Store) FileByURI(uri string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE uri = ?", uri))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by uri: %w", err)
	}
	return f, nil
}

// Files returns every stored file ordered by URI.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileCols + " FROM files ORDER BY uri")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// FilesByModule returns the files declaring module.
func (s *Store) FilesByModule(module string) ([]*File, error) {
	rows, err := s.db.Query("SELECT "+fileCols+" FROM files WHERE module = ? ORDER BY uri", module)
	if err != nil {
		return nil, fmt.Errorf("files by module: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Symbol operations ---

// SymbolCols is the column list for symbol queries.
const SymbolCols = `s.id, s.file_id, s.term_id, s.name, s.arity, s.kind, s.role, s.exported,
	s.start_line, s.start_col, s.end_line, s.end_col`

func scanSymbol(scanner interface{ Scan(...any) error }) (*Symbol, error) {
	sym := &Symbol{}
	err := scanner.Scan(
		&sym.ID, &sym.FileID, &sym.TermID, &sym.Name, &sym.Arity, &sym.Kind, &sym.Role, &sym.Exported,
		&sym.StartLine, &sym.StartCol, &sym.EndLine, &sym.EndCol,
	)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

func (s *Store) querySymbols(query string, args ...any) ([]*Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var symbols []*Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// SymbolsByFile returns the symbols of a file in source order.
func (s *Store) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	return s.querySymbols(
		"SELECT "+SymbolCols+" FROM symbols s WHERE s.file_id = ? ORDER BY s.start_line, s.start_col", fileID,
	)
}

// SymbolsByName returns symbols named name. A negative arity matches any.
func (s *Store) SymbolsByName(name string, arity int) ([]*Symbol, error) {
	return s.querySymbols(
		`SELECT `+SymbolCols+` FROM symbols s JOIN files f ON f.id = s.file_id
		 WHERE s.name = ? AND (? < 0 OR s.arity = ?)
		 ORDER BY f.uri, s.start_line, s.start_col`,
		name, arity, arity,
	)
}

// SymbolByTerm returns the symbol stored for a term handle of uri, or nil.
func (s *Store) SymbolByTerm(uri string, termID int32) (*Symbol, error) {
	syms, err := s.querySymbols(
		`SELECT `+SymbolCols+` FROM symbols s JOIN files f ON f.id = s.file_id
		 WHERE f.uri = ? AND s.term_id = ?`,
		uri, termID,
	)
	if err != nil {
		return nil, fmt.Errorf("symbol by term: %w", err)
	}
	if len(syms) == 0 {
		return nil, nil
	}
	return syms[0], nil
}

// SymbolAt returns the symbol whose name covers (line, col) in uri, or nil.
func (s *Store) SymbolAt(uri string, line, col int) (*Symbol, error) {
	syms, err := s.querySymbols(
		`SELECT `+SymbolCols+` FROM symbols s JOIN files f ON f.id = s.file_id
		 WHERE f.uri = ? AND `+coversPos("s")+` LIMIT 1`,
		uri, line, line, col, line, line, col,
	)
	if err != nil {
		return nil, fmt.Errorf("symbol at: %w", err)
	}
	if len(syms) == 0 {
		return nil, nil
	}
	return syms[0], nil
}

// --- Reference operations ---

const referenceCols = `r.id, r.file_id, r.term_id, r.name, r.arity, r.kind, r.qualifier,
	r.start_line, r.start_col, r.end_line, r.end_col`

func (s *Store) queryReferences(query string, args ...any) ([]*Reference, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []*Reference
	for rows.Next() {
		ref := &Reference{}
		var kind, qualifier sql.NullString
		if err := rows.Scan(
			&ref.ID, &ref.FileID, &ref.TermID, &ref.Name, &ref.Arity, &kind, &qualifier,
			&ref.StartLine, &ref.StartCol, &ref.EndLine, &ref.EndCol,
		); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		ref.Kind = kind.String
		ref.Qualifier = qualifier.String
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ReferencesByFile returns the references of a file in source order.
func (s *Store) ReferencesByFile(fileID int64) ([]*Reference, error) {
	return s.queryReferences(
		"SELECT "+referenceCols+" FROM references_ r WHERE r.file_id = ? ORDER BY r.start_line, r.start_col", fileID,
	)
}

// ReferenceAt returns the reference whose name covers (line, col) in uri,
// or nil.
func (s *Store) ReferenceAt(uri string, line, col int) (*Reference, error) {
	refs, err := s.queryReferences(
		`SELECT `+referenceCols+` FROM references_ r JOIN files f ON f.id = r.file_id
		 WHERE f.uri = ? AND `+coversPos("r")+` LIMIT 1`,
		uri, line, line, col, line, line, col,
	)
	if err != nil {
		return nil, fmt.Errorf("reference at: %w", err)
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return refs[0], nil
}

// --- Import operations ---

// ImportsByFile returns the imports of a file in source order.
func (s *Store) ImportsByFile(fileID int64) ([]*Import, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, source, resolved_uri, line, col FROM imports WHERE file_id = ? ORDER BY line, col", fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("imports by file: %w", err)
	}
	defer rows.Close()
	var imports []*Import
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.ID, &imp.FileID, &imp.Source, &imp.ResolvedURI, &imp.Line, &imp.Col); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// FilesImporting returns the URIs of files importing module by name.
func (s *Store) FilesImporting(module string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT f.uri FROM imports i JOIN files f ON f.id = i.file_id
		 WHERE i.source = ? OR i.source LIKE ? ORDER BY f.uri`,
		module, "%."+module,
	)
	if err != nil {
		return nil, fmt.Errorf("files importing: %w", err)
	}
	defer rows.Close()
	var uris []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("scan uri: %w", err)
		}
		uris = append(uris, uri)
	}
	return uris, rows.Err()
}

// --- Diagnostic operations ---

const diagnosticCols = `id, file_id, severity, source, message, start_line, start_col, end_line, end_col`

func (s *Store) queryDiagnostics(query string, args ...any) ([]*Diagnostic, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	defer rows.Close()
	var out []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		if err := rows.Scan(
			&d.ID, &d.FileID, &d.Severity, &d.Source, &d.Message,
			&d.StartLine, &d.StartCol, &d.EndLine, &d.EndCol,
		); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DiagnosticsByFile returns a file's diagnostics in insertion order, which
// is the published order.
func (s *Store) DiagnosticsByFile(fileID int64) ([]*Diagnostic, error) {
	return s.queryDiagnostics("SELECT "+diagnosticCols+" FROM diagnostics WHERE file_id = ? ORDER BY id", fileID)
}

// AllDiagnostics returns every diagnostic grouped by file.
func (s *Store) AllDiagnostics() ([]*Diagnostic, error) {
	return s.queryDiagnostics("SELECT " + diagnosticCols + " FROM diagnostics ORDER BY file_id, id")
}
