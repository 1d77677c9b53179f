package store

import (
	"database/sql"
	"fmt"
)

const symbolCols = `id, vcs_branch, short_name, package_name, fully_qualified_name, parent_name,
	file_path, file_type, symbol_type, modifiers,
	line_start, line_end, char_start, char_end,
	ident_line_start, ident_line_end, ident_char_start, ident_char_end,
	extends_name, implements_names, metadata, last_modified`

func scanSymbol(scanner interface{ Scan(...any) error }) (*Symbol, error) {
	sym := &Symbol{}
	var mods, impls, meta string
	err := scanner.Scan(
		&sym.ID, &sym.VCSBranch, &sym.ShortName, &sym.PackageName, &sym.FullyQualifiedName, &sym.ParentName,
		&sym.FilePath, &sym.FileType, &sym.SymbolType, &mods,
		&sym.LineStart, &sym.LineEnd, &sym.CharStart, &sym.CharEnd,
		&sym.IdentLineStart, &sym.IdentLineEnd, &sym.IdentCharStart, &sym.IdentCharEnd,
		&sym.ExtendsName, &impls, &meta, &sym.LastModified,
	)
	if err != nil {
		return nil, err
	}
	sym.Modifiers = unmarshalStrings(mods)
	sym.ImplementsNames = unmarshalStrings(impls)
	sym.Metadata = unmarshalMetadata(meta)
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

// UpsertFile atomically replaces all symbol and edge rows for
// (branch, filePath): prior rows are deleted and the new set inserted in one
// transaction. A failed transaction is retried once before the error is
// surfaced.
func (s *Store) UpsertFile(branch, filePath string, symbols []*Symbol, supers []*SuperEdge, ifaces []*InterfaceEdge) error {
	err := s.upsertFileTx(branch, filePath, symbols, supers, ifaces)
	if err != nil {
		err = s.upsertFileTx(branch, filePath, symbols, supers, ifaces)
	}
	if err != nil {
		return fmt.Errorf("upsert %s: %w", filePath, err)
	}
	return nil
}

func (s *Store) upsertFileTx(branch, filePath string, symbols []*Symbol, supers []*SuperEdge, ifaces []*InterfaceEdge) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM symbol_interface_mapping WHERE vcs_branch = ? AND file_path = ?",
		"DELETE FROM symbol_super_mapping WHERE vcs_branch = ? AND file_path = ?",
		"DELETE FROM symbols WHERE vcs_branch = ? AND file_path = ?",
	} {
		if _, err := tx.Exec(q, branch, filePath); err != nil {
			return fmt.Errorf("delete prior rows: %w", err)
		}
	}

	insSym, err := tx.Prepare(`INSERT INTO symbols (vcs_branch, short_name, package_name,
		fully_qualified_name, parent_name, file_path, file_type, symbol_type, modifiers,
		line_start, line_end, char_start, char_end,
		ident_line_start, ident_line_end, ident_char_start, ident_char_end,
		extends_name, implements_names, metadata, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare symbol insert: %w", err)
	}
	defer insSym.Close()

	for _, sym := range symbols {
		res, err := insSym.Exec(
			branch, sym.ShortName, sym.PackageName,
			sym.FullyQualifiedName, sym.ParentName, filePath, sym.FileType, sym.SymbolType,
			marshalStrings(sym.Modifiers),
			sym.LineStart, sym.LineEnd, sym.CharStart, sym.CharEnd,
			sym.IdentLineStart, sym.IdentLineEnd, sym.IdentCharStart, sym.IdentCharEnd,
			sym.ExtendsName, marshalStrings(sym.ImplementsNames),
			marshalMetadata(sym.Metadata), sym.LastModified,
		)
		if err != nil {
			return fmt.Errorf("insert symbol %s: %w", sym.FullyQualifiedName, err)
		}
		sym.ID, _ = res.LastInsertId()
		sym.VCSBranch = branch
		sym.FilePath = filePath
	}

	for _, e := range supers {
		if _, err := tx.Exec(
			`INSERT INTO symbol_super_mapping (vcs_branch, symbol_fqn, super_short_name, resolved_fqn, file_path)
			 VALUES (?, ?, ?, ?, ?)`,
			branch, e.SymbolFQN, e.SuperShortName, e.ResolvedFQN, filePath,
		); err != nil {
			return fmt.Errorf("insert super edge %s: %w", e.SymbolFQN, err)
		}
	}
	for _, e := range ifaces {
		if _, err := tx.Exec(
			`INSERT INTO symbol_interface_mapping (vcs_branch, symbol_fqn, interface_short_name, resolved_fqn, file_path)
			 VALUES (?, ?, ?, ?, ?)`,
			branch, e.SymbolFQN, e.InterfaceShortName, e.ResolvedFQN, filePath,
		); err != nil {
			return fmt.Errorf("insert interface edge %s: %w", e.SymbolFQN, err)
		}
	}

	return tx.Commit()
}

// DeleteFile removes all rows for (branch, filePath). Called when a file is
// removed from the workspace.
func (s *Store) DeleteFile(branch, filePath string) error {
	return s.upsertFileTx(branch, filePath, nil, nil, nil)
}

// FindByFQN returns the symbol with the given fully qualified name on the
// branch, or nil when absent.
func (s *Store) FindByFQN(branch, fqn string) (*Symbol, error) {
	row := s.db.QueryRow(
		"SELECT "+symbolCols+" FROM symbols WHERE vcs_branch = ? AND fully_qualified_name = ? LIMIT 1",
		branch, fqn,
	)
	sym, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by fqn: %w", err)
	}
	return sym, nil
}

// FindByShortName returns all symbols with the given short name on the
// branch, ordered by FQN for deterministic tie-breaking.
func (s *Store) FindByShortName(branch, name string) ([]*Symbol, error) {
	syms, err := s.querySymbols(
		"SELECT "+symbolCols+" FROM symbols WHERE vcs_branch = ? AND short_name = ? ORDER BY fully_qualified_name",
		branch, name,
	)
	if err != nil {
		return nil, fmt.Errorf("find by short name: %w", err)
	}
	return syms, nil
}

// FindByParent enumerates the members of a declaration by its FQN.
func (s *Store) FindByParent(branch, parentFQN string) ([]*Symbol, error) {
	syms, err := s.querySymbols(
		"SELECT "+symbolCols+" FROM symbols WHERE vcs_branch = ? AND parent_name = ? ORDER BY line_start, char_start",
		branch, parentFQN,
	)
	if err != nil {
		return nil, fmt.Errorf("find by parent: %w", err)
	}
	return syms, nil
}

// FindAtPosition returns the declarations enclosing the zero-based line in
// the file, innermost first.
func (s *Store) FindAtPosition(branch, filePath string, line int) ([]*Symbol, error) {
	syms, err := s.querySymbols(
		"SELECT "+symbolCols+` FROM symbols
		 WHERE vcs_branch = ? AND file_path = ? AND line_start <= ? AND line_end >= ?
		 ORDER BY (line_end - line_start) ASC`,
		branch, filePath, line, line,
	)
	if err != nil {
		return nil, fmt.Errorf("find at position: %w", err)
	}
	return syms, nil
}

// SymbolsByFile returns all symbols extracted from a file on the branch in
// declaration order.
func (s *Store) SymbolsByFile(branch, filePath string) ([]*Symbol, error) {
	syms, err := s.querySymbols(
		"SELECT "+symbolCols+" FROM symbols WHERE vcs_branch = ? AND file_path = ? ORDER BY line_start, char_start, id",
		branch, filePath,
	)
	if err != nil {
		return nil, fmt.Errorf("symbols by file: %w", err)
	}
	return syms, nil
}

// FindByIdentPosition returns the symbol whose identifier starts at the
// exact zero-based (line, char) in the file, or nil.
func (s *Store) FindByIdentPosition(branch, filePath string, line, char int) (*Symbol, error) {
	row := s.db.QueryRow(
		"SELECT "+symbolCols+` FROM symbols
		 WHERE vcs_branch = ? AND file_path = ? AND ident_line_start = ? AND ident_char_start = ? LIMIT 1`,
		branch, filePath, line, char,
	)
	sym, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by ident position: %w", err)
	}
	return sym, nil
}

// FindByPackage returns all type declarations in a package on the branch.
// Used by the project layer for unqualified same-package lookups.
func (s *Store) FindByPackage(branch, pkg string) ([]*Symbol, error) {
	types := []any{TypeClass, TypeInterface, TypeEnumClass, TypeAnnotation}
	args := append([]any{branch, pkg}, types...)
	syms, err := s.querySymbols(
		"SELECT "+symbolCols+" FROM symbols WHERE vcs_branch = ? AND package_name = ? AND symbol_type IN ("+placeholderList(len(types))+") ORDER BY fully_qualified_name",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("find by package: %w", err)
	}
	return syms, nil
}
