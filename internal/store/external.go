package store

import (
	"database/sql"
	"fmt"
)

const externalCols = `id, short_name, package_name, fully_qualified_name, parent_name,
	jar_path, source_file_path, file_type, symbol_type, modifiers,
	line_start, line_end, char_start, char_end,
	ident_line_start, ident_line_end, ident_char_start, ident_char_end,
	extends_name, metadata, needs_decompilation, last_modified`

func scanExternal(scanner interface{ Scan(...any) error }) (*ExternalSymbol, error) {
	sym := &ExternalSymbol{}
	var mods, meta string
	err := scanner.Scan(
		&sym.ID, &sym.ShortName, &sym.PackageName, &sym.FullyQualifiedName, &sym.ParentName,
		&sym.JarPath, &sym.SourceFilePath, &sym.FileType, &sym.SymbolType, &mods,
		&sym.LineStart, &sym.LineEnd, &sym.CharStart, &sym.CharEnd,
		&sym.IdentLineStart, &sym.IdentLineEnd, &sym.IdentCharStart, &sym.IdentCharEnd,
		&sym.ExtendsName, &meta, &sym.NeedsDecompilation, &sym.LastModified,
	)
	if err != nil {
		return nil, err
	}
	sym.Modifiers = unmarshalStrings(mods)
	sym.Metadata = unmarshalMetadata(meta)
	return sym, nil
}

func (s *Store) queryExternals(query string, args ...any) ([]*ExternalSymbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var syms []*ExternalSymbol
	for rows.Next() {
		sym, err := scanExternal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan external symbol: %w", err)
		}
		syms = append(syms, sym)
	}
	return syms, rows.Err()
}

// UpsertExternalSymbol inserts or replaces an external symbol row on its
// (jar_path, source_file_path, fqn) uniqueness key.
func (s *Store) UpsertExternalSymbol(sym *ExternalSymbol) error {
	res, err := s.db.Exec(
		`INSERT INTO external_symbols (short_name, package_name, fully_qualified_name, parent_name,
			jar_path, source_file_path, file_type, symbol_type, modifiers,
			line_start, line_end, char_start, char_end,
			ident_line_start, ident_line_end, ident_char_start, ident_char_end,
			extends_name, metadata, needs_decompilation, last_modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (jar_path, source_file_path, fully_qualified_name) DO UPDATE SET
			short_name = excluded.short_name,
			package_name = excluded.package_name,
			parent_name = excluded.parent_name,
			file_type = excluded.file_type,
			symbol_type = excluded.symbol_type,
			modifiers = excluded.modifiers,
			line_start = excluded.line_start, line_end = excluded.line_end,
			char_start = excluded.char_start, char_end = excluded.char_end,
			ident_line_start = excluded.ident_line_start, ident_line_end = excluded.ident_line_end,
			ident_char_start = excluded.ident_char_start, ident_char_end = excluded.ident_char_end,
			extends_name = excluded.extends_name,
			metadata = excluded.metadata,
			needs_decompilation = excluded.needs_decompilation,
			last_modified = excluded.last_modified`,
		sym.ShortName, sym.PackageName, sym.FullyQualifiedName, sym.ParentName,
		sym.JarPath, sym.SourceFilePath, sym.FileType, sym.SymbolType, marshalStrings(sym.Modifiers),
		sym.LineStart, sym.LineEnd, sym.CharStart, sym.CharEnd,
		sym.IdentLineStart, sym.IdentLineEnd, sym.IdentCharStart, sym.IdentCharEnd,
		sym.ExtendsName, marshalMetadata(sym.Metadata), sym.NeedsDecompilation, sym.LastModified,
	)
	if err != nil {
		return fmt.Errorf("upsert external symbol %s: %w", sym.FullyQualifiedName, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		sym.ID = id
	}
	return nil
}

// FindExternalByFQN returns the external symbol with the given FQN, or nil.
// Rows with real spans (already decompiled or source-backed) win over
// placeholder rows.
func (s *Store) FindExternalByFQN(fqn string) (*ExternalSymbol, error) {
	row := s.db.QueryRow(
		"SELECT "+externalCols+" FROM external_symbols WHERE fully_qualified_name = ? ORDER BY needs_decompilation ASC LIMIT 1",
		fqn,
	)
	sym, err := scanExternal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find external by fqn: %w", err)
	}
	return sym, nil
}

// FindExternalByShortName returns external symbols with the given short
// name: rows with real source spans first, then by FQN.
func (s *Store) FindExternalByShortName(name string) ([]*ExternalSymbol, error) {
	syms, err := s.queryExternals(
		"SELECT "+externalCols+" FROM external_symbols WHERE short_name = ? ORDER BY needs_decompilation ASC, fully_qualified_name",
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("find external by short name: %w", err)
	}
	return syms, nil
}

// FindExternalByParent enumerates members of an external type.
func (s *Store) FindExternalByParent(parentFQN string) ([]*ExternalSymbol, error) {
	syms, err := s.queryExternals(
		"SELECT "+externalCols+" FROM external_symbols WHERE parent_name = ? ORDER BY line_start, char_start",
		parentFQN,
	)
	if err != nil {
		return nil, fmt.Errorf("find external by parent: %w", err)
	}
	return syms, nil
}

// DeleteJarSymbols removes all external rows from a JAR; called when the
// JAR's mtime changes.
func (s *Store) DeleteJarSymbols(jarPath string) error {
	if _, err := s.db.Exec("DELETE FROM external_symbols WHERE jar_path = ?", jarPath); err != nil {
		return fmt.Errorf("delete jar symbols: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM indexed_jars WHERE jar_path = ?", jarPath); err != nil {
		return fmt.Errorf("delete jar record: %w", err)
	}
	return nil
}

// JarNeedsScan reports whether the JAR is unindexed or changed on disk.
func (s *Store) JarNeedsScan(jarPath string, mtime int64) (bool, error) {
	var stored int64
	err := s.db.QueryRow("SELECT mtime FROM indexed_jars WHERE jar_path = ?", jarPath).Scan(&stored)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("jar needs scan: %w", err)
	}
	return stored != mtime, nil
}

// MarkJarIndexed records the JAR's mtime after a completed scan.
func (s *Store) MarkJarIndexed(jarPath string, mtime int64) error {
	_, err := s.db.Exec(
		`INSERT INTO indexed_jars (jar_path, mtime) VALUES (?, ?)
		 ON CONFLICT (jar_path) DO UPDATE SET mtime = excluded.mtime`,
		jarPath, mtime,
	)
	if err != nil {
		return fmt.Errorf("mark jar indexed: %w", err)
	}
	return nil
}
