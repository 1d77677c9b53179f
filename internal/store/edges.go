package store

import "fmt"

// --- Edge queries ---

func (s *Store) querySuperEdges(query string, args ...any) ([]*SuperEdge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var edges []*SuperEdge
	for rows.Next() {
		e := &SuperEdge{}
		if err := rows.Scan(&e.ID, &e.VCSBranch, &e.SymbolFQN, &e.SuperShortName, &e.ResolvedFQN, &e.FilePath); err != nil {
			return nil, fmt.Errorf("scan super edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *Store) queryInterfaceEdges(query string, args ...any) ([]*InterfaceEdge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var edges []*InterfaceEdge
	for rows.Next() {
		e := &InterfaceEdge{}
		if err := rows.Scan(&e.ID, &e.VCSBranch, &e.SymbolFQN, &e.InterfaceShortName, &e.ResolvedFQN, &e.FilePath); err != nil {
			return nil, fmt.Errorf("scan interface edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

const superCols = `id, vcs_branch, symbol_fqn, super_short_name, resolved_fqn, file_path`
const ifaceCols = `id, vcs_branch, symbol_fqn, interface_short_name, resolved_fqn, file_path`

// SuperEdgesFor returns the declared supertypes of a symbol.
func (s *Store) SuperEdgesFor(branch, symbolFQN string) ([]*SuperEdge, error) {
	return s.querySuperEdges(
		"SELECT "+superCols+" FROM symbol_super_mapping WHERE vcs_branch = ? AND symbol_fqn = ?",
		branch, symbolFQN,
	)
}

// InterfaceEdgesFor returns the declared interface conformances of a symbol.
func (s *Store) InterfaceEdgesFor(branch, symbolFQN string) ([]*InterfaceEdge, error) {
	return s.queryInterfaceEdges(
		"SELECT "+ifaceCols+" FROM symbol_interface_mapping WHERE vcs_branch = ? AND symbol_fqn = ?",
		branch, symbolFQN,
	)
}

// FindImplementors returns symbols whose implements-edge resolves to the
// interface identified by FQN or short name. The resolver tolerates edges
// with a NULL resolved FQN by matching on short name.
func (s *Store) FindImplementors(branch, interfaceName string) ([]*Symbol, error) {
	short := lastSegment(interfaceName)
	syms, err := s.querySymbols(
		"SELECT "+symbolCols+` FROM symbols
		 WHERE vcs_branch = ? AND fully_qualified_name IN (
		   SELECT symbol_fqn FROM symbol_interface_mapping
		   WHERE vcs_branch = ? AND (resolved_fqn = ? OR interface_short_name = ?)
		 ) ORDER BY fully_qualified_name`,
		branch, branch, interfaceName, short,
	)
	if err != nil {
		return nil, fmt.Errorf("find implementors: %w", err)
	}
	return syms, nil
}

// FindSubclasses returns symbols whose super-edge resolves to the class
// identified by FQN or short name.
func (s *Store) FindSubclasses(branch, className string) ([]*Symbol, error) {
	short := lastSegment(className)
	syms, err := s.querySymbols(
		"SELECT "+symbolCols+` FROM symbols
		 WHERE vcs_branch = ? AND fully_qualified_name IN (
		   SELECT symbol_fqn FROM symbol_super_mapping
		   WHERE vcs_branch = ? AND (resolved_fqn = ? OR super_short_name = ?)
		 ) ORDER BY fully_qualified_name`,
		branch, branch, className, short,
	)
	if err != nil {
		return nil, fmt.Errorf("find subclasses: %w", err)
	}
	return syms, nil
}

// ResolveSuperEdges fills resolved_fqn on super edges matching the short
// name. Called by the resolver once a short-name lookup has found the
// target's FQN.
func (s *Store) ResolveSuperEdges(branch, shortName, fqn string) error {
	_, err := s.db.Exec(
		`UPDATE symbol_super_mapping SET resolved_fqn = ?
		 WHERE vcs_branch = ? AND super_short_name = ? AND resolved_fqn IS NULL`,
		fqn, branch, shortName,
	)
	if err != nil {
		return fmt.Errorf("resolve super edges: %w", err)
	}
	return nil
}

// ResolveInterfaceEdges fills resolved_fqn on interface edges matching the
// short name.
func (s *Store) ResolveInterfaceEdges(branch, shortName, fqn string) error {
	_, err := s.db.Exec(
		`UPDATE symbol_interface_mapping SET resolved_fqn = ?
		 WHERE vcs_branch = ? AND interface_short_name = ? AND resolved_fqn IS NULL`,
		fqn, branch, shortName,
	)
	if err != nil {
		return fmt.Errorf("resolve interface edges: %w", err)
	}
	return nil
}

// lastSegment returns the text after the final dot, or the whole string.
func lastSegment(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}
