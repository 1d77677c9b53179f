package resolve

import "strings"

// searchWorkspace is layer 3: fall back to the short-name index scoped to
// the current branch. When several modules declare the name, the same
// module as the requesting file wins, then the lexicographically smallest
// FQN (the store returns rows FQN-ordered).
func (r *Resolver) searchWorkspace(req Request, name string) (*target, error) {
	syms, err := r.store.FindByShortName(req.Branch, name)
	if err != nil {
		return nil, err
	}
	if len(syms) == 0 {
		return nil, nil
	}
	best := syms[0]
	bestAffinity := pathAffinity(req.FilePath, best.FilePath)
	for _, sym := range syms[1:] {
		if a := pathAffinity(req.FilePath, sym.FilePath); a > bestAffinity {
			best, bestAffinity = sym, a
		}
	}
	return fromSymbol(best), nil
}

// pathAffinity counts shared leading path segments; a rough same-module
// measure that needs no build-tool knowledge.
func pathAffinity(a, b string) int {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	n := 0
	for n < len(as) && n < len(bs) && as[n] == bs[n] {
		n++
	}
	return n
}
