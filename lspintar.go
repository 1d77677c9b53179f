package lspintar

import (
	"github.com/harbyn/lspintar/internal/store"
)

// Public type aliases for internal store types used through the Engine API.
// These are Go type aliases (=) — identical to the internal types at compile
// time. External consumers use these names; no conversion is needed.

type Store = store.Store
type Symbol = store.Symbol
type ExternalSymbol = store.ExternalSymbol
type SuperEdge = store.SuperEdge
type InterfaceEdge = store.InterfaceEdge
type Metadata = store.Metadata
type Parameter = store.Parameter
