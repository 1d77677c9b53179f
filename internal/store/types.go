package store

// Symbol type tags. Stored as text in symbol rows.
const (
	TypeClass         = "class"
	TypeInterface     = "interface"
	TypeEnumClass     = "enum_class"
	TypeAnnotation    = "annotation"
	TypeMethod        = "method"
	TypeConstructor   = "constructor"
	TypeField         = "field"
	TypeProperty      = "property"
	TypeParameter     = "parameter"
	TypeLocalVariable = "local_variable"
	TypePackage       = "package"
	TypeImport        = "import"
)

// Symbol is a declaration discovered in a workspace source file. Spans are
// zero-based (line, column) pairs; the identifier span is contained within
// the full span.
type Symbol struct {
	ID                 int64
	VCSBranch          string
	ShortName          string
	PackageName        string
	FullyQualifiedName string
	ParentName         *string
	FilePath           string
	FileType           string
	SymbolType         string
	Modifiers          []string

	LineStart int
	LineEnd   int
	CharStart int
	CharEnd   int

	IdentLineStart int
	IdentLineEnd   int
	IdentCharStart int
	IdentCharEnd   int

	ExtendsName     *string
	ImplementsNames []string
	Metadata        Metadata
	LastModified    int64
}

// IsTypeDecl reports whether the symbol declares a type.
func (s *Symbol) IsTypeDecl() bool {
	switch s.SymbolType {
	case TypeClass, TypeInterface, TypeEnumClass, TypeAnnotation:
		return true
	}
	return false
}

// Parameter is one formal parameter recorded in symbol metadata, as written
// in source.
type Parameter struct {
	Name         string `json:"name"`
	TypeName     string `json:"type_name,omitempty"`
	DefaultValue string `json:"default_value,omitempty"`
}

// Metadata carries per-language details the resolver may need without a
// schema change.
type Metadata struct {
	Parameters    []Parameter `json:"parameters,omitempty"`
	ReturnType    string      `json:"return_type,omitempty"`
	Documentation string      `json:"documentation,omitempty"`
	Annotations   []string    `json:"annotations,omitempty"`
}

// SuperEdge links a symbol to a declared supertype by the name as written.
// ResolvedFQN is filled lazily; extraction runs per-file without workspace
// context.
type SuperEdge struct {
	ID             int64
	VCSBranch      string
	SymbolFQN      string
	SuperShortName string
	ResolvedFQN    *string
	FilePath       string
}

// InterfaceEdge links a symbol to a declared interface conformance.
type InterfaceEdge struct {
	ID                 int64
	VCSBranch          string
	SymbolFQN          string
	InterfaceShortName string
	ResolvedFQN        *string
	FilePath           string
}

// ExternalSymbol is a declaration originating from a JAR or decompiled
// classfile. SourceFilePath is the path inside the JAR, or the cache path
// for decompiled content.
type ExternalSymbol struct {
	ID                 int64
	ShortName          string
	PackageName        string
	FullyQualifiedName string
	ParentName         *string
	JarPath            string
	SourceFilePath     string
	FileType           string
	SymbolType         string
	Modifiers          []string

	LineStart int
	LineEnd   int
	CharStart int
	CharEnd   int

	IdentLineStart int
	IdentLineEnd   int
	IdentCharStart int
	IdentCharEnd   int

	ExtendsName        *string
	Metadata           Metadata
	NeedsDecompilation bool
	LastModified       int64
}
