package lang

// Kind is the language-neutral classification of a CST node. Extraction and
// cursor classification operate on Kind values, never on raw tree-sitter
// node type strings; each grammar contributes its own mapping table. This
// keeps Groovy from depending on accidental node-name overlap with Java.
type Kind int

const (
	KindNone Kind = iota
	KindSourceFile
	KindPackageDecl
	KindImportDecl
	KindClassDecl
	KindInterfaceDecl
	KindEnumDecl
	KindAnnotationDecl
	KindObjectDecl
	KindMethodDecl
	KindConstructorDecl
	KindFieldDecl
	KindPropertyDecl
	KindClassParam
	KindParamDecl
	KindLocalVarDecl
	KindEnumConstant
	KindModifiers
	KindSuperclassClause
	KindInterfacesClause
	KindDelegationSpec
	KindFieldAccess
	KindMethodCall
	KindConstructorCall
	KindCastExpr
	KindThisExpr
	KindBlock
	KindIdentifier
	KindTypeIdentifier
	KindScopedIdentifier
	KindAnnotationUse
	KindComment
	KindError
)

// javaKinds maps tree-sitter-java node types to neutral kinds.
var javaKinds = map[string]Kind{
	"program":                     KindSourceFile,
	"package_declaration":         KindPackageDecl,
	"import_declaration":          KindImportDecl,
	"class_declaration":           KindClassDecl,
	"interface_declaration":       KindInterfaceDecl,
	"enum_declaration":            KindEnumDecl,
	"annotation_type_declaration": KindAnnotationDecl,
	"method_declaration":          KindMethodDecl,
	"constructor_declaration":     KindConstructorDecl,
	"field_declaration":           KindFieldDecl,
	"constant_declaration":        KindFieldDecl,
	"formal_parameter":            KindParamDecl,
	"spread_parameter":            KindParamDecl,
	"local_variable_declaration":  KindLocalVarDecl,
	"enum_constant":               KindEnumConstant,
	"modifiers":                   KindModifiers,
	"superclass":                  KindSuperclassClause,
	"super_interfaces":            KindInterfacesClause,
	"extends_interfaces":          KindInterfacesClause,
	"field_access":                KindFieldAccess,
	"method_invocation":           KindMethodCall,
	"object_creation_expression":  KindConstructorCall,
	"cast_expression":             KindCastExpr,
	"this":                        KindThisExpr,
	"block":                       KindBlock,
	"identifier":                  KindIdentifier,
	"type_identifier":             KindTypeIdentifier,
	"scoped_identifier":           KindScopedIdentifier,
	"scoped_type_identifier":      KindScopedIdentifier,
	"annotation":                  KindAnnotationUse,
	"marker_annotation":           KindAnnotationUse,
	"line_comment":                KindComment,
	"block_comment":               KindComment,
	"ERROR":                       KindError,
}

// groovyKinds maps tree-sitter-groovy node types to neutral kinds. The
// grammar shares many productions with Java but renames several; both
// spellings are listed so the mapping survives grammar updates.
var groovyKinds = map[string]Kind{
	"source_file":                KindSourceFile,
	"program":                    KindSourceFile,
	"package_declaration":        KindPackageDecl,
	"package_definition":         KindPackageDecl,
	"import_declaration":         KindImportDecl,
	"import":                     KindImportDecl,
	"class_declaration":          KindClassDecl,
	"class_definition":           KindClassDecl,
	"interface_declaration":      KindInterfaceDecl,
	"enum_declaration":           KindEnumDecl,
	"annotation_type_declaration": KindAnnotationDecl,
	"method_declaration":         KindMethodDecl,
	"function_definition":        KindMethodDecl,
	"function_declaration":       KindMethodDecl,
	"constructor_declaration":    KindConstructorDecl,
	"field_declaration":          KindFieldDecl,
	"formal_parameter":           KindParamDecl,
	"parameter":                  KindParamDecl,
	"local_variable_declaration": KindLocalVarDecl,
	"variable_definition":        KindLocalVarDecl,
	"declaration":                KindLocalVarDecl,
	"enum_constant":              KindEnumConstant,
	"modifiers":                  KindModifiers,
	"modifier":                   KindModifiers,
	"superclass":                 KindSuperclassClause,
	"super_interfaces":           KindInterfacesClause,
	"interfaces":                 KindInterfacesClause,
	"field_access":               KindFieldAccess,
	"dotted_identifier":          KindFieldAccess,
	"method_invocation":          KindMethodCall,
	"function_call":              KindMethodCall,
	"object_creation_expression": KindConstructorCall,
	"cast_expression":            KindCastExpr,
	"this":                       KindThisExpr,
	"block":                      KindBlock,
	"closure":                    KindBlock,
	"identifier":                 KindIdentifier,
	"type_identifier":            KindTypeIdentifier,
	"scoped_identifier":          KindScopedIdentifier,
	"scoped_type_identifier":     KindScopedIdentifier,
	"annotation":                 KindAnnotationUse,
	"marker_annotation":          KindAnnotationUse,
	"line_comment":               KindComment,
	"comment":                    KindComment,
	"block_comment":              KindComment,
	"groovy_doc":                 KindComment,
	"ERROR":                      KindError,
}

// kotlinKinds maps tree-sitter-kotlin node types to neutral kinds. A
// class_declaration node covers classes, interfaces, and enums; the facade
// refines it by keyword (see ClassLikeKind).
var kotlinKinds = map[string]Kind{
	"source_file":               KindSourceFile,
	"package_header":            KindPackageDecl,
	"import_header":             KindImportDecl,
	"class_declaration":         KindClassDecl,
	"interface_declaration":     KindInterfaceDecl,
	"enum_declaration":          KindEnumDecl,
	"object_declaration":        KindObjectDecl,
	"companion_object":          KindObjectDecl,
	"function_declaration":      KindMethodDecl,
	"secondary_constructor":     KindConstructorDecl,
	"anonymous_initializer":     KindBlock,
	"property_declaration":      KindPropertyDecl,
	"class_parameter":           KindClassParam,
	"parameter":                 KindParamDecl,
	"enum_entry":                KindEnumConstant,
	"modifiers":                 KindModifiers,
	"delegation_specifier":      KindDelegationSpec,
	"navigation_expression":     KindFieldAccess,
	"call_expression":           KindMethodCall,
	"as_expression":             KindCastExpr,
	"this_expression":           KindThisExpr,
	"statements":                KindBlock,
	"function_body":             KindBlock,
	"lambda_literal":            KindBlock,
	"simple_identifier":         KindIdentifier,
	"type_identifier":           KindTypeIdentifier,
	"annotation":                KindAnnotationUse,
	"line_comment":              KindComment,
	"multiline_comment":         KindComment,
	"ERROR":                     KindError,
}

var kindTables = map[Language]map[string]Kind{
	Java:   javaKinds,
	Groovy: groovyKinds,
	Kotlin: kotlinKinds,
}

// KindFor maps a raw node type string to its neutral kind for the given
// language. Unmapped node types return KindNone.
func KindFor(lang Language, nodeType string) Kind {
	table, ok := kindTables[lang]
	if !ok {
		return KindNone
	}
	return table[nodeType]
}
