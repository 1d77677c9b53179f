package resolve

import (
	"context"
	"strings"

	"github.com/harbyn/lspintar/internal/store"
)

// Hover runs the same resolution as Definition but renders a text block:
// a fenced signature (package, annotations, modifiers, signature) followed
// by the symbol kind, the enclosing type, and the leading doc comment.
func (r *Resolver) Hover(ctx context.Context, req Request) (string, error) {
	tgt, err := r.perRequest().resolve(ctx, req)
	if err != nil {
		return "", err
	}
	switch {
	case tgt == nil:
		return "", nil
	case tgt.sym != nil:
		return renderHover(hoverView{
			fileType:   tgt.sym.FileType,
			pkg:        tgt.sym.PackageName,
			shortName:  tgt.sym.ShortName,
			symbolType: tgt.sym.SymbolType,
			modifiers:  tgt.sym.Modifiers,
			parent:     tgt.sym.ParentName,
			meta:       tgt.sym.Metadata,
		}), nil
	case tgt.ext != nil:
		return renderHover(hoverView{
			fileType:   tgt.ext.FileType,
			pkg:        tgt.ext.PackageName,
			shortName:  tgt.ext.ShortName,
			symbolType: tgt.ext.SymbolType,
			modifiers:  tgt.ext.Modifiers,
			parent:     tgt.ext.ParentName,
			meta:       tgt.ext.Metadata,
		}), nil
	default:
		return "", nil
	}
}

type hoverView struct {
	fileType   string
	pkg        string
	shortName  string
	symbolType string
	modifiers  []string
	parent     *string
	meta       store.Metadata
}

func renderHover(v hoverView) string {
	var parts []string
	parts = append(parts, "```"+v.fileType)
	if v.pkg != "" {
		parts = append(parts, "package "+v.pkg, "")
	}
	for _, ann := range v.meta.Annotations {
		if ann != "" {
			parts = append(parts, ann)
		}
	}
	parts = append(parts, signatureLine(v))
	parts = append(parts, "```")

	detail := v.symbolType
	if v.parent != nil && *v.parent != "" {
		detail += " in " + *v.parent
	}
	parts = append(parts, detail)

	if v.meta.Documentation != "" {
		parts = append(parts, "", v.meta.Documentation)
	}
	return strings.Join(parts, "\n")
}

func signatureLine(v hoverView) string {
	var b strings.Builder
	if mods := strings.Join(v.modifiers, " "); mods != "" {
		b.WriteString(mods)
		b.WriteByte(' ')
	}
	switch v.symbolType {
	case store.TypeMethod, store.TypeConstructor:
		if v.fileType == "kotlin" {
			b.WriteString("fun ")
			b.WriteString(v.shortName)
			writeParams(&b, v.meta.Parameters)
			if v.meta.ReturnType != "" {
				b.WriteString(": ")
				b.WriteString(v.meta.ReturnType)
			}
			return b.String()
		}
		if v.meta.ReturnType != "" {
			b.WriteString(v.meta.ReturnType)
			b.WriteByte(' ')
		}
		b.WriteString(v.shortName)
		writeParams(&b, v.meta.Parameters)
		return b.String()
	case store.TypeField, store.TypeProperty, store.TypeParameter, store.TypeLocalVariable:
		if v.fileType == "kotlin" {
			b.WriteString(v.shortName)
			if v.meta.ReturnType != "" {
				b.WriteString(": ")
				b.WriteString(v.meta.ReturnType)
			}
			return b.String()
		}
		if v.meta.ReturnType != "" {
			b.WriteString(v.meta.ReturnType)
			b.WriteByte(' ')
		}
		b.WriteString(v.shortName)
		return b.String()
	case store.TypeClass:
		b.WriteString("class ")
	case store.TypeInterface:
		b.WriteString("interface ")
	case store.TypeEnumClass:
		if v.fileType == "kotlin" {
			b.WriteString("enum class ")
		} else {
			b.WriteString("enum ")
		}
	case store.TypeAnnotation:
		if v.fileType == "kotlin" {
			b.WriteString("annotation class ")
		} else {
			b.WriteString("@interface ")
		}
	case store.TypePackage:
		b.WriteString("package ")
	}
	b.WriteString(v.shortName)
	return b.String()
}

func writeParams(b *strings.Builder, params []store.Parameter) {
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.TypeName == "" {
			b.WriteString(p.Name)
			continue
		}
		b.WriteString(p.TypeName)
		b.WriteByte(' ')
		b.WriteString(p.Name)
	}
	b.WriteByte(')')
}
