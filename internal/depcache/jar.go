package depcache

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/harbyn/lspintar/internal/extract"
	"github.com/harbyn/lspintar/internal/lang"
	"github.com/harbyn/lspintar/internal/store"
)

// listClassEntries returns the .class entries of a JAR worth indexing.
// Synthetic and anonymous classes are skipped.
func listClassEntries(jarPath string) ([]string, error) {
	zr, err := zip.OpenReader(jarPath)
	if err != nil {
		return nil, fmt.Errorf("open jar: %w", err)
	}
	defer zr.Close()

	var entries []string
	for _, f := range zr.File {
		name := f.Name
		if !strings.HasSuffix(name, ".class") {
			continue
		}
		base := strings.TrimSuffix(filepath.Base(name), ".class")
		if base == "module-info" || base == "package-info" {
			continue
		}
		if anonymousClass(base) {
			continue
		}
		entries = append(entries, name)
	}
	return entries, nil
}

// anonymousClass reports compiler-generated names like Outer$1.
func anonymousClass(base string) bool {
	if i := strings.LastIndexByte(base, '$'); i >= 0 && i+1 < len(base) {
		return unicode.IsDigit(rune(base[i+1]))
	}
	return false
}

// classEntrySymbol builds the placeholder external symbol for a class
// entry: FQN derived from the internal path, placeholder span, pending
// decompilation.
func classEntrySymbol(jarPath, entry string, now int64) *store.ExternalSymbol {
	path := strings.TrimSuffix(entry, ".class")
	dotted := strings.ReplaceAll(path, "/", ".")

	pkg := ""
	short := dotted
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		pkg = dotted[:i]
		short = dotted[i+1:]
	}

	var parent *string
	fqn := dotted
	if i := strings.LastIndexByte(short, '$'); i >= 0 {
		// Nested class: Outer$Inner nests by dot in the FQN.
		outer := short[:i]
		inner := short[i+1:]
		outerFQN := outer
		if pkg != "" {
			outerFQN = pkg + "." + strings.ReplaceAll(outer, "$", ".")
		}
		parent = &outerFQN
		short = inner
		fqn = outerFQN + "." + inner
	}
	if short == "" {
		return nil
	}

	return &store.ExternalSymbol{
		ShortName:          short,
		PackageName:        pkg,
		FullyQualifiedName: fqn,
		ParentName:         parent,
		JarPath:            jarPath,
		SourceFilePath:     entry,
		FileType:           "java",
		SymbolType:         store.TypeClass,
		NeedsDecompilation: true,
		LastModified:       now,
	}
}

// sourcesJarFor returns the sibling -sources.jar path when it exists.
func sourcesJarFor(jarPath string) string {
	srcJar := strings.TrimSuffix(jarPath, ".jar") + "-sources.jar"
	if _, err := os.Stat(srcJar); err == nil {
		return srcJar
	}
	return ""
}

// indexSourcesJar extracts the source entries of a -sources.jar into the
// cache directory and indexes them for real spans, flipping
// needs_decompilation off for the covered classes.
func (c *Cache) indexSourcesJar(ctx context.Context, jarPath, srcJarPath string, now int64) error {
	zr, err := zip.OpenReader(srcJarPath)
	if err != nil {
		return fmt.Errorf("open sources jar: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := lang.ForFile(f.Name); !ok {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		src, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}

		cachePath := filepath.Join(c.cacheDir, "sources", filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
			return fmt.Errorf("create source cache dir: %w", err)
		}
		if err := os.WriteFile(cachePath, src, 0o644); err != nil {
			return fmt.Errorf("write source cache file: %w", err)
		}
		if err := c.indexExternalSource(ctx, jarPath, cachePath, src, false); err != nil {
			c.log.Warn("source entry indexing failed", "entry", f.Name, "error", err)
		}
	}
	return nil
}

// indexExternalSource parses source text and upserts one external row per
// extracted declaration, with real spans.
func (c *Cache) indexExternalSource(ctx context.Context, jarPath, sourcePath string, src []byte, pending bool) error {
	language, ok := lang.ForFile(sourcePath)
	if !ok {
		return fmt.Errorf("unsupported source type: %s", sourcePath)
	}
	facade, err := lang.NewFacade(language)
	if err != nil {
		return err
	}
	tree, err := facade.Parse(ctx, src)
	if err != nil {
		return err
	}
	defer tree.Close()

	result := extract.File(tree, sourcePath, "", time.Now().Unix())
	for _, sym := range result.Symbols {
		if sym.SymbolType == store.TypePackage || sym.SymbolType == store.TypeImport {
			continue
		}
		ext := &store.ExternalSymbol{
			ShortName:          sym.ShortName,
			PackageName:        sym.PackageName,
			FullyQualifiedName: sym.FullyQualifiedName,
			ParentName:         sym.ParentName,
			JarPath:            jarPath,
			SourceFilePath:     sourcePath,
			FileType:           sym.FileType,
			SymbolType:         sym.SymbolType,
			Modifiers:          sym.Modifiers,
			LineStart:          sym.LineStart,
			LineEnd:            sym.LineEnd,
			CharStart:          sym.CharStart,
			CharEnd:            sym.CharEnd,
			IdentLineStart:     sym.IdentLineStart,
			IdentLineEnd:       sym.IdentLineEnd,
			IdentCharStart:     sym.IdentCharStart,
			IdentCharEnd:       sym.IdentCharEnd,
			ExtendsName:        sym.ExtendsName,
			Metadata:           sym.Metadata,
			NeedsDecompilation: pending,
			LastModified:       sym.LastModified,
		}
		if err := c.store.UpsertExternalSymbol(ext); err != nil {
			return err
		}
	}
	return nil
}
