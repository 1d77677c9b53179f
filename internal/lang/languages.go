package lang

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/groovy"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/kotlin"
)

// Language is the canonical tag for a supported source language. The same
// value is stored in symbol rows as file_type.
type Language string

const (
	Java   Language = "java"
	Groovy Language = "groovy"
	Kotlin Language = "kotlin"
)

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]Language{
	".java":   Java,
	".groovy": Groovy,
	".gvy":    Groovy,
	".gy":     Groovy,
	".kt":     Kotlin,
	".kts":    Kotlin,
}

// langToGrammar maps language names to tree-sitter Language objects.
// Lazily initialized on first call via sync.Once.
var (
	langToGrammar map[Language]*sitter.Language
	grammarsOnce  sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		langToGrammar = map[Language]*sitter.Language{
			Java:   java.GetLanguage(),
			Groovy: groovy.GetLanguage(),
			Kotlin: kotlin.GetLanguage(),
		}
	})
}

// ForFile returns the canonical language for a file path based on its
// extension. Returns ("", false) if the extension is not recognized.
func ForFile(path string) (Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// GrammarFor returns the tree-sitter grammar for a language. Returns
// (nil, false) when the grammar is unavailable; callers disable the
// corresponding pipeline rather than erroring.
func GrammarFor(lang Language) (*sitter.Language, bool) {
	initGrammars()
	g, ok := langToGrammar[lang]
	return g, g != nil && ok
}

// Supported returns all languages with an available grammar.
func Supported() []Language {
	initGrammars()
	var langs []Language
	for _, l := range []Language{Java, Groovy, Kotlin} {
		if g := langToGrammar[l]; g != nil {
			langs = append(langs, l)
		}
	}
	return langs
}
