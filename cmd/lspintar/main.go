package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/harbyn/lspintar"
	"github.com/harbyn/lspintar/internal/lang"
	"github.com/harbyn/lspintar/internal/server"
)

const version = "0.3.0"

var flagVerbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "lspintar",
	Short:         "Language server for mixed Java, Groovy, and Kotlin workspaces",
	Long:          "LSPintar indexes JVM-family sources with tree-sitter into a SQLite symbol index and serves go-to-definition, go-to-implementation, hover, and diagnostics over LSP.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "debug logging on stderr")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(indexCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve LSP over stdio",
	Long:  "Speaks the Language Server Protocol on stdin/stdout. All logging goes to stderr; stdout carries only the protocol.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// stdout is the protocol channel; both loggers write to stderr.
	level := slog.LevelInfo
	commonlogLevel := 1
	if flagVerbose {
		level = slog.LevelDebug
		commonlogLevel = 2
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	commonlog.Configure(commonlogLevel, nil)

	return server.New(version, log).RunStdio()
}

var (
	flagDB        string
	flagLanguages []string
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a workspace without serving",
	Long:  "Parses the workspace sources, extracts symbols, and writes the index database. Useful for warming the index or inspecting it offline.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&flagDB, "db", "", "database path (default: .lspintar/index.db under the workspace)")
	indexCmd.Flags().StringSliceVar(&flagLanguages, "languages", nil, "language filter (java,groovy,kotlin)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	dbPath := flagDB
	if dbPath == "" {
		dbPath = filepath.Join(root, ".lspintar", "index.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []lspintar.Option{lspintar.WithLogger(log)}
	if len(flagLanguages) > 0 {
		langs := make([]lang.Language, 0, len(flagLanguages))
		for _, l := range flagLanguages {
			langs = append(langs, lang.Language(l))
		}
		opts = append(opts, lspintar.WithLanguages(langs...))
	}
	engine, err := lspintar.New(dbPath, root, opts...)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.IndexDirectory(cmd.Context(), root); err != nil {
		return err
	}
	fmt.Printf("Indexed %s in %s (branch %s)\n", root, time.Since(start).Round(time.Millisecond), engine.Branch())
	return nil
}
