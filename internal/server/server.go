// Package server wires the engine to the LSP transport. The transport
// itself (JSON-RPC framing, dispatch) belongs to glsp; this package owns
// document state, configuration, and the request handlers for definition,
// implementation, hover, and diagnostics.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserv "github.com/tliron/glsp/server"

	"github.com/harbyn/lspintar"
	"github.com/harbyn/lspintar/internal/buildtool"
	"github.com/harbyn/lspintar/internal/depcache"
)

const serverName = "lspintar"

// Config is the initialize-time configuration. Invalid options are logged
// and replaced with defaults; the server always starts.
type Config struct {
	// GradleCacheDir is scanned for JAR dependencies when no build tool
	// invocation is possible.
	GradleCacheDir string `json:"gradle_cache_dir"`

	// BuildOnInit populates the dependency cache synchronously before
	// accepting requests; false defers to the first external lookup.
	BuildOnInit bool `json:"build_on_init"`

	// DBPath overrides the index database location.
	DBPath string `json:"db_path"`

	// DecompilerPath is the decompiler binary used for bytecode-only
	// dependencies.
	DecompilerPath string `json:"decompiler_path"`
}

// Server holds the engine and open-document state for one LSP session.
type Server struct {
	handler protocol.Handler
	log     *slog.Logger

	engine *lspintar.Engine
	docs   *documentStore

	version string
}

// New builds a Server; the engine is created at initialize once the
// workspace root and options are known.
func New(version string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		log:     log,
		docs:    newDocumentStore(),
		version: version,
	}
	s.handler = protocol.Handler{
		Initialize:                 s.initialize,
		Initialized:                s.initialized,
		Shutdown:                   s.shutdown,
		SetTrace:                   s.setTrace,
		TextDocumentDidOpen:        s.didOpen,
		TextDocumentDidChange:      s.didChange,
		TextDocumentDidClose:       s.didClose,
		TextDocumentDefinition:     s.definition,
		TextDocumentImplementation: s.implementation,
		TextDocumentHover:          s.hover,

		WorkspaceDidChangeWatchedFiles: s.didChangeWatchedFiles,
	}
	return s
}

// RunStdio serves LSP over stdin/stdout until the client disconnects.
func (s *Server) RunStdio() error {
	srv := glspserv.NewServer(&s.handler, serverName, false)
	return srv.RunStdio()
}

func (s *Server) initialize(glspCtx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	root := rootPath(params)
	cfg := decodeConfig(params.InitializationOptions, s.log)

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(dataDir(), "index.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	cache := depcache.New(
		nil, // store wired below once the engine owns it
		&buildtool.GradleCache{Dir: cfg.GradleCacheDir, WorkspaceRoot: root},
		&depcache.ExecDecompiler{Path: cfg.DecompilerPath},
		filepath.Join(dataDir(), "decompiled"),
		s.log,
	)

	engine, err := lspintar.New(dbPath, root,
		lspintar.WithLogger(s.log),
		lspintar.WithDependencyCache(cache),
	)
	if err != nil {
		return nil, err
	}
	cache.SetStore(engine.Store())
	s.engine = engine

	ctx := context.Background()
	if err := engine.IndexDirectory(ctx, root); err != nil {
		s.log.Warn("workspace indexing failed", "root", root, "error", err)
	}
	if cfg.BuildOnInit {
		if err := engine.ScanDependencies(ctx); err != nil {
			s.log.Warn("dependency scan failed", "error", err)
		}
	}
	// Otherwise nothing is scanned here: the resolver triggers the same
	// once-guarded scan on the first external lookup.

	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = syncKind

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(glspCtx *glsp.Context, _ *protocol.InitializedParams) error {
	// Watch build files and JARs so class-path changes mid-session reach
	// didChangeWatchedFiles. Best effort: clients without dynamic
	// registration simply never send the notification.
	glspCtx.Call(protocol.ServerClientRegisterCapability, protocol.RegistrationParams{
		Registrations: []protocol.Registration{{
			ID:     "lspintar-build-watch",
			Method: "workspace/didChangeWatchedFiles",
			RegisterOptions: protocol.DidChangeWatchedFilesRegistrationOptions{
				Watchers: []protocol.FileSystemWatcher{
					{GlobPattern: "**/{build.gradle,build.gradle.kts,settings.gradle,settings.gradle.kts,gradle.properties,pom.xml}"},
					{GlobPattern: "**/*.jar"},
				},
			},
		}},
	}, nil)
	return nil
}

func (s *Server) shutdown(*glsp.Context) error {
	if s.engine != nil {
		return s.engine.Close()
	}
	return nil
}

func (s *Server) setTrace(*glsp.Context, *protocol.SetTraceParams) error {
	return nil
}

// decodeConfig round-trips the raw initialization options through JSON.
func decodeConfig(raw any, log *slog.Logger) Config {
	var cfg Config
	if raw == nil {
		return cfg
	}
	b, err := json.Marshal(raw)
	if err == nil {
		err = json.Unmarshal(b, &cfg)
	}
	if err != nil {
		log.Warn("invalid init_options, using defaults", "error", err)
		return Config{}
	}
	return cfg
}

// rootPath extracts the workspace root from initialize params.
func rootPath(params *protocol.InitializeParams) string {
	if params.RootURI != nil {
		return uriToPath(string(*params.RootURI))
	}
	if params.RootPath != nil {
		return *params.RootPath
	}
	wd, _ := os.Getwd()
	return wd
}

// dataDir is the per-user state directory for the index and decompiled
// sources.
func dataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, serverName)
	}
	return filepath.Join(os.TempDir(), serverName)
}

// uriToPath converts a file:// URI to a filesystem path.
func uriToPath(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return strings.TrimPrefix(uri, "file://")
}

// pathToURI converts a filesystem path to a file:// URI.
func pathToURI(path string) string {
	return "file://" + path
}
