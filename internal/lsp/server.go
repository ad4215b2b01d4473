package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"orlint/internal/analyzer"
	"orlint/internal/config"
	"orlint/internal/logx"
	"orlint/internal/rules"
	"orlint/internal/version"
	"orlint/internal/workspace"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

const (
	sourceName      = "orlint"
	commandApplyFix = "orlint.applyFix"
)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	// Registry defaults to the built-in and custom rules.
	Registry *rules.Registry
	// Overrides are applied on top of every config file, as on the command line.
	Overrides *config.File
	// Root bounds config lookup; empty means detect it from initialize.
	Root     string
	Debounce time.Duration
	// MaxDiagnostics caps published diagnostics per file; 0 means 100.
	MaxDiagnostics int
	Analyzer       analyzer.Options
	// WatchConfig re-analyzes open files when a config file changes on disk.
	WatchConfig bool
	Logger      *log.Logger
}

// Server handles stdio JSON-RPC for the orlint language server. Document
// state lives in a workspace.Coordinator; the server only translates.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex
	opts   ServerOptions
	logger *log.Logger
	nextID atomic.Int64

	// pubMu упорядочивает публикацию и очистку диагностик одного документа
	pubMu sync.Mutex

	mu                sync.Mutex
	coord             *workspace.Coordinator
	stop              func()
	openDocs          map[string]string
	versions          map[string]int
	published         map[string]struct{}
	shutdownRequested bool
	maxDiagnostics    int
	trace             bool

	baseCtx context.Context
	wg      sync.WaitGroup
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	maxDiagnostics := opts.MaxDiagnostics
	if maxDiagnostics <= 0 {
		maxDiagnostics = 100
	}
	if opts.Registry == nil {
		opts.Registry = rules.MustDefault()
	}
	return &Server{
		in:             bufio.NewReader(in),
		out:            bufio.NewWriter(out),
		opts:           opts,
		logger:         logx.OrDiscard(opts.Logger).WithPrefix("lsp"),
		openDocs:       make(map[string]string),
		versions:       make(map[string]int),
		published:      make(map[string]struct{}),
		maxDiagnostics: maxDiagnostics,
		baseCtx:        context.Background(),
	}
}

// Run serves LSP requests until exit or EOF.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	defer s.stopWorkspace()
	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Warn("failed to parse message", "err", err)
			continue
		}
		if msg.Method == "" {
			// ответ клиента на наш запрос (workspace/applyEdit)
			if msg.Error != nil {
				s.logger.Warn("client returned an error", "code", msg.Error.Code, "message", msg.Error.Message)
			}
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		if s.isShutdown() {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "workspace/executeCommand":
		return s.handleExecuteCommand(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/codeAction":
		return s.handleCodeAction(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	root := s.opts.Root
	if root == "" && params.RootURI != "" {
		root = uriToPath(params.RootURI)
	}
	if root == "" && params.RootPath != "" {
		root = params.RootPath
	}
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = uriToPath(params.WorkspaceFolders[0].URI)
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		s.startWorkspace(detectRoot(root, ""))
	}
	s.applySettings(params.InitializationOptions)

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2,
				Save:      saveOptions{IncludeText: true},
			},
			CodeActionProvider:     &codeActionOptions{CodeActionKinds: []string{"quickfix"}},
			ExecuteCommandProvider: &executeCommandOptions{Commands: []string{commandApplyFix}},
		},
		ServerInfo: serverInfo{Name: sourceName, Version: version.Version},
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.stopWorkspace()
	s.clearPublishedDiagnostics()
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdownRequested
}

// startWorkspace creates the coordinator for root and starts forwarding its
// events. Later calls are no-ops.
func (s *Server) startWorkspace(root string) *workspace.Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coord != nil {
		return s.coord
	}
	reg := s.opts.Registry
	resolver := config.NewResolver(config.Defaults(reg), config.ResolverOptions{
		Root:      root,
		Overrides: s.opts.Overrides,
		Logger:    s.logger,
	})
	coord := workspace.New(s.baseCtx, workspace.Options{
		Registry: reg,
		Resolver: resolver,
		Debounce: s.opts.Debounce,
		Analyzer: s.opts.Analyzer,
		Logger:   s.logger,
	})
	events, unsubscribe := coord.Subscribe(64)
	ctx, cancel := context.WithCancel(s.baseCtx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for ev := range events {
			s.publish(ev.Path, ev.Snapshot)
		}
	}()
	if s.opts.WatchConfig {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := coord.WatchConfig(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("config watch stopped", "err", err)
			}
		}()
	}
	s.coord = coord
	s.stop = func() {
		cancel()
		unsubscribe()
		coord.Shutdown()
	}
	s.logger.Debug("workspace started", "root", root)
	return coord
}

// workspaceFor returns the coordinator, starting one rooted near path when
// the client did not send a workspace root.
func (s *Server) workspaceFor(path string) *workspace.Coordinator {
	s.mu.Lock()
	coord := s.coord
	s.mu.Unlock()
	if coord != nil {
		return coord
	}
	return s.startWorkspace(detectRoot("", path))
}

func (s *Server) stopWorkspace() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
	s.wg.Wait()
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	path := uriToPath(uri)
	s.mu.Lock()
	s.openDocs[uri] = params.TextDocument.Text
	s.versions[uri] = params.TextDocument.Version
	s.mu.Unlock()
	if err := s.workspaceFor(path).Open(path, []byte(params.TextDocument.Text), params.TextDocument.Version); err != nil {
		s.logger.Warn("didOpen", "uri", uri, "err", err)
	}
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	text, open := s.openDocs[uri]
	if !open {
		s.mu.Unlock()
		return nil
	}
	text = applyChanges(text, params.ContentChanges)
	s.openDocs[uri] = text
	s.versions[uri] = params.TextDocument.Version
	coord := s.coord
	trace := s.trace
	s.mu.Unlock()
	if trace {
		s.logger.Info("didChange", "uri", uri, "version", params.TextDocument.Version, "changes", len(params.ContentChanges))
	}
	if coord == nil {
		return nil
	}
	if err := coord.Edit(uriToPath(uri), []byte(text), params.TextDocument.Version); err != nil {
		s.logger.Warn("didChange", "uri", uri, "err", err)
	}
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	path := uriToPath(uri)
	s.mu.Lock()
	_, open := s.openDocs[uri]
	if open && params.Text != nil {
		s.openDocs[uri] = *params.Text
	}
	version := s.versions[uri]
	coord := s.coord
	s.mu.Unlock()
	if !open || coord == nil {
		return nil
	}
	if params.Text != nil {
		if err := coord.Edit(path, []byte(*params.Text), version); err != nil {
			s.logger.Warn("didSave", "uri", uri, "err", err)
		}
	}
	if err := coord.Save(path); err != nil {
		s.logger.Warn("didSave", "uri", uri, "err", err)
	}
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	delete(s.openDocs, uri)
	delete(s.versions, uri)
	_, hadDiagnostics := s.published[uri]
	delete(s.published, uri)
	coord := s.coord
	s.mu.Unlock()
	if coord != nil {
		if err := coord.Close(uriToPath(uri)); err != nil && !errors.Is(err, workspace.ErrNotOpen) {
			s.logger.Warn("didClose", "uri", uri, "err", err)
		}
	}
	if hadDiagnostics {
		if err := s.sendPublish(uri, nil, nil); err != nil {
			s.logger.Warn("failed to clear diagnostics", "err", err)
		}
	}
	return nil
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

// sendRequest sends a server-to-client request; the response is ignored.
func (s *Server) sendRequest(method string, params any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      s.nextID.Add(1),
		"method":  method,
		"params":  params,
	}
	return s.send(msg)
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}
