// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/ruffls/services/telemetry"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// SourceFixAll is the code action kind for "fix everything" actions.
// go.lsp.dev/protocol does not define it.
const SourceFixAll protocol.CodeActionKind = "source.fixAll"

// =============================================================================
// SERVER
// =============================================================================

// Server is a language server that forwards document events to plugins.
//
// Description:
//
//	Implements the LSP lifecycle (initialize, shutdown, exit), full
//	document sync, formatting, code actions and configuration changes.
//	Diagnostics returned by plugins are pushed with
//	textDocument/publishDiagnostics.
//
// Thread Safety: Safe for concurrent use. Messages are handled one at a
// time in arrival order.
type Server struct {
	registry *Registry
	docs     *DocumentStore
	logger   *slog.Logger
	name     string
	version  string

	mu          sync.Mutex
	conn        jsonrpc2.Conn
	initialized bool
	shutdown    bool
	exited      bool
	exitErr     error
	root        string
	settings    json.RawMessage
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithServerInfo sets the name and version reported on initialize.
func WithServerInfo(name, version string) ServerOption {
	return func(s *Server) {
		s.name = name
		s.version = version
	}
}

// NewServer creates a server dispatching to registry.
func NewServer(registry *Registry, opts ...ServerOption) *Server {
	s := &Server{
		registry: registry,
		docs:     NewDocumentStore(),
		logger:   slog.Default(),
		name:     "ruffls",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Documents returns the open document store.
func (s *Server) Documents() *DocumentStore {
	return s.docs
}

// Serve runs the message loop on rwc until the client exits, the stream
// closes or ctx is canceled.
//
// Description:
//
//	Frames messages with Content-Length headers. Returns nil after a
//	clean shutdown/exit sequence.
//
// Inputs:
//
//	ctx - Context for cancellation
//	rwc - The transport, usually Stdio()
//
// Outputs:
//
//	error - ErrExitWithoutShutdown, a stream error other than EOF, or ctx.Err()
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	conn.Go(ctx, s.Handler())

	select {
	case <-ctx.Done():
		_ = conn.Close()
		<-conn.Done()
		return ctx.Err()
	case <-conn.Done():
	}

	s.mu.Lock()
	exited, exitErr := s.exited, s.exitErr
	s.mu.Unlock()
	if exited {
		return exitErr
	}
	if err := conn.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Handler returns the jsonrpc2 handler for this server.
func (s *Server) Handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		ctx, span := startRequestSpan(ctx, req.Method())
		defer span.End()
		start := time.Now()

		success := true
		tracked := func(ctx context.Context, result interface{}, err error) error {
			if err != nil {
				success = false
				telemetry.RecordError(span, err)
				telemetry.LoggerWithTrace(ctx, s.logger).Debug("Request failed",
					slog.String("method", req.Method()),
					slog.String("error", err.Error()),
				)
			}
			return reply(ctx, result, err)
		}

		err := s.dispatch(ctx, tracked, req)
		if success && err == nil {
			telemetry.SetSpanOK(span)
		}
		recordRequestMetrics(ctx, req.Method(), time.Since(start), success && err == nil)
		return err
	}
}

func (s *Server) dispatch(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	method := req.Method()

	s.mu.Lock()
	initialized, shutdown := s.initialized, s.shutdown
	s.mu.Unlock()

	switch {
	case method == protocol.MethodExit:
		return s.handleExit(ctx, reply)
	case method == protocol.MethodInitialize:
		return s.handleInitialize(ctx, reply, req)
	case !initialized:
		return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.ServerNotInitialized, "server not initialized"))
	case shutdown:
		return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server is shutting down"))
	}

	switch method {
	case protocol.MethodInitialized:
		s.logger.Debug("Client initialized")
		return reply(ctx, nil, nil)
	case protocol.MethodShutdown:
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		s.logger.Info("Shutdown requested")
		return reply(ctx, nil, nil)
	case protocol.MethodTextDocumentDidOpen:
		return s.handleDidOpen(ctx, reply, req)
	case protocol.MethodTextDocumentDidChange:
		return s.handleDidChange(ctx, reply, req)
	case protocol.MethodTextDocumentDidSave:
		return s.handleDidSave(ctx, reply, req)
	case protocol.MethodTextDocumentDidClose:
		return s.handleDidClose(ctx, reply, req)
	case protocol.MethodTextDocumentFormatting:
		return s.handleFormatting(ctx, reply, req)
	case protocol.MethodTextDocumentCodeAction:
		return s.handleCodeAction(ctx, reply, req)
	case protocol.MethodWorkspaceDidChangeConfiguration:
		return s.handleDidChangeConfiguration(ctx, reply, req)
	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

// decodeParams unmarshals request params or replies InvalidParams.
func decodeParams(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request, v interface{}) (bool, error) {
	if err := json.Unmarshal(req.Params(), v); err != nil {
		return false, reply(ctx, nil, fmt.Errorf("%s: %w: %v", req.Method(), jsonrpc2.ErrInvalidParams, err))
	}
	return true, nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.InitializeParams
	if ok, err := decodeParams(ctx, reply, req, &params); !ok {
		return err
	}

	root := rootFromParams(&params)
	var settings json.RawMessage
	if params.InitializationOptions != nil {
		if raw, err := json.Marshal(params.InitializationOptions); err == nil {
			settings = raw
		}
	}

	s.mu.Lock()
	s.initialized = true
	s.root = root
	s.settings = settings
	s.mu.Unlock()

	client := ""
	if params.ClientInfo != nil {
		client = params.ClientInfo.Name
	}
	s.logger.Info("Initializing",
		slog.String("root", root),
		slog.String("client", client),
	)

	s.registry.Configure(ctx, Workspace{Root: root, Settings: settings})

	return reply(ctx, protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{IncludeText: true},
			},
			CodeActionProvider: &protocol.CodeActionOptions{
				CodeActionKinds: []protocol.CodeActionKind{
					protocol.QuickFix,
					protocol.SourceOrganizeImports,
					SourceFixAll,
				},
			},
			DocumentFormattingProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{Name: s.name, Version: s.version},
	}, nil)
}

// rootFromParams picks the workspace root: first workspace folder, then
// rootUri, then the deprecated rootPath.
func rootFromParams(params *protocol.InitializeParams) string {
	if len(params.WorkspaceFolders) > 0 {
		if p := PathFromURI(protocol.DocumentURI(params.WorkspaceFolders[0].URI)); p != "" {
			return p
		}
	}
	if params.RootURI != "" {
		if p := PathFromURI(params.RootURI); p != "" {
			return p
		}
	}
	return params.RootPath
}

func (s *Server) handleExit(ctx context.Context, reply jsonrpc2.Replier) error {
	s.mu.Lock()
	s.exited = true
	if !s.shutdown {
		s.exitErr = ErrExitWithoutShutdown
	}
	conn := s.conn
	s.mu.Unlock()

	s.logger.Info("Exit requested")
	err := reply(ctx, nil, nil)
	if conn != nil {
		_ = conn.Close()
	}
	return err
}

// =============================================================================
// DOCUMENT SYNC
// =============================================================================

func (s *Server) handleDidOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidOpenTextDocumentParams
	if ok, err := decodeParams(ctx, reply, req, &params); !ok {
		return err
	}
	doc := s.docs.Open(params.TextDocument)
	s.lintAndPublish(ctx, LintOnOpen, doc)
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidChange(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidChangeTextDocumentParams
	if ok, err := decodeParams(ctx, reply, req, &params); !ok {
		return err
	}
	doc, err := s.docs.Change(params.TextDocument.URI, params.TextDocument.Version, params.ContentChanges)
	if err != nil {
		s.logger.Warn("Change for unknown document", slog.String("error", err.Error()))
		return reply(ctx, nil, nil)
	}
	s.lintAndPublish(ctx, LintOnChange, doc)
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidSave(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidSaveTextDocumentParams
	if ok, err := decodeParams(ctx, reply, req, &params); !ok {
		return err
	}
	doc, err := s.docs.Save(params.TextDocument.URI, params.Text)
	if err != nil {
		s.logger.Warn("Save for unknown document", slog.String("error", err.Error()))
		return reply(ctx, nil, nil)
	}
	s.lintAndPublish(ctx, LintOnSave, doc)
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidCloseTextDocumentParams
	if ok, err := decodeParams(ctx, reply, req, &params); !ok {
		return err
	}
	doc, ok := s.docs.Close(params.TextDocument.URI)
	if ok {
		s.registry.Close(ctx, doc)
		if err := s.PublishDiagnostics(ctx, doc, []protocol.Diagnostic{}); err != nil {
			s.logger.Warn("Failed to clear diagnostics", slog.String("error", err.Error()))
		}
	}
	return reply(ctx, nil, nil)
}

// =============================================================================
// LANGUAGE FEATURES
// =============================================================================

func (s *Server) handleFormatting(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DocumentFormattingParams
	if ok, err := decodeParams(ctx, reply, req, &params); !ok {
		return err
	}
	doc, ok := s.docs.Get(params.TextDocument.URI)
	if !ok {
		return reply(ctx, nil, nil)
	}
	edits := s.registry.Format(ctx, doc, params.Options)
	if len(edits) == 0 {
		return reply(ctx, nil, nil)
	}
	return reply(ctx, edits, nil)
}

func (s *Server) handleCodeAction(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.CodeActionParams
	if ok, err := decodeParams(ctx, reply, req, &params); !ok {
		return err
	}
	doc, ok := s.docs.Get(params.TextDocument.URI)
	if !ok {
		return reply(ctx, []protocol.CodeAction{}, nil)
	}
	return reply(ctx, s.registry.CodeActions(ctx, doc, params), nil)
}

func (s *Server) handleDidChangeConfiguration(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params struct {
		Settings json.RawMessage `json:"settings"`
	}
	if ok, err := decodeParams(ctx, reply, req, &params); !ok {
		return err
	}

	s.mu.Lock()
	s.settings = params.Settings
	root := s.root
	s.mu.Unlock()

	s.logger.Info("Configuration changed")
	s.registry.Configure(ctx, Workspace{Root: root, Settings: params.Settings})

	for _, doc := range s.docs.All() {
		s.lintAndPublish(ctx, LintOnChange, doc)
	}
	return reply(ctx, nil, nil)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func (s *Server) lintAndPublish(ctx context.Context, event LintEvent, doc Document) {
	diags := s.registry.Lint(ctx, event, doc)
	if err := s.PublishDiagnostics(ctx, doc, diags); err != nil {
		s.logger.Warn("Failed to publish diagnostics",
			slog.String("uri", string(doc.URI)),
			slog.String("error", err.Error()),
		)
	}
}

// PublishDiagnostics sends the diagnostics for a document.
func (s *Server) PublishDiagnostics(ctx context.Context, doc Document, diags []protocol.Diagnostic) error {
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	var version uint32
	if doc.Version > 0 {
		version = uint32(doc.Version)
	}
	recordPublished(ctx, len(diags))
	return s.notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     version,
		Diagnostics: diags,
	})
}

// ShowMessage implements Notifier.
func (s *Server) ShowMessage(ctx context.Context, typ protocol.MessageType, message string) error {
	return s.notify(ctx, protocol.MethodWindowShowMessage, &protocol.ShowMessageParams{
		Type:    typ,
		Message: message,
	})
}

// LogMessage implements Notifier.
func (s *Server) LogMessage(ctx context.Context, typ protocol.MessageType, message string) error {
	return s.notify(ctx, protocol.MethodWindowLogMessage, &protocol.LogMessageParams{
		Type:    typ,
		Message: message,
	})
}

func (s *Server) notify(ctx context.Context, method string, params interface{}) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Notify(ctx, method, params)
}
