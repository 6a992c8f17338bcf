// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ruff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.lsp.dev/protocol"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/ruffls/services/lsp"
)

// PluginName is the name the plugin registers under.
const PluginName = "ruff"

// Plugin connects the ruff bridge to the language server host.
//
// Description:
//
//	Resolves settings per document, runs ruff and maps the results to
//	diagnostics, formatting edits and code actions. A missing ruff
//	executable disables the plugin until the next settings change so the
//	editor is not flooded with failures. Other run failures are shown at
//	most once a minute.
//
// Thread Safety: Safe for concurrent use.
type Plugin struct {
	runner   *Runner
	resolver *Resolver
	notifier lsp.Notifier
	logger   *slog.Logger
	defaults Settings
	watch    bool
	watcher  *ConfigWatcher

	mu       sync.Mutex
	disabled bool

	configWarn rate.Sometimes
	runWarn    rate.Sometimes
}

// PluginOption configures the Plugin.
type PluginOption func(*Plugin)

// WithNotifier sets where user-facing messages go.
func WithNotifier(n lsp.Notifier) PluginOption {
	return func(p *Plugin) {
		p.notifier = n
	}
}

// WithPluginLogger sets the logger.
func WithPluginLogger(logger *slog.Logger) PluginOption {
	return func(p *Plugin) {
		p.logger = logger
	}
}

// WithRunner replaces the ruff runner.
func WithRunner(r *Runner) PluginOption {
	return func(p *Plugin) {
		p.runner = r
	}
}

// WithSettingsDefaults sets the settings that apply where the editor
// leaves a field unset.
func WithSettingsDefaults(s Settings) PluginOption {
	return func(p *Plugin) {
		p.defaults = s
	}
}

// WithConfigWatch enables watching project configuration files. Changes
// drop cached resolutions.
func WithConfigWatch(enabled bool) PluginOption {
	return func(p *Plugin) {
		p.watch = enabled
	}
}

// NewPlugin creates the ruff plugin.
//
// Description:
//
//	Call Start to begin watching configuration files and Close when the
//	server stops.
//
// Inputs:
//
//	opts - Optional configuration options
//
// Outputs:
//
//	*Plugin - The plugin, ready to register
func NewPlugin(opts ...PluginOption) *Plugin {
	p := &Plugin{
		logger:     slog.Default(),
		configWarn: rate.Sometimes{First: 1, Interval: time.Minute},
		runWarn:    rate.Sometimes{First: 1, Interval: time.Minute},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runner == nil {
		p.runner = NewRunner(WithLogger(p.logger))
	}

	resolverOpts := []ResolverOption{
		WithResolverLogger(p.logger),
		WithDefaults(p.defaults),
	}
	if p.watch {
		w, err := NewConfigWatcher(p.onConfigChange, &ConfigWatcherOptions{Logger: p.logger})
		if err != nil {
			p.logger.Warn("Config watching unavailable", slog.String("error", err.Error()))
		} else {
			p.watcher = w
			resolverOpts = append(resolverOpts, WithDirWatcher(w))
		}
	}
	p.resolver = NewResolver("", resolverOpts...)
	return p
}

// Start begins watching configuration files, if enabled.
func (p *Plugin) Start(ctx context.Context) {
	if p.watcher != nil {
		p.watcher.Start(ctx)
	}
}

// Close stops the configuration watcher.
func (p *Plugin) Close() {
	if p.watcher != nil {
		p.watcher.Stop()
	}
}

func (p *Plugin) onConfigChange() {
	p.logger.Info("Project configuration changed, dropping cached settings")
	p.resolver.Invalidate()
}

// Name implements lsp.Plugin.
func (p *Plugin) Name() string {
	return PluginName
}

// =============================================================================
// SETTINGS
// =============================================================================

// OnSettings implements lsp.Plugin.
//
// Description:
//
//	Replaces the editor settings, re-enables a plugin disabled by a
//	missing executable and forgets probed ruff versions. The executable
//	is then probed with --version; if it is not a working ruff the plugin
//	is disabled again and the user is told once.
//
// Errors:
//
//	ErrInvalidSettings - The settings block is malformed; the previous
//	settings stay in effect
func (p *Plugin) OnSettings(ctx context.Context, ws lsp.Workspace) error {
	p.resolver.SetRoot(ws.Root)

	s, err := ParseSettings(ws.Settings)
	if err != nil {
		p.notify(ctx, protocol.MessageTypeError, fmt.Sprintf("Ruff: %v", err))
		return err
	}
	p.resolver.Update(s)
	p.runner.ResetVersions()

	p.mu.Lock()
	p.disabled = false
	p.mu.Unlock()

	current := p.resolver.Settings()
	if !current.IsEnabled() {
		p.logger.Info("Ruff settings applied", slog.String("root", ws.Root), slog.Bool("enabled", false))
		return nil
	}

	version, err := p.runner.Probe(ctx, p.runner.BaseCommand(current))
	if err != nil {
		p.handleRunError(ctx, err)
	}
	p.logger.Info("Ruff settings applied",
		slog.String("root", ws.Root),
		slog.String("version", versionString(version)),
		slog.Bool("enabled", !p.isDisabled()),
	)
	return nil
}

// settingsFor resolves the settings for a document. It reports false when
// the plugin should not act on the document.
func (p *Plugin) settingsFor(ctx context.Context, doc lsp.Document) (Settings, bool) {
	if p.isDisabled() {
		return Settings{}, false
	}
	if doc.LanguageID != "" && doc.LanguageID != "python" {
		return Settings{}, false
	}

	resolved, err := p.resolver.Resolve(doc.Path)
	if errors.Is(err, ErrConfigNotFound) {
		p.configWarn.Do(func() {
			p.logger.Warn("Configured ruff config does not exist, ignoring it",
				slog.String("error", err.Error()),
			)
			p.notify(ctx, protocol.MessageTypeWarning, fmt.Sprintf("Ruff: %v", err))
		})
	}
	if !resolved.Settings.IsEnabled() {
		return Settings{}, false
	}
	return resolved.Settings, true
}

func (p *Plugin) isDisabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disabled
}

// handleRunError disables the plugin once ruff cannot be started and
// surfaces other failures, throttled. Callers still return empty results.
func (p *Plugin) handleRunError(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	if !errors.Is(err, ErrExecutableNotFound) {
		p.runWarn.Do(func() {
			p.notify(ctx, protocol.MessageTypeWarning,
				fmt.Sprintf("Ruff failed: %s. See the server log for details.", failureSummary(err)))
		})
		return
	}

	p.mu.Lock()
	already := p.disabled
	p.disabled = true
	p.mu.Unlock()
	if already {
		return
	}

	p.logger.Error("Ruff executable unusable, disabling until settings change",
		slog.String("error", err.Error()),
	)
	p.notify(ctx, protocol.MessageTypeError,
		"Ruff: cannot run ruff. Install ruff or set the executable setting. Linting is disabled until the settings change.")
}

// failureSummary shortens a run error for display: the first line ruff
// wrote to stderr, or the cause without the command line.
func failureSummary(err error) string {
	var runErr *RunError
	if !errors.As(err, &runErr) {
		return err.Error()
	}
	for _, line := range strings.Split(runErr.Stderr, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return runErr.Err.Error()
}

func (p *Plugin) notify(ctx context.Context, typ protocol.MessageType, message string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.ShowMessage(ctx, typ, message); err != nil {
		p.logger.Debug("Failed to show message", slog.String("error", err.Error()))
	}
}

// =============================================================================
// LINTING
// =============================================================================

// OnOpen implements lsp.Plugin.
func (p *Plugin) OnOpen(ctx context.Context, doc lsp.Document) ([]protocol.Diagnostic, error) {
	return p.lint(ctx, doc), nil
}

// OnChange implements lsp.Plugin.
func (p *Plugin) OnChange(ctx context.Context, doc lsp.Document) ([]protocol.Diagnostic, error) {
	return p.lint(ctx, doc), nil
}

// OnSave implements lsp.Plugin.
func (p *Plugin) OnSave(ctx context.Context, doc lsp.Document) ([]protocol.Diagnostic, error) {
	return p.lint(ctx, doc), nil
}

// OnClose implements lsp.Plugin.
func (p *Plugin) OnClose(_ context.Context, _ lsp.Document) error {
	return nil
}

func (p *Plugin) lint(ctx context.Context, doc lsp.Document) []protocol.Diagnostic {
	settings, ok := p.settingsFor(ctx, doc)
	if !ok {
		return []protocol.Diagnostic{}
	}

	findings, err := p.runner.Check(ctx, doc.Path, []byte(doc.Text), settings)
	if err != nil {
		p.handleRunError(ctx, err)
		return []protocol.Diagnostic{}
	}
	return Diagnostics(findings, settings.Severities)
}

// =============================================================================
// FORMATTING
// =============================================================================

// OnFormat implements lsp.Plugin.
//
// Description:
//
//	Runs `ruff format`. When format rules are configured, a second
//	`ruff check --fix` pass applies only those rules to the formatted
//	text, e.g. ["I"] to sort imports while formatting. No edit is
//	returned when formatting fails or changes nothing.
func (p *Plugin) OnFormat(ctx context.Context, doc lsp.Document, _ protocol.FormattingOptions) ([]protocol.TextEdit, error) {
	settings, ok := p.settingsFor(ctx, doc)
	if !ok || !settings.IsFormatEnabled() {
		return nil, nil
	}

	formatted, err := p.runner.Format(ctx, doc.Path, []byte(doc.Text), settings)
	if err != nil {
		p.handleRunError(ctx, err)
		return nil, nil
	}
	if formatted == "" {
		return nil, nil
	}

	if len(settings.Format) > 0 {
		fixed, err := p.runner.Fix(ctx, doc.Path, []byte(formatted), Settings{
			Executable: settings.Executable,
			Select:     settings.Format,
			Ignore:     []string{"ALL"},
		})
		if err != nil {
			p.handleRunError(ctx, err)
			return nil, nil
		}
		if fixed != "" {
			formatted = fixed
		}
	}

	if formatted == doc.Text {
		return nil, nil
	}
	return []protocol.TextEdit{{Range: doc.FullRange(), NewText: formatted}}, nil
}

// =============================================================================
// CODE ACTIONS
// =============================================================================

// OnCodeAction implements lsp.Plugin.
//
// Description:
//
//	For every ruff diagnostic in the request: a "Disable for this line"
//	action, plus the diagnostic's own fix when it has one (I001 fixes
//	become organize imports). A fresh check then adds organize imports
//	if the request did not carry one, and "Fix All" when anything is
//	fixable. Fix All never applies unsafe fixes.
//
// Outputs:
//
//	[]protocol.CodeAction - Never nil
func (p *Plugin) OnCodeAction(ctx context.Context, doc lsp.Document, params protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	actions := make([]protocol.CodeAction, 0)
	settings, ok := p.settingsFor(ctx, doc)
	if !ok {
		return actions, nil
	}
	only := params.Context.Only

	hasOrganizeImports := false
	for _, d := range params.Context.Diagnostics {
		if d.Source != diagnosticSource {
			continue
		}
		actions = append(actions, disableAction(doc, d))
		recordActions(ctx, actionKindDisable, 1)

		fix, ok := fixFromData(d.Data)
		if !ok {
			continue
		}
		message, ok := fixMessage(fix, settings.UnsafeFixes)
		if !ok {
			continue
		}
		if diagnosticCode(d) == codeUnsortedImports {
			actions = append(actions, organizeImportsAction(doc, d, fix, message))
			hasOrganizeImports = true
			recordActions(ctx, actionKindImports, 1)
		} else {
			actions = append(actions, fixAction(doc, d, fix, message))
			recordActions(ctx, actionKindFix, 1)
		}
	}

	if !wantsKind(only, protocol.SourceOrganizeImports) && !wantsKind(only, lsp.SourceFixAll) {
		return filterKinds(actions, only), nil
	}

	findings, err := p.runner.Check(ctx, doc.Path, []byte(doc.Text), settings)
	if err != nil {
		p.handleRunError(ctx, err)
		return filterKinds(actions, only), nil
	}

	var fixable, imports []Finding
	for _, f := range findings {
		if !f.HasFix() {
			continue
		}
		fixable = append(fixable, f)
		if f.Code == codeUnsortedImports {
			imports = append(imports, f)
		}
	}

	if !hasOrganizeImports && len(imports) > 0 {
		f := imports[0]
		if message, ok := fixMessage(f.Fix, settings.UnsafeFixes); ok {
			d := NewDiagnostic(f, settings.Severities)
			actions = append(actions,
				organizeImportsAction(doc, d, f.Fix, message),
				disableAction(doc, d),
			)
			recordActions(ctx, actionKindImports, 1)
			recordActions(ctx, actionKindDisable, 1)
		}
	}

	if len(fixable) > 0 {
		fixed, err := p.runner.FixSafe(ctx, doc.Path, []byte(doc.Text), settings)
		if err != nil {
			p.handleRunError(ctx, err)
		} else if action, ok := fixAllAction(doc, fixed); ok {
			actions = append(actions, action)
			recordActions(ctx, actionKindFixAll, 1)
		}
	}

	return filterKinds(actions, only), nil
}
