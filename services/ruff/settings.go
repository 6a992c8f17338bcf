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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Settings is the typed plugin configuration sent by the editor.
//
// Every field is optional. Unset list fields are nil, unset scalars are
// their zero value, and the two booleans that default to true are
// pointers so "unset" and "false" stay distinguishable.
//
// Thread Safety: Treat as immutable once resolved. Use Clone before
// modifying a shared value.
type Settings struct {
	Enabled        *bool             `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Executable     string            `json:"executable,omitempty" yaml:"executable,omitempty"`
	Config         string            `json:"config,omitempty" yaml:"config,omitempty"`
	LineLength     *int              `json:"lineLength,omitempty" yaml:"lineLength,omitempty" validate:"omitempty,min=1,max=320"`
	Exclude        []string          `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Select         []string          `json:"select,omitempty" yaml:"select,omitempty" validate:"omitempty,dive,required"`
	ExtendSelect   []string          `json:"extendSelect,omitempty" yaml:"extendSelect,omitempty" validate:"omitempty,dive,required"`
	Ignore         []string          `json:"ignore,omitempty" yaml:"ignore,omitempty" validate:"omitempty,dive,required"`
	ExtendIgnore   []string          `json:"extendIgnore,omitempty" yaml:"extendIgnore,omitempty" validate:"omitempty,dive,required"`
	PerFileIgnores PerFileIgnores    `json:"perFileIgnores,omitempty" yaml:"perFileIgnores,omitempty"`
	Format         []string          `json:"format,omitempty" yaml:"format,omitempty"`
	FormatEnabled  *bool             `json:"formatEnabled,omitempty" yaml:"formatEnabled,omitempty"`
	UnsafeFixes    bool              `json:"unsafeFixes,omitempty" yaml:"unsafeFixes,omitempty"`
	Severities     SeverityOverrides `json:"severities,omitempty" yaml:"severities,omitempty"`
	Preview        bool              `json:"preview,omitempty" yaml:"preview,omitempty"`
	TargetVersion  string            `json:"targetVersion,omitempty" yaml:"targetVersion,omitempty" validate:"omitempty,startswith=py"`
}

// IsEnabled reports whether linting is enabled. Defaults to true.
func (s Settings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// IsFormatEnabled reports whether formatting is enabled. Defaults to true.
func (s Settings) IsFormatEnabled() bool {
	return s.FormatEnabled == nil || *s.FormatEnabled
}

// Clone returns a deep copy of the settings.
func (s Settings) Clone() Settings {
	out := s
	out.Enabled = clonePtr(s.Enabled)
	out.LineLength = clonePtr(s.LineLength)
	out.FormatEnabled = clonePtr(s.FormatEnabled)
	out.Exclude = slices.Clone(s.Exclude)
	out.Select = slices.Clone(s.Select)
	out.ExtendSelect = slices.Clone(s.ExtendSelect)
	out.Ignore = slices.Clone(s.Ignore)
	out.ExtendIgnore = slices.Clone(s.ExtendIgnore)
	out.Format = slices.Clone(s.Format)
	out.Severities = slices.Clone(s.Severities)
	if s.PerFileIgnores != nil {
		out.PerFileIgnores = make(PerFileIgnores, len(s.PerFileIgnores))
		for i, p := range s.PerFileIgnores {
			out.PerFileIgnores[i] = PerFileIgnore{Pattern: p.Pattern, Codes: slices.Clone(p.Codes)}
		}
	}
	return out
}

// WithDefaults fills every unset field of s from defaults.
//
// Description:
//
//	Used to layer editor settings over the --settings file given on the
//	command line. Fields set in s always win.
//
// Inputs:
//
//	defaults - Fallback values
//
// Outputs:
//
//	Settings - The merged settings (s is not modified)
func (s Settings) WithDefaults(defaults Settings) Settings {
	out := s.Clone()
	d := defaults.Clone()
	if out.Enabled == nil {
		out.Enabled = d.Enabled
	}
	if out.Executable == "" {
		out.Executable = d.Executable
	}
	if out.Config == "" {
		out.Config = d.Config
	}
	if out.LineLength == nil {
		out.LineLength = d.LineLength
	}
	if out.Exclude == nil {
		out.Exclude = d.Exclude
	}
	if out.Select == nil {
		out.Select = d.Select
	}
	if out.ExtendSelect == nil {
		out.ExtendSelect = d.ExtendSelect
	}
	if out.Ignore == nil {
		out.Ignore = d.Ignore
	}
	if out.ExtendIgnore == nil {
		out.ExtendIgnore = d.ExtendIgnore
	}
	if out.PerFileIgnores == nil {
		out.PerFileIgnores = d.PerFileIgnores
	}
	if out.Format == nil {
		out.Format = d.Format
	}
	if out.FormatEnabled == nil {
		out.FormatEnabled = d.FormatEnabled
	}
	if !out.UnsafeFixes {
		out.UnsafeFixes = d.UnsafeFixes
	}
	if out.Severities == nil {
		out.Severities = d.Severities
	}
	if !out.Preview {
		out.Preview = d.Preview
	}
	if out.TargetVersion == "" {
		out.TargetVersion = d.TargetVersion
	}
	return out
}

// ProjectScoped returns the subset of settings that survives when a project
// configuration file exists.
//
// Description:
//
//	Rule selection, exclusions, line length, per-file ignores, the config
//	path, preview and target version belong to the project file. The
//	plugin keeps only the options ruff cannot read from it: enabled,
//	executable, unsafeFixes, the extendSelect/extendIgnore override lists,
//	format rules, formatEnabled and severities.
//
// Outputs:
//
//	Settings - A new value; s is not modified
func (s Settings) ProjectScoped() Settings {
	c := s.Clone()
	return Settings{
		Enabled:       c.Enabled,
		Executable:    c.Executable,
		UnsafeFixes:   c.UnsafeFixes,
		ExtendIgnore:  c.ExtendIgnore,
		ExtendSelect:  c.ExtendSelect,
		Format:        c.Format,
		FormatEnabled: c.FormatEnabled,
		Severities:    c.Severities,
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// =============================================================================
// ORDERED MAPS
// =============================================================================

// SeverityOverride maps a code prefix to a severity letter.
type SeverityOverride struct {
	Pattern string
	Level   string
}

// SeverityOverrides keeps overrides in declaration order.
//
// Editors send severities as a JSON object. Order matters for tie-breaking,
// so the object is decoded key by key instead of into a Go map.
type SeverityOverrides []SeverityOverride

// UnmarshalJSON decodes a JSON object preserving key order.
func (o *SeverityOverrides) UnmarshalJSON(data []byte) error {
	var out SeverityOverrides
	err := decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		var level string
		if err := json.Unmarshal(raw, &level); err != nil {
			return fmt.Errorf("severity for %q: %w", key, err)
		}
		out = append(out, SeverityOverride{Pattern: key, Level: level})
		return nil
	})
	if err != nil {
		return err
	}
	*o = out
	return nil
}

// MarshalJSON encodes the overrides as a JSON object in declaration order.
func (o SeverityOverrides) MarshalJSON() ([]byte, error) {
	pairs := make([]orderedPair, len(o))
	for i, s := range o {
		pairs[i] = orderedPair{Key: s.Pattern, Value: s.Level}
	}
	return encodeOrderedObject(pairs)
}

// UnmarshalYAML decodes a YAML mapping preserving key order.
func (o *SeverityOverrides) UnmarshalYAML(node *yaml.Node) error {
	var out SeverityOverrides
	err := decodeOrderedMapping(node, func(key string, value *yaml.Node) error {
		var level string
		if err := value.Decode(&level); err != nil {
			return fmt.Errorf("severity for %q: %w", key, err)
		}
		out = append(out, SeverityOverride{Pattern: key, Level: level})
		return nil
	})
	if err != nil {
		return err
	}
	*o = out
	return nil
}

// PerFileIgnore ignores Codes for documents whose path matches Pattern.
type PerFileIgnore struct {
	Pattern string
	Codes   []string
}

// PerFileIgnores keeps entries in declaration order so generated
// arguments are deterministic.
type PerFileIgnores []PerFileIgnore

// UnmarshalJSON decodes a JSON object of pattern → codes preserving order.
func (p *PerFileIgnores) UnmarshalJSON(data []byte) error {
	var out PerFileIgnores
	err := decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		var codes []string
		if err := json.Unmarshal(raw, &codes); err != nil {
			return fmt.Errorf("per-file ignores for %q: %w", key, err)
		}
		out = append(out, PerFileIgnore{Pattern: key, Codes: codes})
		return nil
	})
	if err != nil {
		return err
	}
	*p = out
	return nil
}

// MarshalJSON encodes the entries as a JSON object in declaration order.
func (p PerFileIgnores) MarshalJSON() ([]byte, error) {
	pairs := make([]orderedPair, len(p))
	for i, e := range p {
		pairs[i] = orderedPair{Key: e.Pattern, Value: e.Codes}
	}
	return encodeOrderedObject(pairs)
}

// UnmarshalYAML decodes a YAML mapping of pattern → codes preserving order.
func (p *PerFileIgnores) UnmarshalYAML(node *yaml.Node) error {
	var out PerFileIgnores
	err := decodeOrderedMapping(node, func(key string, value *yaml.Node) error {
		var codes []string
		if err := value.Decode(&codes); err != nil {
			return fmt.Errorf("per-file ignores for %q: %w", key, err)
		}
		out = append(out, PerFileIgnore{Pattern: key, Codes: codes})
		return nil
	})
	if err != nil {
		return err
	}
	*p = out
	return nil
}

// decodeOrderedObject walks a JSON object calling fn for each member in
// the order it appears. A JSON null decodes as an empty object.
func decodeOrderedObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

type orderedPair struct {
	Key   string
	Value any
}

func encodeOrderedObject(pairs []orderedPair) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeOrderedMapping is the YAML counterpart of decodeOrderedObject.
func decodeOrderedMapping(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := fn(node.Content[i].Value, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// DECODING
// =============================================================================

// settingsPaths lists where the plugin's settings may live inside the
// object an editor sends, most specific first.
var settingsPaths = [][]string{
	{"pylsp", "plugins", "ruff"},
	{"plugins", "ruff"},
	{"ruff"},
}

// ParseSettings extracts the plugin settings from a host settings object.
//
// Description:
//
//	Accepts the raw initializationOptions or didChangeConfiguration
//	settings. The plugin block is looked up under pylsp.plugins.ruff,
//	plugins.ruff or ruff. If none is present the whole object is treated
//	as the plugin block.
//
// Inputs:
//
//	raw - Raw JSON from the host. Empty or null yields zero Settings.
//
// Outputs:
//
//	Settings - The decoded settings
//	error - Wraps ErrInvalidSettings when the JSON is malformed
func ParseSettings(raw json.RawMessage) (Settings, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Settings{}, nil
	}

	block := raw
	for _, path := range settingsPaths {
		if sub, ok := lookupPath(raw, path); ok {
			block = sub
			break
		}
	}

	var s Settings
	if err := json.Unmarshal(block, &s); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return s, nil
}

func lookupPath(raw json.RawMessage, path []string) (json.RawMessage, bool) {
	cur := raw
	for _, key := range path {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			return nil, false
		}
		next, ok := obj[key]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// LoadSettingsFile reads default plugin settings from a YAML file.
//
// Description:
//
//	The file uses the same camelCase keys as the editor settings:
//
//	    executable: /usr/local/bin/ruff
//	    extendSelect: [I]
//	    severities:
//	      D: I
//	      D212: H
//
// Inputs:
//
//	path - Path to the YAML file
//
// Outputs:
//
//	Settings - The decoded defaults
//	error - Non-nil if the file cannot be read or parsed
func LoadSettingsFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings file: %w", err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("%w: %s: %v", ErrInvalidSettings, path, err)
	}
	return s, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

var settingsValidator = validator.New(validator.WithRequiredStructEnabled())

// Sanitize validates settings and clears fields that fail validation.
//
// Description:
//
//	Invalid values are logged and dropped so one bad field never disables
//	the plugin. Unknown severity letters are logged but kept; they fall
//	through to the built-in severity when matched.
//
// Inputs:
//
//	s - Settings to check
//	logger - Destination for warnings
//
// Outputs:
//
//	Settings - Settings with invalid fields cleared
func Sanitize(s Settings, logger *slog.Logger) Settings {
	out := s.Clone()

	var verrs validator.ValidationErrors
	if err := settingsValidator.Struct(out); errors.As(err, &verrs) {
		for _, fe := range verrs {
			logger.Warn("Dropping invalid ruff setting",
				slog.String("field", fe.Namespace()),
				slog.String("rule", fe.Tag()),
				slog.Any("value", fe.Value()),
			)
			field, _, _ := strings.Cut(fe.StructField(), "[")
			switch field {
			case "LineLength":
				out.LineLength = nil
			case "TargetVersion":
				out.TargetVersion = ""
			case "Select":
				out.Select = compact(out.Select)
			case "ExtendSelect":
				out.ExtendSelect = compact(out.ExtendSelect)
			case "Ignore":
				out.Ignore = compact(out.Ignore)
			case "ExtendIgnore":
				out.ExtendIgnore = compact(out.ExtendIgnore)
			}
		}
	}

	for _, o := range out.Severities {
		if _, ok := ParseSeverity(o.Level); !ok {
			logger.Warn("Unknown severity override",
				slog.String("pattern", o.Pattern),
				slog.String("severity", o.Level),
			)
		}
	}

	return out
}

// compact drops empty entries, keeping nil when nothing remains.
func compact(list []string) []string {
	var out []string
	for _, v := range list {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
