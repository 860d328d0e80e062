// Copyright 2024 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package myst

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Config is the file form of [DocumentOptions].
//
// An example configuration:
//
//	hoistSingleImages: false
//	unknownTokens: text
//	numbering:
//	  figure:
//	    scope: project
//	    template: "Fig. %s"
//	  heading:
//	    enabled: false
//	references:
//	  equation: "Eq. %s"
//	handlers:
//	  myst_role:
//	    type: role
//	    noCloseToken: true
//	    leaf: true
type Config struct {
	HoistSingleImages *bool                      `yaml:"hoistSingleImages,omitempty"`
	UnknownTokens     UnknownTokenPolicy         `yaml:"unknownTokens,omitempty"`
	Numbering         map[string]NumberingConfig `yaml:"numbering,omitempty"`
	References        map[string]string          `yaml:"references,omitempty"`
	Handlers          map[string]HandlerConfig   `yaml:"handlers,omitempty"`
}

// NumberingConfig is the file form of a [KindNumbering]
// plus the kind's reference template.
type NumberingConfig struct {
	// Enabled defaults to true for the [DefaultNumberedKinds]
	// and false for any other kind.
	Enabled  *bool          `yaml:"enabled,omitempty"`
	Scope    NumberingScope `yaml:"scope,omitempty"`
	Template string         `yaml:"template,omitempty"`
}

// HandlerConfig is the file form of a [Rule].
// Rules set from a file keep the attribute function of the default rule
// with the same name and node type.
type HandlerConfig struct {
	Type         NodeType `yaml:"type,omitempty"`
	Leaf         bool     `yaml:"leaf,omitempty"`
	NoCloseToken bool     `yaml:"noCloseToken,omitempty"`
	Text         bool     `yaml:"text,omitempty"`
}

// LoadConfig parses a YAML configuration.
// Unknown keys are an error.
// An empty input yields the default configuration.
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := new(Config)
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("load config: %w", err)
	}
	for name, h := range cfg.Handlers {
		if h.Type == 0 {
			if _, ok := defaultHandlers[name]; !ok {
				return nil, fmt.Errorf("load config: handler %q: missing type", name)
			}
		}
	}
	return cfg, nil
}

// DocumentOptions returns the options described by the configuration.
func (cfg *Config) DocumentOptions() *DocumentOptions {
	opts := new(DocumentOptions)
	if cfg.HoistSingleImages != nil && !*cfg.HoistSingleImages {
		opts.HoistSingleImages = NoHoist
	}
	opts.UnknownTokens = cfg.UnknownTokens

	if len(cfg.Numbering) > 0 {
		opts.Numbering = &NumberingOptions{Kinds: make(map[string]KindNumbering)}
	}
	for kind, nc := range cfg.Numbering {
		policy := (*NumberingOptions)(nil).policy(kind)
		if nc.Enabled != nil {
			policy.Enabled = *nc.Enabled
		}
		policy.Scope = nc.Scope
		opts.Numbering.Kinds[kind] = policy
		if nc.Template != "" {
			if opts.Templates == nil {
				opts.Templates = make(map[string]string)
			}
			opts.Templates[kind] = nc.Template
		}
	}
	for kind, tmpl := range cfg.References {
		if opts.Templates == nil {
			opts.Templates = make(map[string]string)
		}
		opts.Templates[kind] = tmpl
	}

	if len(cfg.Handlers) > 0 {
		opts.Handlers = make(HandlerTable, len(cfg.Handlers))
	}
	for name, h := range cfg.Handlers {
		rule := Rule{
			Type:         h.Type,
			IsLeaf:       h.Leaf,
			NoCloseToken: h.NoCloseToken,
			IsText:       h.Text,
		}
		if base, ok := defaultHandlers[name]; ok && (h.Type == 0 || h.Type == base.Type) {
			rule.Type = base.Type
			rule.GetAttrs = base.GetAttrs
		}
		opts.Handlers[name] = rule
	}
	return opts
}

// String returns the policy's configuration name.
func (policy UnknownTokenPolicy) String() string {
	switch policy {
	case UnknownTokenWarn:
		return "warn"
	case UnknownTokenText:
		return "text"
	case UnknownTokenIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("UnknownTokenPolicy(%d)", int8(policy))
	}
}

// MarshalText returns the policy's configuration name.
func (policy UnknownTokenPolicy) MarshalText() ([]byte, error) {
	return []byte(policy.String()), nil
}

// UnmarshalText parses "warn", "text", or "ignore".
func (policy *UnknownTokenPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "warn":
		*policy = UnknownTokenWarn
	case "text":
		*policy = UnknownTokenText
	case "ignore":
		*policy = UnknownTokenIgnore
	default:
		return fmt.Errorf("unknown token policy %q", text)
	}
	return nil
}
