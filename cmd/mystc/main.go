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

// mystc compiles MyST Markdown documents into resolved document trees
// and writes them as HTML, JSON, or normalized MyST Markdown.
//
// Usage:
//
//	mystc [flags] FILE [...]
//
// The files are processed as one project:
// references may point to targets in any of them,
// and project-scoped counters run across them in argument order.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"zombiezen.com/go/myst"
	"zombiezen.com/go/myst/format"
	"zombiezen.com/go/myst/goldmarktok"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

type outputFormat string

const (
	formatHTML     outputFormat = "html"
	formatJSON     outputFormat = "json"
	formatMarkdown outputFormat = "markdown"
)

func (f *outputFormat) String() string { return string(*f) }
func (f *outputFormat) Type() string   { return "html|json|markdown" }

func (f *outputFormat) Set(s string) error {
	switch outputFormat(s) {
	case formatHTML, formatJSON, formatMarkdown:
		*f = outputFormat(s)
		return nil
	default:
		return fmt.Errorf("unknown format %q", s)
	}
}

// extension returns the file extension of output in the format.
func (f outputFormat) extension() string {
	switch f {
	case formatJSON:
		return ".json"
	case formatMarkdown:
		return ".md"
	default:
		return ".html"
	}
}

type compileCommand struct {
	format        outputFormat
	configPath    string
	outDir        string
	logFormat     string
	failOnWarning bool

	stdout io.Writer
	stderr io.Writer
}

var errDiagnostics = errors.New("diagnostics reported")

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	c := &compileCommand{
		format: formatHTML,
		stdout: stdout,
		stderr: stderr,
	}
	cmd := &cobra.Command{
		Use:           "mystc [flags] FILE [...]",
		Short:         "Compile MyST Markdown documents",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.run(cmd.Context(), args)
			if err != nil && !errors.Is(err, errDiagnostics) {
				fmt.Fprintf(c.stderr, "mystc: %v\n", err)
			}
			return err
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	flags := cmd.Flags()
	flags.VarP(&c.format, "format", "f", "output format")
	flags.StringVarP(&c.configPath, "config", "c", "", "YAML configuration `file`")
	flags.StringVarP(&c.outDir, "out", "o", "", "write one file per document into `dir` instead of stdout")
	flags.StringVar(&c.logFormat, "log-format", "auto", "diagnostic log format (auto|text|json)")
	flags.BoolVar(&c.failOnWarning, "fail-on-warning", false, "exit with an error if any diagnostic is reported")
	return cmd
}

// logger returns the logger for diagnostics.
// The "auto" format logs text to a terminal and JSON otherwise.
func (c *compileCommand) logger() (*slog.Logger, error) {
	logFormat := c.logFormat
	if logFormat == "auto" {
		logFormat = "json"
		if f, ok := c.stderr.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			logFormat = "text"
		}
	}
	switch logFormat {
	case "text":
		return slog.New(slog.NewTextHandler(c.stderr, nil)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(c.stderr, nil)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.logFormat)
	}
}

func (c *compileCommand) documentOptions() (*myst.DocumentOptions, error) {
	if c.configPath == "" {
		return new(myst.DocumentOptions), nil
	}
	f, err := os.Open(c.configPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := myst.LoadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.configPath, err)
	}
	return cfg.DocumentOptions(), nil
}

func (c *compileCommand) run(ctx context.Context, files []string) error {
	log, err := c.logger()
	if err != nil {
		return err
	}
	opts, err := c.documentOptions()
	if err != nil {
		return err
	}
	var reported myst.DiagnosticList
	logSink := myst.NewLogSink(log)
	opts.Diagnostics = myst.SinkFunc(func(d myst.Diagnostic) {
		reported.Report(d)
		logSink.Report(d)
	})
	if c.format == formatHTML {
		opts.DocumentURL = c.documentURL
	}

	docs := make([]myst.SourceDocument, 0, len(files))
	for _, file := range files {
		if c.outDir != "" && !filepath.IsLocal(file) {
			return fmt.Errorf("%s: output would be written outside of %s", file, c.outDir)
		}
		source, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		docs = append(docs, myst.SourceDocument{
			Name:   path.Clean(filepath.ToSlash(file)),
			Tokens: goldmarktok.Tokens(source),
		})
	}
	project, err := myst.BuildProject(ctx, docs, opts)
	if err != nil {
		return err
	}
	log.Debug("built project", "documents", len(project.Documents), "diagnostics", len(reported))

	if c.outDir == "" {
		out := bufio.NewWriter(c.stdout)
		for _, doc := range project.Documents {
			if err := c.write(out, doc, opts); err != nil {
				return err
			}
		}
		if err := out.Flush(); err != nil {
			return err
		}
	} else {
		for _, doc := range project.Documents {
			if err := c.writeFile(doc, opts); err != nil {
				return err
			}
		}
	}

	if reported.HasErrors() || c.failOnWarning && len(reported) > 0 {
		return fmt.Errorf("%d %w", len(reported), errDiagnostics)
	}
	return nil
}

// outputName returns the slash-separated name of the output file
// for the named document.
func (c *compileCommand) outputName(document string) string {
	return strings.TrimSuffix(document, path.Ext(document)) + c.format.extension()
}

// documentURL returns the relative URL of the output of document to
// as linked from the output of document from.
func (c *compileCommand) documentURL(from, to string) string {
	target := c.outputName(to)
	rel, err := filepath.Rel(filepath.Dir(filepath.FromSlash(from)), filepath.FromSlash(target))
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}

func (c *compileCommand) writeFile(doc *myst.Document, opts *myst.DocumentOptions) error {
	dst := filepath.Join(c.outDir, filepath.FromSlash(c.outputName(doc.Name)))
	if err := os.MkdirAll(filepath.Dir(dst), 0o777); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	out := bufio.NewWriter(f)
	err = c.write(out, doc, opts)
	if err == nil {
		err = out.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (c *compileCommand) write(w io.Writer, doc *myst.Document, opts *myst.DocumentOptions) error {
	switch c.format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Name string     `json:"name"`
			Root *myst.Node `json:"root"`
		}{doc.Name, doc.Root})
	case formatMarkdown:
		return format.Format(w, doc.Root)
	default:
		r := &myst.HTMLRenderer{Templates: opts.Templates}
		if err := r.Render(w, doc.Root); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	}
}
