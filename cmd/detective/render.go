// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/detective-h/detective/lib/verdict"
)

// styles renders verdicts for one output stream. Colors are dropped
// automatically when the stream is not a color terminal.
type styles struct {
	verdicts map[verdict.Verdict]lipgloss.Style
	label    lipgloss.Style
}

func newStyles(w io.Writer) *styles {
	renderer := lipgloss.NewRenderer(w)
	return &styles{
		verdicts: map[verdict.Verdict]lipgloss.Style{
			verdict.Identical: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
			verdict.Variant:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("208")),
			verdict.Related:   renderer.NewStyle().Foreground(lipgloss.Color("220")),
			verdict.Unrelated: renderer.NewStyle().Foreground(lipgloss.Color("34")),
		},
		label: renderer.NewStyle().Faint(true),
	}
}

// verdict renders v's description in its band color.
func (s *styles) verdict(v verdict.Verdict) string {
	return s.verdicts[v].Render(v.Description())
}

// name renders v's short name in its band color.
func (s *styles) name(v verdict.Verdict) string {
	return s.verdicts[v].Render(v.String())
}
