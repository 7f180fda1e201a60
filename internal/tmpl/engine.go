package tmpl

import (
	"regexp"
	"strings"
)

// Engine substitutes tokens into grid and line templates. A token is consumed by the first cell or line that uses
// it and is not applied again for the rest of the pass.
type Engine struct {
	marker   string
	priority []string
	pattern  *regexp.Regexp
}

type Option func(e *Engine)

// WithPriorityTokens sets the tokens resolved ahead of all others on every line of a line template.
func WithPriorityTokens(tokens ...string) Option {
	return func(e *Engine) {
		e.priority = append(e.priority, tokens...)
	}
}

func New(marker string, opts ...Option) *Engine {
	if marker == "" {
		marker = DefaultMarker
	}

	e := &Engine{
		marker:  marker,
		pattern: regexp.MustCompile(regexp.QuoteMeta(marker) + `[\w.-]+#(?:[\w.-]+#)?`),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Engine) Marker() string {
	return e.marker
}

// Token builds a token with the engine's marker.
func (e *Engine) Token(name string, qualifiers ...string) string {
	return Token(e.marker, name, qualifiers...)
}

// CountMarkers returns how many times the marker occurs in text.
func (e *Engine) CountMarkers(text string) int {
	return strings.Count(text, e.marker)
}

// Discover returns the distinct tokens found in text in order of first appearance.
func (e *Engine) Discover(text string) []string {
	var (
		found []string
		seen  = make(map[string]bool)
	)
	for _, tok := range e.pattern.FindAllString(text, -1) {
		if seen[tok] {
			continue
		}

		seen[tok] = true
		found = append(found, tok)
	}

	return found
}

// DiscoverGrid returns the distinct tokens of a grid in column-major order.
func (e *Engine) DiscoverGrid(g Grid) []string {
	var (
		found []string
		seen  = make(map[string]bool)
	)
	for col := 0; col < g.NumCols(); col++ {
		for row := 0; row < g.NumRows(); row++ {
			cell, ok := g.Cell(row, col)
			if !ok {
				continue
			}

			for _, tok := range e.Discover(cell) {
				if seen[tok] {
					continue
				}

				seen[tok] = true
				found = append(found, tok)
			}
		}
	}

	return found
}

// SubstituteGrid returns a copy of g with tokens replaced. Cells are visited column by column, top to bottom. A cell
// uses at most as many tokens as it holds markers and every token it uses is removed from tokens.
func (e *Engine) SubstituteGrid(g Grid, tokens *Tokens) Grid {
	out := g.Clone()
	for col := 0; col < out.NumCols(); col++ {
		for row := 0; row < out.NumRows(); row++ {
			cell, ok := out.Cell(row, col)
			if !ok {
				continue
			}

			budget := e.CountMarkers(cell)
			if budget == 0 {
				continue
			}

			out.cells[row][col] = e.consume(cell, tokens, budget, nil)
		}
	}

	return out
}

// SubstituteLines returns a copy of lines with tokens replaced. Priority tokens are replaced on every line they occur
// on and are never consumed. The remaining budget of a line then goes to the other tokens, which are consumed.
func (e *Engine) SubstituteLines(lines []string, tokens *Tokens) []string {
	skip := make(map[string]bool, len(e.priority))
	for _, p := range e.priority {
		skip[p] = true
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		budget := e.CountMarkers(line)
		if budget == 0 {
			out[i] = line
			continue
		}

		for _, p := range e.priority {
			n := strings.Count(line, p)
			if n == 0 {
				continue
			}

			v, ok := tokens.Get(p)
			if !ok {
				continue
			}

			line = strings.ReplaceAll(line, p, v)
			budget -= n
		}

		if budget > 0 {
			line = e.consume(line, tokens, budget, skip)
		}

		out[i] = line
	}

	return out
}

func (e *Engine) consume(text string, tokens *Tokens, budget int, skip map[string]bool) string {
	var matched int
	for _, tok := range tokens.Ordered() {
		if skip[tok] {
			continue
		}

		if !strings.Contains(text, tok) {
			continue
		}

		v, _ := tokens.Get(tok)
		text = strings.ReplaceAll(text, tok, v)
		tokens.Delete(tok)

		matched++
		if matched >= budget {
			break
		}
	}

	return text
}

// ExpandColumns fills column templates: a cell whose whole content is one of the keys of columns receives the values
// downwards, one row per value, starting at its own row. Existing cells below are overwritten.
func (e *Engine) ExpandColumns(g Grid, columns map[string][]string) Grid {
	out := g.Clone()

	type anchor struct {
		row, col int
		values   []string
	}

	var anchors []anchor
	for col := 0; col < out.NumCols(); col++ {
		for row := 0; row < out.NumRows(); row++ {
			cell, ok := out.Cell(row, col)
			if !ok || e.CountMarkers(cell) == 0 {
				continue
			}

			values, ok := columns[strings.TrimSpace(cell)]
			if !ok {
				continue
			}

			anchors = append(anchors, anchor{row: row, col: col, values: values})
		}
	}

	for _, a := range anchors {
		if len(a.values) == 0 {
			out.Set(a.row, a.col, "")
			continue
		}

		for i, v := range a.values {
			out.Set(a.row+i, a.col, v)
		}
	}

	return out
}
