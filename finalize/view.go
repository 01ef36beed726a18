package finalize

import (
	"slices"
	"strings"
)

// Style selects how a segment is painted. StyleA and StyleB alternate over
// finalized sentences; StylePending marks the in-progress fragment.
type Style int

const (
	StyleA Style = iota
	StyleB
	StylePending
)

type Segment struct {
	Text  string
	Style Style
}

// View is what the renderer paints: finalized sentences followed by the
// pending fragment, if any.
type View []Segment

func (v View) Equal(other View) bool {
	return slices.Equal(v, other)
}

func (v View) Plain() string {
	parts := make([]string, len(v))
	for i, s := range v {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

// Renderer paints a view. Implementations diff internally.
type Renderer interface {
	Render(v View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(View)

func (f RendererFunc) Render(v View) { f(v) }
