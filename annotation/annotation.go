// Package annotation implements the client-resident annotation tool: the
// interactive rectangle shape drawn on a canvas, the obstruction label
// classifier, and the local session cache. Shapes are reconstructed from a
// merged box list on every render and only their derived box data is ever
// written back.
package annotation

import (
	"github.com/google/uuid"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
)

// NoComment is the sentinel meaning "no label attached yet".
const NoComment = "---"

// Rect is an axis-aligned rectangle. Width and height may be negative while
// a draw gesture is in progress.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectPatch carries a partial geometry update; nil fields keep the current
// value.
type RectPatch struct {
	X      *float64
	Y      *float64
	Width  *float64
	Height *float64
}

// Annotation is the mutable per-box state a shape owns during a render pass.
// Selected and IsRejected are mutually exclusive; both false means the
// ground-truth box is still undecided. Editable boxes are contributor-drawn
// and never enter the confirmed/rejected state machine.
type Annotation struct {
	ID         string
	Mark       Rect
	Comment    string
	Editable   bool
	Selected   bool
	IsRejected bool
}

// NewAnnotation mints the state for a freshly drawn box: a new id, no label
// yet, fully editable.
func NewAnnotation(mark Rect) *Annotation {
	return &Annotation{
		ID:       uuid.NewString(),
		Mark:     mark,
		Comment:  NoComment,
		Editable: true,
	}
}

// FromBox builds the client-side annotation state for one merged box.
func FromBox(b domain.Box) *Annotation {
	comment := b.Label
	if comment == "" {
		comment = NoComment
	}
	return &Annotation{
		ID:         b.ID,
		Mark:       Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height},
		Comment:    comment,
		Editable:   b.Source == domain.BoxSourceUser,
		Selected:   b.Status == domain.BoxStatusConfirmed,
		IsRejected: b.Status == domain.BoxStatusRejected,
	}
}

// ToBox derives the write-back box for this annotation.
func (a *Annotation) ToBox() domain.Box {
	b := domain.Box{
		ID:     a.ID,
		Source: domain.BoxSourceGroundTruth,
		X:      a.Mark.X,
		Y:      a.Mark.Y,
		Width:  a.Mark.Width,
		Height: a.Mark.Height,
	}
	if a.Comment != NoComment {
		b.Label = a.Comment
	}
	if a.Editable {
		b.Source = domain.BoxSourceUser
		return b
	}
	switch {
	case a.Selected:
		b.Status = domain.BoxStatusConfirmed
	case a.IsRejected:
		b.Status = domain.BoxStatusRejected
	}
	return b
}

// HasComment reports whether a real label is attached.
func (a *Annotation) HasComment() bool {
	return a.Comment != "" && a.Comment != NoComment
}
