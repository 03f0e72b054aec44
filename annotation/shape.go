package annotation

import (
	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/basicfont"
)

// Projector maps a rectangle from image coordinates to canvas coordinates,
// accounting for the current zoom and pan of the surface.
type Projector func(Rect) Rect

// IdentityProjector draws shapes in image coordinates unchanged.
func IdentityProjector(r Rect) Rect { return r }

// RectShape is one interactive rectangular mark on the canvas. All geometry
// mutation is gated on the annotation being editable; calls on a
// non-editable shape are silent no-ops since they fall out of ordinary
// pointer traffic, not programmer error.
type RectShape struct {
	ann      *Annotation
	onChange func()
	style    ShapeStyle

	dragOffsetX float64
	dragOffsetY float64
}

// NewRectShape wraps an annotation into a shape. onChange is invoked after
// every geometry mutation so the owning surface can repaint and schedule a
// write-back; it may be nil.
func NewRectShape(ann *Annotation, onChange func()) *RectShape {
	return NewRectShapeWithStyle(ann, onChange, DefaultShapeStyle)
}

// NewRectShapeWithStyle wraps an annotation with an explicit style.
func NewRectShapeWithStyle(ann *Annotation, onChange func(), style ShapeStyle) *RectShape {
	if onChange == nil {
		onChange = func() {}
	}
	return &RectShape{ann: ann, onChange: onChange, style: style}
}

// Annotation exposes the underlying per-box state for write-back.
func (s *RectShape) Annotation() *Annotation { return s.ann }

// BeginDrag records the pointer offset relative to the mark's origin.
func (s *RectShape) BeginDrag(px, py float64) {
	if !s.ann.Editable {
		return
	}
	s.dragOffsetX = px - s.ann.Mark.X
	s.dragOffsetY = py - s.ann.Mark.Y
}

// Drag moves the mark so the pointer keeps its recorded offset.
func (s *RectShape) Drag(px, py float64) {
	if !s.ann.Editable {
		return
	}
	s.ann.Mark.X = px - s.dragOffsetX
	s.ann.Mark.Y = py - s.dragOffsetY
	s.onChange()
}

// ContainsPoint reports whether the point lies strictly inside the rectangle
// spanned by (x,y) and (x+width,y+height), tolerating negative width/height
// from an in-progress draw.
func (s *RectShape) ContainsPoint(px, py float64) bool {
	m := s.ann.Mark
	inX := (px > m.X && px < m.X+m.Width) || (px < m.X && px > m.X+m.Width)
	inY := (py > m.Y && py < m.Y+m.Height) || (py < m.Y && py > m.Y+m.Height)
	return inX && inY
}

// Resize merges the given fields over the current mark.
func (s *RectShape) Resize(patch RectPatch) {
	if !s.ann.Editable {
		return
	}
	if patch.X != nil {
		s.ann.Mark.X = *patch.X
	}
	if patch.Y != nil {
		s.ann.Mark.Y = *patch.Y
	}
	if patch.Width != nil {
		s.ann.Mark.Width = *patch.Width
	}
	if patch.Height != nil {
		s.ann.Mark.Height = *patch.Height
	}
	s.onChange()
}

// SetLabel attaches or overwrites the comment. Labeling is allowed on
// non-editable shapes too: confirming a ground-truth box may rewrite its
// label without touching geometry.
func (s *RectShape) SetLabel(text string) {
	s.ann.Comment = text
}

// Equals is the structural dirty-check used to decide whether a write-back
// is actually needed.
func (s *RectShape) Equals(other *Annotation) bool {
	a := s.ann
	return other.ID == a.ID &&
		other.Comment == a.Comment &&
		other.Mark.X == a.Mark.X &&
		other.Mark.Y == a.Mark.Y &&
		other.Mark.Width == a.Mark.Width &&
		other.Mark.Height == a.Mark.Height
}

// Render draws the shape onto the surface and returns the projected
// rectangle. When bulkHighlight is set the interior is flooded instead of
// drawing the label chip.
func (s *RectShape) Render(dc *gg.Context, project Projector, bulkHighlight bool) Rect {
	if project == nil {
		project = IdentityProjector
	}
	r := project(s.ann.Mark)

	stroke, solid := strokeStyle(s.ann)
	width := s.style.LineWidth
	if solid {
		width = 3
		dc.SetDash()
	} else {
		dc.SetDash(5, 5)
	}
	dc.SetColor(mustHex(stroke))
	dc.SetLineWidth(width)
	dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	dc.Stroke()
	dc.SetDash()

	if bulkHighlight {
		bg := mustHex(s.style.ShapeBackground)
		dc.SetRGBA(bg.R, bg.G, bg.B, 0.2)
		dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
		dc.Fill()
		return r
	}

	if s.ann.HasComment() {
		s.drawLabelChip(dc, r)
	}
	return r
}

// drawLabelChip draws the rounded label background anchored at the
// rectangle's top-left corner with the comment text inside.
func (s *RectShape) drawLabelChip(dc *gg.Context, r Rect) {
	dc.SetFontFace(basicfont.Face7x13)
	textW, _ := dc.MeasureString(s.ann.Comment)

	chipW := textW + s.style.PaddingX*2
	chipH := s.style.FontSize + s.style.PaddingY*2

	dc.SetColor(mustHex(chipColor(s.ann)))
	dc.DrawRoundedRectangle(r.X, r.Y, chipW, chipH, s.style.ChipRadius)
	dc.Fill()

	dc.SetColor(mustHex(s.style.LabelTextColor))
	dc.DrawStringAnchored(s.ann.Comment, r.X+s.style.PaddingX, r.Y+chipH/2, 0, 0.35)
}

func mustHex(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}
	}
	return c
}
