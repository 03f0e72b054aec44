package annotation

// ShapeStyle holds the drawing parameters shared by every shape on a canvas.
type ShapeStyle struct {
	PaddingX        float64
	PaddingY        float64
	LineWidth       float64
	FontSize        float64
	LabelTextColor  string
	ShapeBackground string
	ChipRadius      float64
}

// DefaultShapeStyle mirrors the look of the annotation surface in the web
// client.
var DefaultShapeStyle = ShapeStyle{
	PaddingX:        12,
	PaddingY:        4,
	LineWidth:       2,
	FontSize:        12,
	LabelTextColor:  "#212529",
	ShapeBackground: "#eceff1",
	ChipRadius:      5,
}

const (
	colorEditable  = "#ffa500" // orange
	colorConfirmed = "#28a745" // green
	colorRejected  = "#dc3545" // red
	colorUndecided = "#ffff00" // yellow
)

// strokeStyle is the pure state-to-style function for a shape's outline:
// editable marks are orange (solid once labeled), confirmed green, rejected
// red, undecided yellow dashed. Solid strokes widen to 3px.
func strokeStyle(a *Annotation) (color string, solid bool) {
	switch {
	case a.Editable:
		return colorEditable, a.HasComment()
	case a.Selected:
		return colorConfirmed, true
	case a.IsRejected:
		return colorRejected, true
	default:
		return colorUndecided, false
	}
}

// chipColor is the background color of the label chip, following the same
// state mapping as the stroke.
func chipColor(a *Annotation) string {
	switch {
	case a.Editable:
		return colorEditable
	case a.Selected:
		return colorConfirmed
	case a.IsRejected:
		return colorRejected
	default:
		return colorUndecided
	}
}
