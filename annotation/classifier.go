package annotation

import "fmt"

// InputMode is what the classifier currently presents for a shape.
type InputMode int

const (
	// ModeList shows the enumerated vocabulary select.
	ModeList InputMode = iota
	// ModeCustom shows the free-text input.
	ModeCustom
	// ModePrompt shows the read-only "Is <label> an obstruction?" question.
	ModePrompt
	// ModeRejectedNotice shows the rejection statement with an Undo action.
	ModeRejectedNotice
)

// InputSection resolves a shape's obstruction type between the enumerated
// vocabulary and free-form text, and drives the tri-state classification of
// ground-truth boxes. Editable (contributor-drawn) shapes never enter the
// confirmed/rejected state machine; their only terminal action is deletion.
type InputSection struct {
	shape    *RectShape
	vocab    Vocabulary
	onDelete func()
	custom   bool
}

// NewInputSection binds a classifier to a shape. onDelete removes the shape
// from the surface and is only invoked for editable shapes; it may be nil.
func NewInputSection(shape *RectShape, vocab Vocabulary, onDelete func()) *InputSection {
	if len(vocab) == 0 {
		vocab = DefaultVocabulary
	}
	if onDelete == nil {
		onDelete = func() {}
	}
	s := &InputSection{shape: shape, vocab: vocab, onDelete: onDelete}
	s.syncMode()
	return s
}

// syncMode re-detects list vs custom mode from the current value and
// canonicalizes fuzzy vocabulary matches back to their machine value.
func (s *InputSection) syncMode() {
	value := s.shape.Annotation().Comment
	if s.vocab.Exact(value) != nil {
		s.custom = false
		return
	}
	if opt := s.vocab.Fuzzy(value); opt != nil {
		s.shape.SetLabel(opt.Value)
		s.custom = false
		return
	}
	switch value {
	case NoComment:
		s.custom = false
	case "":
		// Cleared input (or a fresh "Other..." pick): keep whichever mode
		// the user is in.
	default:
		s.custom = true
	}
}

// Mode reports what the classifier presents right now.
func (s *InputSection) Mode() InputMode {
	ann := s.shape.Annotation()
	if ann.Editable || ann.Selected {
		if s.custom {
			return ModeCustom
		}
		return ModeList
	}
	if ann.IsRejected {
		return ModeRejectedNotice
	}
	return ModePrompt
}

// Value is the current label value ("---" when unset).
func (s *InputSection) Value() string {
	return s.shape.Annotation().Comment
}

// Prompt is the read-only question shown for an undecided ground-truth box.
func (s *InputSection) Prompt() string {
	return fmt.Sprintf("Is %s an obstruction?", s.vocab.Display(s.Value()))
}

// RejectedNotice is the statement shown once a box was marked not an
// obstruction.
func (s *InputSection) RejectedNotice() string {
	return fmt.Sprintf("You selected %s as not an obstruction.", s.vocab.Display(s.Value()))
}

// Change overwrites the label with typed or selected text and re-detects the
// input mode.
func (s *InputSection) Change(text string) {
	s.shape.SetLabel(text)
	s.syncMode()
}

// SelectOption handles a pick from the vocabulary select. Choosing the
// "Other..." entry flips into custom mode with a cleared value.
func (s *InputSection) SelectOption(value string) {
	if value == OtherOption {
		s.custom = true
		s.shape.SetLabel("")
		return
	}
	s.Change(value)
}

// SwitchToList leaves custom mode and resets the value to the unset
// sentinel.
func (s *InputSection) SwitchToList() {
	s.custom = false
	s.shape.SetLabel(NoComment)
}

// Confirm commits the current value. A ground-truth shape transitions to
// confirmed; an editable shape just keeps its label.
func (s *InputSection) Confirm() {
	ann := s.shape.Annotation()
	if ann.Editable {
		return
	}
	ann.Selected = true
	ann.IsRejected = false
}

// Unselect is the state-dependent negative action: an undecided ground-truth
// box becomes rejected ("No"), a confirmed box reverts to undecided
// ("Remove"), a rejected box reverts to undecided ("Undo"). Editable shapes
// are deleted, never unselected.
func (s *InputSection) Unselect() {
	ann := s.shape.Annotation()
	if ann.Editable {
		return
	}
	switch {
	case ann.Selected:
		ann.Selected = false
	case ann.IsRejected:
		ann.IsRejected = false
	default:
		ann.IsRejected = true
	}
}

// Delete removes an editable shape from the surface. Ground-truth shapes
// cannot be deleted, only rejected.
func (s *InputSection) Delete() {
	if !s.shape.Annotation().Editable {
		return
	}
	s.onDelete()
}
