package annotation

import "testing"

func newSection(ann *Annotation, onDelete func()) *InputSection {
	return NewInputSection(NewRectShape(ann, nil), DefaultVocabulary, onDelete)
}

func TestInputSection_ModeDetection(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantMode  InputMode
		wantValue string
	}{
		{"exact vocabulary value stays in list mode", "garbage", ModeList, "garbage"},
		{"case-mismatched label canonicalizes to machine value", "Garbage", ModeList, "garbage"},
		{"underscored value spelled with spaces canonicalizes", "lamp post", ModeList, "lamp_post"},
		{"unknown text flips to custom mode verbatim", "broken fence", ModeCustom, "broken fence"},
		{"unset sentinel stays in list mode", NoComment, ModeList, NoComment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSection(&Annotation{ID: "u", Comment: tt.value, Editable: true}, nil)
			if got := s.Mode(); got != tt.wantMode {
				t.Errorf("Mode() = %v, want %v", got, tt.wantMode)
			}
			if got := s.Value(); got != tt.wantValue {
				t.Errorf("Value() = %q, want %q", got, tt.wantValue)
			}
		})
	}
}

func TestInputSection_SelectOption(t *testing.T) {
	t.Run("picking Other clears value and enters custom mode", func(t *testing.T) {
		s := newSection(&Annotation{ID: "u", Comment: NoComment, Editable: true}, nil)
		s.SelectOption(OtherOption)
		if s.Mode() != ModeCustom {
			t.Errorf("Mode() = %v, want ModeCustom", s.Mode())
		}
		if s.Value() != "" {
			t.Errorf("Value() = %q, want empty", s.Value())
		}
	})

	t.Run("typing a fuzzy match in custom mode auto-corrects", func(t *testing.T) {
		s := newSection(&Annotation{ID: "u", Comment: NoComment, Editable: true}, nil)
		s.SelectOption(OtherOption)
		s.Change("Street Sign")
		if s.Value() != "street_sign" {
			t.Errorf("Value() = %q, want street_sign", s.Value())
		}
		if s.Mode() != ModeList {
			t.Errorf("Mode() = %v, want ModeList after canonicalization", s.Mode())
		}
	})

	t.Run("switch back to list resets to sentinel", func(t *testing.T) {
		s := newSection(&Annotation{ID: "u", Comment: "broken fence", Editable: true}, nil)
		s.SwitchToList()
		if s.Value() != NoComment || s.Mode() != ModeList {
			t.Errorf("got value %q mode %v, want sentinel in list mode", s.Value(), s.Mode())
		}
	})
}

func TestInputSection_StateMachine(t *testing.T) {
	t.Run("undecided confirms", func(t *testing.T) {
		ann := &Annotation{ID: "gt", Comment: "tree"}
		s := newSection(ann, nil)
		if s.Mode() != ModePrompt {
			t.Fatalf("Mode() = %v, want ModePrompt", s.Mode())
		}
		s.Confirm()
		if !ann.Selected || ann.IsRejected {
			t.Errorf("after Confirm: selected=%v rejected=%v, want confirmed", ann.Selected, ann.IsRejected)
		}
	})

	t.Run("undecided rejects on negative action", func(t *testing.T) {
		ann := &Annotation{ID: "gt", Comment: "tree"}
		s := newSection(ann, nil)
		s.Unselect()
		if !ann.IsRejected || ann.Selected {
			t.Errorf("after Unselect: selected=%v rejected=%v, want rejected", ann.Selected, ann.IsRejected)
		}
		if s.Mode() != ModeRejectedNotice {
			t.Errorf("Mode() = %v, want ModeRejectedNotice", s.Mode())
		}
	})

	t.Run("confirmed reverts to undecided", func(t *testing.T) {
		ann := &Annotation{ID: "gt", Comment: "tree", Selected: true}
		newSection(ann, nil).Unselect()
		if ann.Selected || ann.IsRejected {
			t.Errorf("after Unselect: selected=%v rejected=%v, want undecided", ann.Selected, ann.IsRejected)
		}
	})

	t.Run("rejected undoes to undecided", func(t *testing.T) {
		ann := &Annotation{ID: "gt", Comment: "tree", IsRejected: true}
		newSection(ann, nil).Unselect()
		if ann.Selected || ann.IsRejected {
			t.Errorf("after Unselect: selected=%v rejected=%v, want undecided", ann.Selected, ann.IsRejected)
		}
	})

	t.Run("editable shapes stay outside the state machine", func(t *testing.T) {
		ann := &Annotation{ID: "u", Comment: "bench", Editable: true}
		s := newSection(ann, nil)
		s.Confirm()
		s.Unselect()
		if ann.Selected || ann.IsRejected {
			t.Errorf("editable shape entered state machine: selected=%v rejected=%v", ann.Selected, ann.IsRejected)
		}
	})
}

func TestInputSection_Delete(t *testing.T) {
	t.Run("deletes editable shape", func(t *testing.T) {
		deleted := false
		s := newSection(&Annotation{ID: "u", Editable: true, Comment: NoComment}, func() { deleted = true })
		s.Delete()
		if !deleted {
			t.Error("Delete() should invoke the surface callback for editable shapes")
		}
	})

	t.Run("refuses to delete ground-truth shape", func(t *testing.T) {
		deleted := false
		s := newSection(&Annotation{ID: "gt", Comment: "tree"}, func() { deleted = true })
		s.Delete()
		if deleted {
			t.Error("ground-truth shapes must be rejected, not deleted")
		}
	})
}

func TestInputSection_Prompts(t *testing.T) {
	s := newSection(&Annotation{ID: "gt", Comment: "street_sign"}, nil)
	if got, want := s.Prompt(), "Is Street Sign an obstruction?"; got != want {
		t.Errorf("Prompt() = %q, want %q", got, want)
	}

	s = newSection(&Annotation{ID: "gt", Comment: "broken fence", IsRejected: true}, nil)
	if got, want := s.RejectedNotice(), "You selected broken fence as not an obstruction."; got != want {
		t.Errorf("RejectedNotice() = %q, want %q", got, want)
	}
}
