package wizard

import (
	"fmt"

	"wonchon/internal/core"
)

// Step is one screen of the declaration.
type Step int

const (
	BusinessInfo Step = iota + 1
	Earners
	Notice
	Review
)

func (s Step) String() string {
	switch s {
	case BusinessInfo:
		return "business_info"
	case Earners:
		return "earners"
	case Notice:
		return "notice"
	case Review:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Phase is the wizard's lifecycle around submission.
type Phase int

const (
	Editing Phase = iota
	Submitting
	Done
	Exited
)

func (p Phase) String() string {
	switch p {
	case Submitting:
		return "submitting"
	case Done:
		return "done"
	case Exited:
		return "exited"
	default:
		return "editing"
	}
}

// stepHandler defines the transitions out of one step. next runs with the
// wizard lock held; a zero back exits the wizard.
type stepHandler struct {
	next func(w *Wizard) (Step, error)
	back Step
}

var steps = map[Step]stepHandler{
	BusinessInfo: {
		next: func(*Wizard) (Step, error) { return Earners, nil },
	},
	Earners: {
		next: func(w *Wizard) (Step, error) {
			if err := w.editor.Commit(); err != nil {
				return Earners, err
			}
			return Notice, nil
		},
		back: BusinessInfo,
	},
	Notice: {
		next: func(*Wizard) (Step, error) { return Review, nil },
		back: Earners,
	},
	Review: {
		next: func(*Wizard) (Step, error) { return Review, ErrUseSubmit },
		back: Notice,
	},
}

// title renders the header line for step in period p.
func title(s Step, p core.Period) string {
	if s == Review {
		return fmt.Sprintf("%d년 %d월 귀속 제출", p.Year, p.Month)
	}
	return fmt.Sprintf("%d년 %d월 귀속 원천세", p.Year, p.Month)
}
