package resolver

import (
	"strconv"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/jobs"
)

// Kind is the type of value a form field expects.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindBool
	KindChoice
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindChoice:
		return "choice"
	default:
		return "text"
	}
}

// Source names the tier that produced an answer.
type Source string

const (
	SourceOverride Source = "override"
	SourceAI       Source = "ai"
	SourceDefault  Source = "default"
)

// Question is a single form question.
type Question struct {
	Text string
	Kind Kind
	// Options are the labels of a choice field, in page order.
	Options []string
	// Posting gives context for company specific questions. Optional.
	Posting *jobs.Posting
}

// Answer is a typed answer. Only the field matching Kind is meaningful, except
// for choices where Text carries the chosen option label.
type Answer struct {
	Kind   Kind
	Text   string
	Number float64
	Bool   bool
	Choice int
	Source Source
}

// String renders the answer the way it is typed into a field.
func (a Answer) String() string {
	switch a.Kind {
	case KindNumber:
		return strconv.FormatFloat(a.Number, 'f', -1, 64)
	case KindBool:
		if a.Bool {
			return "Yes"
		}
		return "No"
	default:
		return a.Text
	}
}

// Valid reports whether the answer can be used for its kind.
func (a Answer) Valid() bool {
	switch a.Kind {
	case KindChoice:
		return a.Choice >= 0
	case KindText:
		return a.Text != ""
	default:
		return true
	}
}
