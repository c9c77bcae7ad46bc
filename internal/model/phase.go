package model

// PhaseType enumerates the kinds of timed exam segments.
type PhaseType string

const (
	PhaseTypeIntro   PhaseType = "intro"
	PhaseTypeSection PhaseType = "section"
	PhaseTypeBreak   PhaseType = "break"
)

// Phase is one timed segment of an exam. Phases are defined at exam
// configuration time and only traversed at runtime, never mutated.
// Section phases carry a contiguous question range (global indexes,
// inclusive) plus capability flags; intro and break phases only carry a
// duration.
type Phase struct {
	ID              string    `json:"id"`
	Type            PhaseType `json:"type"`
	Label           string    `json:"label,omitempty"`
	SectionInfo     string    `json:"section_info,omitempty"`
	DurationSeconds int       `json:"duration_seconds"`
	// QuestionRange is [start, end] into the global question sequence,
	// inclusive. Nil for intro and break phases.
	QuestionRange     *[2]int `json:"question_range,omitempty"`
	CalculatorAllowed bool    `json:"calculator_allowed,omitempty"`
	HasReference      bool    `json:"has_reference,omitempty"`
}

// IsSection reports whether the phase shows questions and a countdown.
func (p *Phase) IsSection() bool { return p.Type == PhaseTypeSection }

// RangeStart returns the first global question index of a section phase.
func (p *Phase) RangeStart() int {
	if p.QuestionRange == nil {
		return 0
	}
	return p.QuestionRange[0]
}

// RangeEnd returns the last global question index of a section phase.
func (p *Phase) RangeEnd() int {
	if p.QuestionRange == nil {
		return -1
	}
	return p.QuestionRange[1]
}

// Contains reports whether the global question index falls inside the
// phase's range.
func (p *Phase) Contains(index int) bool {
	return p.QuestionRange != nil && index >= p.QuestionRange[0] && index <= p.QuestionRange[1]
}
