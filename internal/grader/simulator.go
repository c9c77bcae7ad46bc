package grader

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/apexamhq/apexam-backend/internal/model"
)

// fixtures holds hand-written grading results keyed by question number,
// mirroring the calculus demo exam shipped by cmd/seed-exam.
var fixtures = map[int]Result{
	5: {
		Score:    7,
		MaxScore: 9,
		Feedback: "The student correctly identified that $g$ has relative extrema where $g'$ changes sign. The analysis at $x = 2$ (relative maximum) and $x = 6$ (relative minimum) was well-justified using the First Derivative Test. However, the student did not fully address the behavior of $g'$ at $x = 4$, where $g'$ is undefined. A complete justification should mention that $g'$ changes from negative to positive at $x = 6$, confirming the relative minimum. Minor notation issues were noted but did not affect the mathematical validity.",
		Rubric: []model.RubricItem{
			{Criterion: "Identifies critical points where $g'(x) = 0$ or $g'(x)$ is undefined", Met: true},
			{Criterion: "Correctly identifies relative maximum at $x = 2$", Met: true},
			{Criterion: "Justifies maximum using sign change of $g'$ (positive to negative)", Met: true},
			{Criterion: "Correctly identifies relative minimum at $x = 6$", Met: true},
			{Criterion: "Justifies minimum using sign change of $g'$ (negative to positive)", Met: true},
			{Criterion: "Addresses behavior at $x = 4$ where $g'$ is undefined", Met: false},
			{Criterion: "Uses First Derivative Test language correctly", Met: true},
			{Criterion: "Provides complete justification for each extremum", Met: false},
			{Criterion: "Clear and organized presentation", Met: true},
		},
	},
	6: {
		Score:    8,
		MaxScore: 9,
		Feedback: "The student correctly set up the integral expression $100 + \\int_{0}^{4} 200e^{-0.5t}\\,dt$ for the total amount of water in the tank at $t = 4$. The initial condition of 100 gallons was properly incorporated. The integral bounds and integrand are correct. The student lost one point for not explicitly stating that $R(t)$ represents the rate of inflow, which is needed to justify why the integral of $R(t)$ gives the accumulated volume. Overall, a strong response demonstrating solid understanding of the Fundamental Theorem of Calculus in an applied context.",
		Rubric: []model.RubricItem{
			{Criterion: "Identifies initial amount of 100 gallons", Met: true},
			{Criterion: "Sets up integral with correct integrand $200e^{-0.5t}$", Met: true},
			{Criterion: "Uses correct bounds of integration $[0, 4]$", Met: true},
			{Criterion: "Adds initial condition to integral (100 + integral)", Met: true},
			{Criterion: "Expression is in correct \"write but do not evaluate\" form", Met: true},
			{Criterion: "Justifies integral as accumulated volume from rate function", Met: false},
			{Criterion: "Correct use of integral notation", Met: true},
			{Criterion: "Includes units or acknowledges gallon context", Met: true},
			{Criterion: "Clear mathematical presentation", Met: true},
		},
	},
}

// Simulator fakes an AI grading backend: fixture results for known
// questions, a deterministic generic result otherwise, with a short
// artificial latency.
type Simulator struct {
	minDelay time.Duration
	maxDelay time.Duration
}

// NewSimulator creates a simulator with the standard 1.5–3s latency.
func NewSimulator() *Simulator {
	return &Simulator{minDelay: 1500 * time.Millisecond, maxDelay: 3 * time.Second}
}

// NewInstantSimulator creates a simulator without artificial latency,
// used by tests.
func NewInstantSimulator() *Simulator {
	return &Simulator{}
}

// Grade returns the canned result for the question. The delay honors
// context cancellation.
func (g *Simulator) Grade(ctx context.Context, question model.Question, _ []string) (Result, error) {
	if d := g.delay(question); d > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(d):
		}
	}

	if res, ok := fixtures[question.Number]; ok {
		return res, nil
	}
	return genericResult(question), nil
}

func (g *Simulator) delay(question model.Question) time.Duration {
	if g.maxDelay <= g.minDelay {
		return g.minDelay
	}
	// Seed from the question id so repeated grading of the same question
	// behaves the same.
	h := fnv.New64a()
	h.Write(question.ID[:])
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	return g.minDelay + time.Duration(rng.Int63n(int64(g.maxDelay-g.minDelay)))
}

// genericResult is the fallback for questions without a fixture. The
// score is derived from the question id so a regrade is stable.
func genericResult(question model.Question) Result {
	h := fnv.New64a()
	h.Write(question.ID[:])
	score := 4 + int(h.Sum64()%5) // 4..8 out of 9

	return Result{
		Score:    score,
		MaxScore: 9,
		Feedback: "The student demonstrated a reasonable understanding of the core concepts. Some steps could benefit from more detailed justification.",
		Rubric: []model.RubricItem{
			{Criterion: "Problem setup", Met: true},
			{Criterion: "Core method applied correctly", Met: true},
			{Criterion: "Intermediate calculations", Met: true},
			{Criterion: "Final answer", Met: false},
			{Criterion: "Justification and reasoning", Met: false},
		},
	}
}
