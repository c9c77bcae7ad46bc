package main

import (
	"context"
	"fmt"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/database"
	"github.com/apexamhq/apexam-backend/internal/logger"
	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/repository"
	"github.com/apexamhq/apexam-backend/internal/service"
)

// Seeds the AP Calculus AB demo exam (4 MCQ + 2 FRQ, two MCQ sections
// and one FRQ section with breaks in between) plus a handful of demo
// participants, then publishes it.
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	participantRepo := repository.NewParticipantRepository(pool)
	examService := service.NewExamService(examRepo, questionRepo, rdb, log)

	exam := &model.Exam{
		Title:   "AP Calculus AB Practice Exam",
		Subject: "Mathematics",
		Phases:  demoPhases(),
	}

	if err := examService.Create(ctx, exam, demoQuestions()); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed exam")
	}
	if err := examService.Publish(ctx, exam.ID); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish exam")
	}

	for _, p := range demoParticipants() {
		participant := p
		if err := participantRepo.Create(ctx, &participant); err != nil {
			log.Warn().Err(err).Str("email", participant.Email).Msg("Failed to seed participant")
		}
	}

	fmt.Printf("Seeded and published exam %s (%s)\n", exam.ID, exam.Title)
}

func strPtr(s string) *string { return &s }

func demoQuestions() []model.Question {
	return []model.Question{
		{
			Number: 1, Type: model.QuestionTypeMCQ, OrderNum: 1,
			Text:     `If $f(x) = \int_{0}^{x} (t^2 + 2t) dt$, what is $f'(3)$?`,
			ImageURL: strPtr("https://images.pexels.com/photos/3729557/pexels-photo-3729557.jpeg?auto=compress&cs=tinysrgb&w=600"),
			Options: []model.Option{
				{Key: "A", Text: "$9$"},
				{Key: "B", Text: "$15$"},
				{Key: "C", Text: "$21$"},
				{Key: "D", Text: "$27$"},
			},
			CorrectOption: strPtr("B"),
			Explanation:   strPtr(`By the Fundamental Theorem of Calculus, $f'(x) = x^2 + 2x$. Substituting $x = 3$: $f'(3) = 3^2 + 2(3) = 9 + 6 = 15$.`),
		},
		{
			Number: 2, Type: model.QuestionTypeMCQ, OrderNum: 2,
			Text: `Evaluate the definite integral: $$\int_{0}^{1} x^2 dx$$`,
			Options: []model.Option{
				{Key: "A", Text: `$\frac{1}{4}$`},
				{Key: "B", Text: `$\frac{1}{3}$`},
				{Key: "C", Text: `$\frac{1}{2}$`},
				{Key: "D", Text: "$1$"},
			},
			CorrectOption: strPtr("B"),
			Explanation:   strPtr(`Using the power rule for integration: $\int_{0}^{1} x^2 dx = \left[\frac{x^3}{3}\right]_0^1 = \frac{1}{3} - 0 = \frac{1}{3}$.`),
		},
		{
			Number: 3, Type: model.QuestionTypeMCQ, OrderNum: 3,
			Text:    `Find the derivative of $f(x) = e^{x^2}$ using the chain rule.`,
			Passage: strPtr(`The chain rule states that if $y = f(g(x))$, then $\frac{dy}{dx} = f'(g(x)) \cdot g'(x)$.`),
			Options: []model.Option{
				{Key: "A", Text: "$e^{x^2}$"},
				{Key: "B", Text: "$2xe^{x^2}$"},
				{Key: "C", Text: "$x^2e^{x^2}$"},
				{Key: "D", Text: "$2e^{x^2}$"},
			},
			CorrectOption: strPtr("B"),
			Explanation:   strPtr(`Let $u = x^2$, so $f(x) = e^u$. By the chain rule: $f'(x) = e^u \cdot \frac{du}{dx} = e^{x^2} \cdot 2x = 2xe^{x^2}$.`),
		},
		{
			Number: 4, Type: model.QuestionTypeMCQ, OrderNum: 4,
			Text: `What is the limit: $$\lim_{x \to 0} \frac{\sin(x)}{x}$$`,
			Options: []model.Option{
				{Key: "A", Text: "$0$"},
				{Key: "B", Text: "$1$"},
				{Key: "C", Text: `$\infty$`},
				{Key: "D", Text: "Does not exist"},
			},
			CorrectOption: strPtr("B"),
			Explanation:   strPtr(`This is a fundamental limit in calculus. By L'Hopital's Rule or the Squeeze Theorem, $\displaystyle\lim_{x \to 0} \frac{\sin(x)}{x} = 1$. As $x \to 0$, $\sin(x) \approx x$, so the ratio approaches $1$.`),
		},
		{
			Number: 5, Type: model.QuestionTypeFRQ, OrderNum: 5,
			Text:  `Let $g$ be a continuous function defined on the interval $[0, 8]$. The function and its derivatives have the properties indicated in the table above. Find all values of $x$ for which $g$ has a relative extremum on the open interval $(0, 8)$. Determine whether $g$ has a relative maximum or minimum at each of these values. Justify your answers.`,
			Pages: []string{"page1", "page2"},
		},
		{
			Number: 6, Type: model.QuestionTypeFRQ, OrderNum: 6,
			Text:  `The rate at which water flows into a tank, in gallons per hour, is given by $R(t) = 200e^{-0.5t}$. The tank initially contains 100 gallons of water. Write, but do not evaluate, an expression involving an integral for the total amount of water in the tank at time $t = 4$ hours.`,
			Pages: []string{"page1", "page2"},
		},
	}
}

func demoPhases() []model.Phase {
	return []model.Phase{
		{
			ID: "intro", Type: model.PhaseTypeIntro,
			DurationSeconds: 60,
		},
		{
			ID: "s1_part_a", Type: model.PhaseTypeSection,
			SectionInfo:     "Section I: Multiple Choice, Part A",
			DurationSeconds: 3600,
			QuestionRange:   &[2]int{0, 1},
		},
		{
			ID: "break_1", Type: model.PhaseTypeBreak,
			Label:           "Break 1 - 1 Minute",
			DurationSeconds: 60,
		},
		{
			ID: "s1_part_b", Type: model.PhaseTypeSection,
			SectionInfo:       "Section I: Multiple Choice, Part B",
			DurationSeconds:   2700,
			QuestionRange:     &[2]int{2, 3},
			CalculatorAllowed: true,
		},
		{
			ID: "break_2", Type: model.PhaseTypeBreak,
			Label:           "Break 2 - 3 Minutes",
			DurationSeconds: 180,
		},
		{
			ID: "s2", Type: model.PhaseTypeSection,
			SectionInfo:       "Section II: Free Response",
			DurationSeconds:   5400,
			QuestionRange:     &[2]int{4, 5},
			CalculatorAllowed: true,
			HasReference:      true,
		},
	}
}

func demoParticipants() []model.Participant {
	return []model.Participant{
		{Name: "Alex Rivera", Email: "alex.rivera@school.edu"},
		{Name: "Jordan Chen", Email: "jordan.chen@school.edu"},
		{Name: "Sam Okafor", Email: "sam.okafor@school.edu"},
	}
}
