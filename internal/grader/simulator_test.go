package grader

import (
	"context"
	"testing"

	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatorReturnsFixtureForKnownQuestion(t *testing.T) {
	g := NewInstantSimulator()
	q := model.Question{ID: uuid.New(), Number: 5, Type: model.QuestionTypeFRQ}

	res, err := g.Grade(context.Background(), q, []string{"https://cdn/p1.jpg"})
	require.NoError(t, err)

	assert.Equal(t, 7, res.Score)
	assert.Equal(t, 9, res.MaxScore)
	assert.Len(t, res.Rubric, 9)
	assert.NotEmpty(t, res.Feedback)
}

func TestSimulatorFallbackIsStable(t *testing.T) {
	g := NewInstantSimulator()
	q := model.Question{ID: uuid.New(), Number: 42, Type: model.QuestionTypeFRQ}

	first, err := g.Grade(context.Background(), q, nil)
	require.NoError(t, err)
	second, err := g.Grade(context.Background(), q, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Score, second.Score, "regrading the same question must not change the score")
	assert.GreaterOrEqual(t, first.Score, 4)
	assert.LessOrEqual(t, first.Score, 8)
	assert.Equal(t, 9, first.MaxScore)
	assert.Len(t, first.Rubric, 5)
}

func TestSimulatorHonorsContextCancellation(t *testing.T) {
	g := NewSimulator()
	q := model.Question{ID: uuid.New(), Number: 5, Type: model.QuestionTypeFRQ}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Grade(ctx, q, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
