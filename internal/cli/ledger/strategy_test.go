package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func constAttempt(name string, v int, err error, calls *[]string) Attempt[int] {
	return Attempt[int]{Name: name, Run: func(context.Context) (int, error) {
		*calls = append(*calls, name)
		return v, err
	}}
}

func TestFirstSuccess_FirstWins(t *testing.T) {
	var calls []string
	v, name, err := FirstSuccess(context.Background(), []Attempt[int]{
		constAttempt("a", 1, nil, &calls),
		constAttempt("b", 2, nil, &calls),
	}, always, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, "a", name)
	assert.Equal(t, []string{"a"}, calls)
}

func TestFirstSuccess_SkipsFailures(t *testing.T) {
	var calls []string
	v, name, err := FirstSuccess(context.Background(), []Attempt[int]{
		constAttempt("a", 0, errors.New("boom"), &calls),
		constAttempt("b", 2, nil, &calls),
	}, always, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, "b", name)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestFirstSuccess_StopsWhenNextRefuses(t *testing.T) {
	fatal := errors.New("fatal")
	var calls []string
	_, name, err := FirstSuccess(context.Background(), []Attempt[int]{
		constAttempt("a", 0, fatal, &calls),
		constAttempt("b", 2, nil, &calls),
	}, func(err error) bool { return !errors.Is(err, fatal) }, nil)
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, "a", name)
	assert.Equal(t, []string{"a"}, calls)
}

func TestFirstSuccess_AllFailJoined(t *testing.T) {
	e1, e2 := errors.New("one"), errors.New("two")
	var calls []string
	_, name, err := FirstSuccess(context.Background(), []Attempt[int]{
		constAttempt("a", 0, e1, &calls),
		constAttempt("b", 0, e2, &calls),
	}, always, nil)
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
	assert.Equal(t, "b", name)
}

func TestFirstSuccess_EmptyAndCancelled(t *testing.T) {
	_, _, err := FirstSuccess[int](context.Background(), nil, always, nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls []string
	_, _, err = FirstSuccess(ctx, []Attempt[int]{constAttempt("a", 1, nil, &calls)}, always, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
}
