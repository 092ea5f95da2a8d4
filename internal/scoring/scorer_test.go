package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sofia-labs/sofia/internal/llm"
)

// fakeCompleter returns a canned response or error.
type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, _ llm.Request) (string, error) {
	return f.response, f.err
}

func TestScoreStructuredOutput(t *testing.T) {
	s := NewScorer(&fakeCompleter{response: `{"flirty": 8, "personality": 9}`})

	result := s.Score(context.Background(), "hey you", "you looked stunning today")
	assert.Equal(t, 8, result.Flirty)
	assert.Equal(t, 9, result.Personality)
}

func TestScoreStructuredOutputClamped(t *testing.T) {
	s := NewScorer(&fakeCompleter{response: `{"flirty": 42, "personality": -3}`})

	result := s.Score(context.Background(), "", "hi")
	assert.Equal(t, 10, result.Flirty)
	assert.Equal(t, 0, result.Personality)
}

func TestScoreEmbeddedIntegerFallback(t *testing.T) {
	s := NewScorer(&fakeCompleter{response: "I'd say flirty: 6 and personality: 4 overall."})

	result := s.Score(context.Background(), "", "hi")
	assert.Equal(t, 6, result.Flirty)
	assert.Equal(t, 4, result.Personality)
}

func TestScoreHeuristicOnServiceError(t *testing.T) {
	s := NewScorer(&fakeCompleter{err: errors.New("timeout")})

	result := s.Score(context.Background(), "", "do you like hiking?")
	assert.Equal(t, 3, result.Flirty)
	assert.Equal(t, 5, result.Personality, "question mark adds +2")
}

func TestScoreHeuristicOnGarbageOutput(t *testing.T) {
	s := NewScorer(&fakeCompleter{response: "no numbers here at all"})

	result := s.Score(context.Background(), "", "hey")
	assert.Equal(t, 3, result.Flirty)
	assert.Equal(t, 3, result.Personality)
}

func TestScoreAlwaysBounded(t *testing.T) {
	completers := []*fakeCompleter{
		{err: errors.New("boom")},
		{response: ""},
		{response: "{malformed"},
		{response: `{"flirty": 9999, "personality": -9999}`},
		{response: "900 800"},
	}
	for _, fc := range completers {
		s := NewScorer(fc)
		result := s.Score(context.Background(), "last", "msg")
		assert.GreaterOrEqual(t, result.Flirty, 0)
		assert.LessOrEqual(t, result.Flirty, 10)
		assert.GreaterOrEqual(t, result.Personality, 0)
		assert.LessOrEqual(t, result.Personality, 10)
	}
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		name        string
		msg         string
		flirty      int
		personality int
	}{
		{"plain", "hello there", 3, 3},
		{"romantic keyword", "I miss you so much", 6, 3},
		{"question", "what's your favorite movie?", 3, 5},
		{"long message", strings.Repeat("a", 130), 3, 5},
		{"long romantic question", "do you believe in love? " + strings.Repeat("x", 120), 6, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Heuristic(tt.msg)
			assert.Equal(t, tt.flirty, result.Flirty)
			assert.Equal(t, tt.personality, result.Personality)
		})
	}
}
