// Package scoring turns a raw model assessment into a bounded ScoreResult.
package scoring

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/sofia-labs/sofia/internal/domain"
	"github.com/sofia-labs/sofia/internal/llm"
)

const scoreInstruction = `You rate one exchange of a flirty chat conversation.
Given the previous message from Sofia and the user's reply, rate the reply on
two axes from 0 to 10:
- "flirty": how charming, playful and romantically engaging the reply is
- "personality": how confident, interesting and self-assured the reply is
Respond with ONLY a JSON object: {"flirty": <int>, "personality": <int>}`

// Heuristic fallback constants. Used when the completion service is
// unavailable or returns garbage; the pipeline must always produce a score.
const (
	heuristicBase        = 3
	flirtyKeywordBonus   = 3
	questionBonus        = 2
	longMessageBonus     = 2
	longMessageThreshold = 120
)

var flirtyKeywords = []string{
	"love", "kiss", "beautiful", "gorgeous", "cute", "date",
	"miss you", "babe", "sweetheart", "darling", "heart", "hug",
}

var intPattern = regexp.MustCompile(`\d+`)

type scorePayload struct {
	Flirty      int `json:"flirty"`
	Personality int `json:"personality"`
}

// Scorer assesses user replies via the completion service with layered
// local fallbacks. Score is total: it never fails to produce a value.
type Scorer struct {
	completer llm.Completer
}

// NewScorer creates a scorer backed by the given completion client.
func NewScorer(c llm.Completer) *Scorer {
	return &Scorer{completer: c}
}

// Score rates the user's reply to the bot's previous message.
// Preference order: structured model output, integer pattern scan of the
// raw output, then a local heuristic over the user text. Components are
// clamped to [0,10] regardless of source.
func (s *Scorer) Score(ctx context.Context, lastBotMessage, userMessage string) domain.ScoreResult {
	raw, err := s.completer.Complete(ctx, llm.Request{
		Instruction: scoreInstruction,
		UserText:    "Sofia said: " + lastBotMessage + "\nUser replied: " + userMessage,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		slog.Warn("score completion failed, using heuristic", "error", err)
		return Heuristic(userMessage)
	}

	if result, ok := parseStructured(raw); ok {
		return result
	}
	if result, ok := parseEmbeddedInts(raw); ok {
		slog.Debug("score parsed from embedded integers", "raw", raw)
		return result
	}

	slog.Warn("score output unparseable, using heuristic", "raw", raw)
	return Heuristic(userMessage)
}

func parseStructured(raw string) (domain.ScoreResult, bool) {
	var payload scorePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return domain.ScoreResult{}, false
	}
	return domain.NewScoreResult(payload.Flirty, payload.Personality), true
}

func parseEmbeddedInts(raw string) (domain.ScoreResult, bool) {
	matches := intPattern.FindAllString(raw, 2)
	if len(matches) < 2 {
		return domain.ScoreResult{}, false
	}
	flirty, err1 := strconv.Atoi(matches[0])
	personality, err2 := strconv.Atoi(matches[1])
	if err1 != nil || err2 != nil {
		return domain.ScoreResult{}, false
	}
	return domain.NewScoreResult(flirty, personality), true
}

// Heuristic computes a score from the raw user text alone. It is the last
// tier of the fallback chain and also useful on its own in tests.
func Heuristic(userMessage string) domain.ScoreResult {
	flirty := heuristicBase
	personality := heuristicBase

	lower := strings.ToLower(userMessage)
	for _, kw := range flirtyKeywords {
		if strings.Contains(lower, kw) {
			flirty += flirtyKeywordBonus
			break
		}
	}
	if strings.Contains(userMessage, "?") {
		personality += questionBonus
	}
	if len(userMessage) > longMessageThreshold {
		personality += longMessageBonus
	}

	return domain.NewScoreResult(flirty, personality)
}
