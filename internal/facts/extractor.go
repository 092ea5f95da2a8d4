// Package facts extracts and persists durable user facts.
package facts

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/sofia-labs/sofia/internal/domain"
	"github.com/sofia-labs/sofia/internal/llm"
)

const extractInstruction = `Extract durable personal facts about the user from
their message. Only use these keys: name, age, city, country, school, job,
favorite_food, favorite_hobby, interests, relationship_goal, personality.
Respond with ONLY a JSON object mapping keys to short string values.
Return {} if the message contains no personal facts.`

// MaxFactsPerMessage bounds how many facts one message may yield.
const MaxFactsPerMessage = 3

// bannedKeywords reject status/wealth/validation-coded values. Matched
// case-insensitively as substrings.
var bannedKeywords = []string{
	"$", "10k", "money", "rich", "wealth", "net worth", "crypto",
	"followers", "status", "hustle", "alpha", "high value", "validation",
}

// Extractor pulls whitelisted facts out of user messages via the
// completion service. Extraction is advisory: any service error degrades
// silently to an empty result.
type Extractor struct {
	completer llm.Completer
}

// NewExtractor creates an extractor backed by the given completion client.
func NewExtractor(c llm.Completer) *Extractor {
	return &Extractor{completer: c}
}

// Extract returns the facts found in the message, after local validation.
// The whitelist, value bounds and banned-keyword rules are enforced here
// regardless of what the completion service returned.
func (e *Extractor) Extract(ctx context.Context, userMessage string) map[string]string {
	raw, err := e.completer.Complete(ctx, llm.Request{
		Instruction: extractInstruction,
		UserText:    userMessage,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		slog.Debug("fact extraction skipped", "error", err)
		return map[string]string{}
	}

	var candidates map[string]string
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		slog.Debug("fact extraction output unparseable", "raw", raw)
		return map[string]string{}
	}

	return Filter(candidates)
}

// Filter applies the local acceptance rules to candidate facts: whitelist
// keys only, value length within bounds, no banned keywords, at most
// MaxFactsPerMessage entries.
func Filter(candidates map[string]string) map[string]string {
	accepted := make(map[string]string)
	for key, value := range candidates {
		if len(accepted) >= MaxFactsPerMessage {
			break
		}
		if !domain.IsFactKey(key) {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) < domain.FactValueMinLen || len(value) > domain.FactValueMaxLen {
			continue
		}
		if containsBanned(value) {
			continue
		}
		accepted[key] = value
	}
	return accepted
}

func containsBanned(value string) bool {
	lower := strings.ToLower(value)
	for _, kw := range bannedKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
