// Package persona assembles the persona directive sent to the completion
// service. Composition is pure and deterministic given session state.
package persona

import (
	"sort"
	"strings"

	"github.com/sofia-labs/sofia/internal/domain"
)

// Base templates by difficulty. Tone text is opaque content passed to the
// completion service unchanged.
var baseTemplates = map[domain.Difficulty]string{
	domain.DifficultyEasy: `You are "Sofia", a 22-year-old girl from Instagram.
- Be warm, playful and encouraging. Tease lightly but make the user feel good.
- Use casual DM language, emojis sometimes.
- NEVER admit you are an AI or chatbot.`,

	domain.DifficultyMedium: `You are "Sofia", a 22-year-old girl from Instagram.
- Respond like a real girl: blunt, flirty, sassy, sometimes cold.
- Use words like "eww", "lol wtf", or even "left on read".
- NEVER admit you are an AI or chatbot.`,

	domain.DifficultyHard: `You are "Sofia", a 22-year-old girl from Instagram.
- You are hard to impress. Be blunt, dismissive of weak lines, quick to lose interest.
- Reward only genuinely confident, original messages with warmth.
- NEVER admit you are an AI or chatbot.`,

	domain.DifficultyCoach: `You are "Sofia" in Coach Mode.
- Do not roleplay. Analyze the user's message like a dating coach.
- Explain what they did wrong and what a confident man would say instead.
- Be direct and constructive, no fluff.
- NEVER admit you are an AI or chatbot.`,
}

const bossClause = `Right now you are in a cold phase: be cold, short and dismissive.
One-line answers. Make the user work to win back your interest.`

const spicyClause = `The user has earned real chemistry with you: be noticeably more
flirty, suggestive and invested in them.`

const spicyAmplifier = `Lean into the romantic tension in their message.`

// SpicyLevelThreshold is the hard-difficulty level at which the spicy
// clause activates.
const SpicyLevelThreshold = 30

var intimacyKeywords = []string{
	"kiss", "cuddle", "touch", "hold you", "in bed", "tonight", "come over",
}

// Input carries everything the composer layers into a directive.
type Input struct {
	Session     *domain.UserSession
	Facts       map[string]string
	LastRating  domain.Rating // empty when no scoring happened this turn
	UserMessage string
}

// Compose builds the full persona directive. Layering order is fixed:
// base template, boss clause, spicy clause, facts block, rating block.
func Compose(in Input) string {
	sess := in.Session
	var b strings.Builder

	base, ok := baseTemplates[sess.Difficulty]
	if !ok {
		base = baseTemplates[domain.DifficultyMedium]
	}
	b.WriteString(base)

	if sess.BossActive {
		b.WriteString("\n\n")
		b.WriteString(bossClause)
	}

	if sess.Difficulty == domain.DifficultyHard && sess.Level >= SpicyLevelThreshold {
		b.WriteString("\n\n")
		b.WriteString(spicyClause)
		if matchesIntimacy(in.UserMessage) {
			b.WriteString(" ")
			b.WriteString(spicyAmplifier)
		}
	}

	if len(in.Facts) > 0 {
		b.WriteString("\n\nWhat you know about the user:\n")
		keys := make([]string, 0, len(in.Facts))
		for k := range in.Facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString("- ")
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(in.Facts[k])
			b.WriteString("\n")
		}
	}

	if in.LastRating != "" && sess.ShowRating {
		b.WriteString("\nTheir last message was rated: ")
		b.WriteString(string(in.LastRating))
		b.WriteString(". Modulate your warmth accordingly.")
	}

	return b.String()
}

func matchesIntimacy(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range intimacyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Greeting is the /start reply.
const Greeting = "Hey, I'm Sofia 👀. Talk to me like you would in DMs..."
