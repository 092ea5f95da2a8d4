// Package domain defines the core session and progression types.
package domain

// Difficulty selects the persona configuration for a user.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyCoach  Difficulty = "coach"
)

// ParseDifficulty maps user input to a known difficulty.
// Unknown values fall back to medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyCoach:
		return Difficulty(s)
	}
	return DifficultyMedium
}

// Plan is the billing tier controlling message quota and memory capacity.
type Plan string

const (
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
	PlanElite   Plan = "elite"
)

// ParsePlan maps a stored or user-supplied value to a known plan.
// Unknown values fall back to starter.
func ParsePlan(s string) Plan {
	switch Plan(s) {
	case PlanStarter, PlanPro, PlanElite:
		return Plan(s)
	}
	return PlanStarter
}

// PendingInput marks what the next message from the user will be consumed
// as. The states are mutually exclusive; PendingNone means the message is
// ordinary chat.
type PendingInput string

const (
	PendingNone        PendingInput = ""
	PendingPassword    PendingInput = "password"
	PendingEmail       PendingInput = "email"
	PendingDevPassword PendingInput = "dev_password"
)

// BossTurns is how many turns boss mode stays active once triggered.
const BossTurns = 5

// UserSession holds all per-user conversational state. It is owned by the
// session registry; level, plan and messages_used are mirrored to the
// durable fact store, which is authoritative on disagreement.
type UserSession struct {
	UserID     string
	Authorized bool
	Developer  bool

	Difficulty Difficulty
	Level      int

	BossActive  bool
	BossCounter int

	ShowRating     bool
	LastBotMessage string

	Plan         Plan
	MessagesUsed int

	Pending PendingInput
	Email   string
}

// NewSession returns a session with the documented defaults: anonymous,
// medium difficulty, level 1, starter plan, rating visible.
func NewSession(userID string) *UserSession {
	return &UserSession{
		UserID:     userID,
		Difficulty: DifficultyMedium,
		Level:      1,
		ShowRating: true,
		Plan:       PlanStarter,
	}
}

// ClampLevel forces the level into [1, MaxLevel] for the active difficulty.
func (s *UserSession) ClampLevel() {
	profile := ProfileFor(s.Difficulty)
	s.Level = ClampInt(s.Level, 1, profile.MaxLevel)
}

// TickBoss advances boss mode by one turn and clears it after BossTurns.
// Returns true if boss mode was active for this turn.
func (s *UserSession) TickBoss() bool {
	if !s.BossActive {
		return false
	}
	s.BossCounter++
	if s.BossCounter >= BossTurns {
		s.BossActive = false
		s.BossCounter = 0
	}
	return true
}

// ClampInt bounds v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
