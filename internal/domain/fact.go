package domain

// Fact is a durable, whitelisted key-value datum about a user. Latest
// value wins; facts are never auto-deleted.
type Fact struct {
	UserID string
	Key    string
	Value  string
}

// Value length bounds for facts.
const (
	FactValueMinLen = 2
	FactValueMaxLen = 60
)

// FactKeys is the closed whitelist of fact categories.
var FactKeys = []string{
	"name",
	"age",
	"city",
	"country",
	"school",
	"job",
	"favorite_food",
	"favorite_hobby",
	"interests",
	"relationship_goal",
	"personality",
}

var factKeySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(FactKeys))
	for _, k := range FactKeys {
		m[k] = struct{}{}
	}
	return m
}()

// IsFactKey reports whether key is on the whitelist.
func IsFactKey(key string) bool {
	_, ok := factKeySet[key]
	return ok
}

// Reserved store keys used as the durability substrate for session fields.
// They share the fact store namespace but are not facts.
const (
	StoreKeyLevel        = "level"
	StoreKeyPlan         = "plan"
	StoreKeyMessagesUsed = "messages_used"
	StoreKeyMemoryCount  = "memory_count"
	StoreKeyDifficulty   = "difficulty"
)

// IsReservedKey reports whether key is a session-mirror key rather than a
// user fact.
func IsReservedKey(key string) bool {
	switch key {
	case StoreKeyLevel, StoreKeyPlan, StoreKeyMessagesUsed, StoreKeyMemoryCount, StoreKeyDifficulty:
		return true
	}
	return false
}

// MemoryCapacity returns how many facts a plan may persist.
func MemoryCapacity(p Plan) int {
	switch p {
	case PlanElite:
		return 200
	case PlanPro:
		return 50
	default:
		return 10
	}
}
