package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sofia-labs/sofia/internal/domain"
	"github.com/sofia-labs/sofia/internal/persona"
	"github.com/sofia-labs/sofia/internal/store"
)

var difficultyKeyboard = [][]string{
	{"easy", "medium", "hard"},
	{"coach"},
}

func (o *Orchestrator) handleCommand(ctx context.Context, log *slog.Logger, sess *domain.UserSession, text string, r Replier) {
	send := func(msg string) {
		if err := r.Reply(ctx, msg); err != nil {
			log.Warn("failed to deliver reply", "error", err)
		}
	}
	sendKeyboard := func(msg string) {
		if err := r.ReplyKeyboard(ctx, msg, difficultyKeyboard); err != nil {
			log.Warn("failed to deliver keyboard", "error", err)
		}
	}

	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	// /dev is reachable before authorization; everything else past this
	// point requires it.
	if cmd == "/dev" {
		send(o.deps.Gate.BeginDev(sess))
		return
	}
	if !sess.Authorized {
		send(o.deps.Gate.Begin(sess))
		return
	}

	switch cmd {
	case "/start":
		sendKeyboard(persona.Greeting + "\n\nPick a mode:")

	case "/menu":
		sendKeyboard("Pick a mode:")

	case "/rating":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			send("Usage: /rating on|off")
			return
		}
		sess.ShowRating = args[0] == "on"
		if sess.ShowRating {
			send("Okay, I'll show you how you're doing 📊")
		} else {
			send("Fine, no more scores. Just vibes ✨")
		}

	case "/remember":
		if len(args) < 2 {
			send("Usage: /remember <category> <value>")
			return
		}
		key := strings.ToLower(args[0])
		value := strings.Join(args[1:], " ")
		notice, err := o.deps.Keeper.Remember(ctx, sess.UserID, sess.Plan, key, value)
		switch {
		case err != nil:
			send(fmt.Sprintf("Can't keep that one: %v", err))
		case notice != "":
			send(notice)
		default:
			send("Noted 😉")
		}

	case "/setlevel":
		if len(args) < 1 || len(args) > 2 {
			send("Usage: /setlevel <n> [user]")
			return
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			send("Usage: /setlevel <n> [user]")
			return
		}
		// Anyone may set their own level; touching another user's
		// session is a developer capability.
		if len(args) == 2 && args[1] != sess.UserID && !o.requireDev(sess, send) {
			return
		}
		o.onTarget(sess, args, 1, func(target *domain.UserSession) {
			target.Level = n
			target.ClampLevel()
			if err := store.SaveLevel(ctx, o.deps.Store, target.UserID, target.Level); err != nil {
				log.Warn("failed to persist dev level override", "error", err)
			}
			send(fmt.Sprintf("Level set to %d for %s.", target.Level, target.UserID))
		})

	case "/setplan":
		if !o.requireDev(sess, send) {
			return
		}
		if len(args) < 1 || len(args) > 2 {
			send("Usage: /setplan starter|pro|elite [user]")
			return
		}
		plan := domain.ParsePlan(args[0])
		o.onTarget(sess, args, 1, func(target *domain.UserSession) {
			if err := o.deps.Quota.SetPlan(ctx, target, plan); err != nil {
				log.Warn("failed to persist dev plan override", "error", err)
			}
			send(fmt.Sprintf("Plan set to %s for %s.", plan, target.UserID))
		})

	case "/reload":
		o.deps.Gate.Authorize(ctx, sess)
		send(fmt.Sprintf("Reloaded from store: level %d, plan %s, %d messages used.",
			sess.Level, sess.Plan, sess.MessagesUsed))

	default:
		send("I don't know that one 🤔 Try /menu.")
	}
}

// onTarget applies fn to the caller's own session, or to another user's
// when args carries a target id at idx. The caller's session lock is
// already held; a distinct target locks its own entry.
func (o *Orchestrator) onTarget(sess *domain.UserSession, args []string, idx int, fn func(*domain.UserSession)) {
	if len(args) <= idx || args[idx] == sess.UserID {
		fn(sess)
		return
	}
	o.deps.Sessions.Do(args[idx], fn)
}

func (o *Orchestrator) requireDev(sess *domain.UserSession, send func(string)) bool {
	if sess.Developer {
		return true
	}
	send("That's not for you 😌")
	return false
}

func (o *Orchestrator) setDifficulty(ctx context.Context, log *slog.Logger, sess *domain.UserSession, d domain.Difficulty, send func(string)) {
	sess.Difficulty = d
	sess.ClampLevel()
	if err := store.SaveDifficulty(ctx, o.deps.Store, sess.UserID, d); err != nil {
		log.Warn("failed to persist difficulty", "error", err)
	}
	if d == domain.DifficultyCoach {
		send("Coach mode on 🎓 Send me a message you'd use and I'll break it down.")
		return
	}
	send(fmt.Sprintf("Okay, %s mode it is 😏", d))
}
