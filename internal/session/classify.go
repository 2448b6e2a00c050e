package session

import "strings"

type Kind int

const (
	// NewTask starts fresh with an empty execution context.
	NewTask Kind = iota
	// Continuation carries the previous task's output and files forward.
	Continuation
	// Ambiguous means the caller has to ask the user.
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case Continuation:
		return "continuation"
	case Ambiguous:
		return "ambiguous"
	default:
		return "new_task"
	}
}

// continuationHints are words that usually mean "keep going on what you did".
var continuationHints = []string{
	"add", "also", "now", "then", "next", "additionally",
	"improve", "fix", "change", "update", "modify",
	"make it", "can you", "please", "try",
}

const shortMessageWords = 10

// Classify decides how a message relates to the previous task. A short
// message carrying a continuation hint is a follow-up; a long message with
// no hint at all starts a new task; every other combination is surfaced as
// ambiguous rather than guessed. An explicit follow-up marker from the
// caller overrides the heuristics.
func Classify(message, lastTask string, explicit bool) Kind {
	if lastTask == "" {
		return NewTask
	}
	if explicit {
		return Continuation
	}

	lower := strings.ToLower(message)
	hinted := false
	for _, hint := range continuationHints {
		if strings.Contains(lower, hint) {
			hinted = true
			break
		}
	}
	short := len(strings.Fields(message)) < shortMessageWords

	if hinted && short {
		return Continuation
	}
	if !hinted && !short {
		return NewTask
	}
	return Ambiguous
}
