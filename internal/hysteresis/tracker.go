package hysteresis

import "fmt"

// Decision is the outcome of pushing a vote into a Tracker.
type Decision int

const (
	// Pending means the window has not seen enough votes to decide.
	Pending Decision = iota
	// Confirmed means the configured rule holds over the last capacity votes.
	Confirmed
	// NotConfirmed means the window is full but the rule does not hold.
	NotConfirmed
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case NotConfirmed:
		return "not_confirmed"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Rule evaluates a full window of votes.
type Rule func(votes []bool) bool

// RequireAll confirms only when every vote in the window is true.
func RequireAll() Rule {
	return func(votes []bool) bool {
		for _, v := range votes {
			if !v {
				return false
			}
		}
		return true
	}
}

// RequireAny confirms when at least one vote in the window is true.
func RequireAny() Rule {
	return func(votes []bool) bool {
		for _, v := range votes {
			if v {
				return true
			}
		}
		return false
	}
}

// RequireCount confirms when at least n votes in the window are true.
func RequireCount(n int) Rule {
	return func(votes []bool) bool {
		count := 0
		for _, v := range votes {
			if v {
				count++
			}
		}
		return count >= n
	}
}

// Tracker converts a noisy stream of boolean votes into a confirmed decision
// by requiring the rule to hold over a contiguous window of the last
// capacity votes. A single contrary vote inside the window is enough to
// break a RequireAll confirmation, which is what protects state transitions
// from one-frame glitches.
type Tracker struct {
	capacity int
	rule     Rule
	votes    []bool
	next     int
	filled   int
}

// New constructs a Tracker. capacity must be >= 1; rule must not be nil.
func New(capacity int, rule Rule) *Tracker {
	if capacity < 1 {
		panic(fmt.Sprintf("hysteresis: capacity must be >= 1, got %d", capacity))
	}
	if rule == nil {
		panic("hysteresis: rule must not be nil")
	}
	return &Tracker{
		capacity: capacity,
		rule:     rule,
		votes:    make([]bool, capacity),
	}
}

// Push records a vote, evicting the oldest when the window is at capacity,
// and returns the resulting decision. Before the window fills it always
// returns Pending. Pushing never resets the window.
func (t *Tracker) Push(vote bool) Decision {
	t.votes[t.next] = vote
	t.next = (t.next + 1) % t.capacity
	if t.filled < t.capacity {
		t.filled++
	}
	if t.filled < t.capacity {
		return Pending
	}
	if t.rule(t.votes) {
		return Confirmed
	}
	return NotConfirmed
}

// Reset clears all recorded votes. The next capacity-1 pushes return Pending.
func (t *Tracker) Reset() {
	t.next = 0
	t.filled = 0
	for i := range t.votes {
		t.votes[i] = false
	}
}

// Len returns the number of votes currently held.
func (t *Tracker) Len() int { return t.filled }

// Capacity returns the configured window size.
func (t *Tracker) Capacity() int { return t.capacity }

// Full reports whether the window holds capacity votes.
func (t *Tracker) Full() bool { return t.filled == t.capacity }
