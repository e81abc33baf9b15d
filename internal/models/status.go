package models

// Status is the lifecycle state of a group-buy post.
type Status string

const (
	StatusOpen       Status = "open"
	StatusClosed     Status = "closed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every lifecycle state in display order.
var Statuses = []Status{StatusOpen, StatusClosed, StatusInProgress, StatusCompleted}

// TransitionTable maps a current status to the statuses it may move to.
type TransitionTable map[Status][]Status

// StatusTransitions is the lifecycle every post follows. The author may
// move a post from any status to any other, including reopening a
// completed deal.
var StatusTransitions = TransitionTable{
	StatusOpen:       {StatusClosed, StatusInProgress, StatusCompleted},
	StatusClosed:     {StatusOpen, StatusInProgress, StatusCompleted},
	StatusInProgress: {StatusOpen, StatusClosed, StatusCompleted},
	StatusCompleted:  {StatusOpen, StatusClosed, StatusInProgress},
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Joinable reports whether new participants are accepted.
func (s Status) Joinable() bool {
	return s == StatusOpen
}

// Label is the badge text shown for the status.
func (s Status) Label() string {
	switch s {
	case StatusOpen:
		return "모집중"
	case StatusClosed:
		return "모집완료"
	case StatusInProgress:
		return "진행중"
	case StatusCompleted:
		return "거래완료"
	}
	return string(s)
}

// Allows reports whether a post in status from may move to status to.
// Staying on the same valid status is always allowed.
func (t TransitionTable) Allows(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next returns the statuses reachable from s.
func (t TransitionTable) Next(s Status) []Status {
	out := make([]Status, len(t[s]))
	copy(out, t[s])
	return out
}

// CanTransition checks the default lifecycle.
func CanTransition(from, to Status) bool {
	return StatusTransitions.Allows(from, to)
}
