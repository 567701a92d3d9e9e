package saga

// Status represents the current status of a saga run
type Status string

const (
	StatusInProgress   Status = "in_progress"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCompensating Status = "compensating"
	StatusCompensated  Status = "compensated"
)

// Step identifies a compensatable unit of work
type Step string

func (s Step) String() string {
	return string(s)
}

// Log is an append-only record of completed steps. Append never mutates the
// receiver, so a Log value can be captured and passed around freely.
type Log struct {
	steps []Step
}

// NewLog returns an empty log
func NewLog() Log {
	return Log{}
}

// Append returns a new log with step recorded after the existing ones
func (l Log) Append(step Step) Log {
	steps := make([]Step, len(l.steps), len(l.steps)+1)
	copy(steps, l.steps)
	return Log{steps: append(steps, step)}
}

// Steps returns the completed steps in completion order
func (l Log) Steps() []Step {
	out := make([]Step, len(l.steps))
	copy(out, l.steps)
	return out
}

// Reverse returns the completed steps, most recent first
func (l Log) Reverse() []Step {
	out := make([]Step, len(l.steps))
	for i, step := range l.steps {
		out[len(l.steps)-1-i] = step
	}
	return out
}

// Len returns the number of completed steps
func (l Log) Len() int {
	return len(l.steps)
}

// Last returns the most recently completed step
func (l Log) Last() (Step, bool) {
	if len(l.steps) == 0 {
		return "", false
	}
	return l.steps[len(l.steps)-1], true
}
