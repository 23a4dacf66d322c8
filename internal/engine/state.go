package engine

// TaskState is the lifecycle state of one source task.
type TaskState int32

const (
	TaskPending TaskState = iota
	TaskFetching
	TaskExtracting
	TaskCompleted
	TaskFailed
	TaskTimedOut
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskFetching:
		return "fetching"
	case TaskExtracting:
		return "extracting"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	case TaskTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskTimedOut
}

// MarshalText renders the state by name in JSON output.
func (s TaskState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
