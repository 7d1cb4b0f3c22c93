package session

// Result is the only outcome vocabulary a task execution may return.
// Success and Skipped both mean "do not retry"; Failed means the monitor
// withholds its snapshot commit so the same delta is re-detected next cycle.
type Result int

const (
	Success Result = iota
	Skipped
	Failed
)

// Retryable reports whether the monitor should hold back its commit.
func (r Result) Retryable() bool { return r == Failed }

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
