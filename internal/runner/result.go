package runner

// Result summarises a run that was drained to completion.
type Result struct {
	RunID     string // unique identifier for this run
	ExitCode  int    // process exit code; -1 when the run ended with an error event
	Error     string // message of the terminal error event, if any
	Output    []byte // interleaved output, stderr chunks prefixed with "[stderr] "
	Truncated bool   // true if output exceeded the size cap
}

// Success reports whether the script exited with status 0.
func (r *Result) Success() bool {
	return r.Error == "" && r.ExitCode == 0
}

// StderrPrefix marks stderr chunks in a combined log.
const StderrPrefix = "[stderr] "
