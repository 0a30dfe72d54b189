package hfs

// RunContext carries the mode flags, reporter sink, and operator prompt for
// a single checker/formatter invocation, replacing the source's process-wide
// `options` word and global `hfs_error` string (design note §9).
type RunContext struct {
	// ReadOnly mirrors -n: no write is ever issued; conditions that would
	// require one are reported with Fixed false and a "(read-only, not
	// corrected)" note appended to the description.
	ReadOnly bool

	// AutoRepair mirrors -a/-p/-y: apply the decision matrix's "Auto mode"
	// column without prompting.
	AutoRepair bool

	// Interactive mirrors -r: every repairable condition is put to Prompt,
	// resolved through PromptFunc.
	Interactive bool

	// Force mirrors -f: proceed even if the volume already looks clean.
	Force bool

	// Verbose mirrors -v. Check does not consult it: every phase is passed
	// to Reporter.PhaseStarted whatever its value, and no field dumps are
	// produced.
	Verbose bool

	// Reporter receives every InvariantViolation and phase transition.
	Reporter Reporter

	// PromptFunc resolves a Prompt-class decision-matrix entry when neither
	// AutoRepair nor ReadOnly settles it outright. Returns true to apply the
	// repair. A nil PromptFunc is treated as always answering "no".
	PromptFunc func(description string) bool

	// aborted is set by RequestAbort and consulted at phase boundaries
	// (§5's cooperative SIGINT handling).
	aborted bool
}

// RequestAbort sets the sticky abort flag consulted between phases. It is
// safe to call from a signal handler; RunContext performs no locking because
// the engine is single-threaded and synchronous (§5).
func (rc *RunContext) RequestAbort() {
	rc.aborted = true
}

// aborting reports whether an abort has been requested.
func (rc *RunContext) aborting() bool {
	return rc.aborted
}

// resolve applies the §4.7 decision matrix for a single repairable
// condition: ReadOnly always reports without writing; AutoRepair applies the
// fix; Interactive calls PromptFunc; the default (neither flag set) also
// prompts, matching the source's "Prompt" default behavior.
func (rc *RunContext) resolve(description string) (apply bool, rejected bool) {
	if rc.ReadOnly {
		return false, true
	}
	if rc.AutoRepair {
		return true, false
	}
	if rc.PromptFunc != nil {
		return rc.PromptFunc(description), false
	}
	return false, false
}

// newContext returns a RunContext with a no-op reporter, for callers (tests,
// library embedders) that don't need one.
func newContext() *RunContext {
	return &RunContext{Reporter: &nullReporter{}}
}
