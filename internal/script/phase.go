package script

// Phase is the position of a load attempt in its lifecycle.
type Phase int

// Load phases.
const (
	// PhaseIdle - no attempt in progress.
	PhaseIdle Phase = iota

	// PhaseSourceLocated - the source file was found and read.
	PhaseSourceLocated

	// PhaseInterpreterCreated - an interpreter exists for the attempt.
	PhaseInterpreterCreated

	// PhaseAPIBound - the catalog is installed in the namespace.
	PhaseAPIBound

	// PhaseExecuting - the top level is running.
	PhaseExecuting

	// PhaseRegistrationConfirmed - the script registered exactly once.
	PhaseRegistrationConfirmed

	// PhaseRegistrationMissing - the run ended without a registration.
	PhaseRegistrationMissing

	// PhaseExecutionFailed - the top level raised an error.
	PhaseExecutionFailed

	// PhaseLoadFailed - the attempt failed before execution.
	PhaseLoadFailed

	// PhaseCommitted - the script is in the registry.
	PhaseCommitted

	// PhaseRolledBack - the attempt was discarded.
	PhaseRolledBack
)

// String returns a string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSourceLocated:
		return "source-located"
	case PhaseInterpreterCreated:
		return "interpreter-created"
	case PhaseAPIBound:
		return "api-bound"
	case PhaseExecuting:
		return "executing"
	case PhaseRegistrationConfirmed:
		return "registration-confirmed"
	case PhaseRegistrationMissing:
		return "registration-missing"
	case PhaseExecutionFailed:
		return "execution-failed"
	case PhaseLoadFailed:
		return "load-failed"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// IsTerminal returns true once the attempt is committed or rolled back.
func (p Phase) IsTerminal() bool {
	return p == PhaseCommitted || p == PhaseRolledBack
}
