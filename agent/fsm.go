package agent

// Phase enumerates the stops of the turn loop.
type Phase int

const (
	PhaseClassify Phase = iota
	PhaseRewrite
	PhaseDispatch
	PhaseSynthesize
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseClassify:
		return "classify"
	case PhaseRewrite:
		return "rewrite"
	case PhaseDispatch:
		return "dispatch"
	case PhaseSynthesize:
		return "synthesize"
	case PhaseDone:
		return "done"
	}
	return "unknown"
}

// Next is the pure transition function. The driver in RunTurn executes
// a phase's side effects, updates the state, then asks Next where to go.
func Next(p Phase, st *State, maxIterations int) Phase {
	switch p {
	case PhaseClassify:
		if st.Decision.Intent.ShortCircuits() {
			return PhaseDone
		}
		return PhaseRewrite
	case PhaseRewrite:
		return PhaseDispatch
	case PhaseDispatch:
		return PhaseSynthesize
	case PhaseSynthesize:
		if st.Insufficient && st.Iterations < maxIterations {
			return PhaseClassify
		}
		return PhaseDone
	}
	return PhaseDone
}
