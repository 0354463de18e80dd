package job

// Phase is a state of a running job.
type Phase string

const (
	Loading   Phase = "loading"
	Mapping   Phase = "mapping"
	Shuffling Phase = "shuffling"
	Grouping  Phase = "grouping"
	Reducing  Phase = "reducing"
	Done      Phase = "done"
	Failed    Phase = "failed"
)

var phaseOrder = []Phase{Loading, Mapping, Shuffling, Grouping, Reducing, Done}

// Next returns the phase following p on success.
// Terminal phases return themselves.
func (p Phase) Next() Phase {
	for i, ph := range phaseOrder[:len(phaseOrder)-1] {
		if ph == p {
			return phaseOrder[i+1]
		}
	}
	return p
}

// IsTerminal reports whether the job has finished in p.
func (p Phase) IsTerminal() bool {
	return p == Done || p == Failed
}

// CanTransitionTo reports whether a job in p may move to next.
// A job only moves forward one phase at a time, or to Failed from any non-terminal phase.
func (p Phase) CanTransitionTo(next Phase) bool {
	if p.IsTerminal() {
		return false
	}
	if next == Failed {
		return true
	}
	return p.Next() == next
}
