package intent

// Decision is what the dispatcher does with a classified message.
type Decision int

const (
	Execute Decision = iota
	ExecuteLowConfidence
	Clarify
	Converse
)

const (
	ExecuteThreshold = 0.85
	ClarifyThreshold = 0.70
)

func (d Decision) String() string {
	switch d {
	case Execute:
		return "execute"
	case ExecuteLowConfidence:
		return "execute_low_confidence"
	case Clarify:
		return "clarify"
	default:
		return "converse"
	}
}

// Gate applies the confidence contract. Only Execute and
// ExecuteLowConfidence may cause side effects.
func Gate(r Result) Decision {
	switch {
	case r.Confidence >= ExecuteThreshold:
		return Execute
	case r.Confidence >= ClarifyThreshold:
		return ExecuteLowConfidence
	case len(r.Alternatives) > 0:
		return Clarify
	default:
		return Converse
	}
}
