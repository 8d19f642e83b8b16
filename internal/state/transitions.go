package state

// validTransitions contains the permitted transitions besides staying in place and returning to idle.
var validTransitions = map[State][]State{
	StateIdle: {
		StateAwaitingWalletAddress,
	},
	StateAwaitingWalletAddress: {
		StateIdle,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if from == to && isKnown(to) {
		return true
	}
	if to == StateIdle {
		return true
	}

	for _, state := range validTransitions[from] {
		if state == to {
			return true
		}
	}

	return false
}

func isKnown(s State) bool {
	_, ok := validTransitions[s]
	return ok
}
