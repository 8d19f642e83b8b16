package state

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "idle to awaiting address", from: StateIdle, to: StateAwaitingWalletAddress, expected: true},
		{name: "awaiting address to idle", from: StateAwaitingWalletAddress, to: StateIdle, expected: true},
		{name: "idle stays idle", from: StateIdle, to: StateIdle, expected: true},
		{name: "awaiting stays awaiting", from: StateAwaitingWalletAddress, to: StateAwaitingWalletAddress, expected: true},
		{name: "unknown state to awaiting invalid", from: State("unknown"), to: StateAwaitingWalletAddress, expected: false},
		{name: "unknown target invalid", from: StateIdle, to: State("buying"), expected: false},
		{name: "any state to idle emergency", from: State("whatever"), to: StateIdle, expected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}
