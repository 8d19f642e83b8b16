package trading

import (
	"math/rand/v2"
	"strings"
)

const (
	// DepositAddressLength is the size of the demo deposit address.
	DepositAddressLength = 15
	// TransactionIDLength is the size of the demo withdrawal transaction id.
	TransactionIDLength = 20
	// AddressEchoLength is how many characters of the wallet address are echoed back.
	AddressEchoLength = 15

	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// TokenSource produces cosmetic random identifiers.
type TokenSource interface {
	Token(n int) string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(n int) string

// Token calls f(n).
func (f TokenFunc) Token(n int) string {
	return f(n)
}

// RandomTokens draws every character uniformly from A-Z. Not suitable for secrets.
var RandomTokens TokenSource = TokenFunc(RandomToken)

// RandomToken returns n uppercase ASCII letters.
func RandomToken(n int) string {
	if n <= 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(tokenAlphabet[rand.IntN(len(tokenAlphabet))])
	}

	return b.String()
}
