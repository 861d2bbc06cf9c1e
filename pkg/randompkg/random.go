// Package randompkg provides functionality for generating random ledger items.
package randompkg

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz"
	digits   = "0123456789"
)

// Intn is a shortcut for generating a random integer between 0 and max using crypto/rand.
func Intn(max int64) int64 {
	nBig, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		panic(err)
	}

	return nBig.Int64()
}

// IntBetween generates a random integer between min and max, both inclusive.
func IntBetween(min, max int64) int64 {
	return min + Intn(max-min+1)
}

// AccountID generates a random 8-digit account number.
func AccountID() int32 {
	return int32(IntBetween(10_000_000, 99_999_999))
}

func fromAlphabet(set string, n int) string {
	var sb strings.Builder

	k := int64(len(set))

	for i := 0; i < n; i++ {
		_ = sb.WriteByte(set[Intn(k)]) // The returned err is always nil.
	}

	return sb.String()
}

// String generates a random string of length n.
func String(n int) string {
	return fromAlphabet(alphabet, n)
}

// PIN generates a random 4-digit PIN.
func PIN() string {
	return fromAlphabet(digits, 4)
}

// Owner generates a random owner name.
func Owner() string {
	return String(6)
}

// Email generates a random email.
func Email() string {
	return fmt.Sprintf("%s@email.com", String(10))
}

// Amount generates a random positive amount between min and max.
func Amount(min, max int64) int64 {
	return IntBetween(min, max)
}
