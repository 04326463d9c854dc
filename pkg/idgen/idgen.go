// Package idgen produces ledger document identifiers.
//
// Identifiers are TypeIDs ("fee_01h2xcejqtf2nbrexx3vqjhp41"): short, URL-safe,
// K-sortable and generated without coordination.
package idgen

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefixes used by the ledgers.
const (
	PrefixFee     = "fee"
	PrefixPayment = "pay"
)

// New generates an identifier with the given prefix. It panics on an invalid
// prefix since prefixes are compile-time constants.
func New(prefix string) string {
	tid, err := typeid.Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("idgen: invalid prefix %q: %v", prefix, err))
	}
	return tid.String()
}

// Sequence returns a deterministic generator for tests: prefix_1, prefix_2, ...
func Sequence() func(prefix string) string {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s_%d", prefix, n)
	}
}
