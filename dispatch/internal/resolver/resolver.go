// Package resolver selects the most specific applicable method for a call.
//
// Each dispatch argument contributes a chain: its class linearization followed
// by ANY. The rank of a signature element is its index in that chain, so lower
// ranks are more specific. A signature applies when every element has a rank.
//
// Signature A is more specific than B when A's rank is no greater than B's at
// every position and strictly lower at the first position where they differ,
// scanning left to right. The selected method is the one more specific than
// every other applicable method; when several applicable methods are left
// that no other one beats, the call is ambiguous.
package resolver

import (
	"slices"

	"github.com/on-the-ground/dispatch_ive_go/dispatch/model"
)

// Chain appends ANY to a class linearization.
func Chain(linearization []string) []string {
	chain := make([]string, 0, len(linearization)+1)
	chain = append(chain, linearization...)
	return append(chain, model.Any)
}

// MissingChain is the chain of an argument the caller did not supply.
func MissingChain() []string {
	return []string{model.Missing, model.Any}
}

// Ranks returns the rank of each signature element within the matching chain,
// and false when the signature does not apply.
func Ranks(sig model.Signature, chains [][]string) ([]int, bool) {
	if len(sig) != len(chains) {
		return nil, false
	}
	ranks := make([]int, len(sig))
	for i, class := range sig {
		rank := slices.Index(chains[i], class)
		if rank < 0 {
			return nil, false
		}
		ranks[i] = rank
	}
	return ranks, true
}

// MoreSpecific reports whether ranks a beat ranks b.
func MoreSpecific(a, b []int) bool {
	decided := false
	for i := range a {
		switch {
		case a[i] > b[i]:
			return false
		case a[i] < b[i] && !decided:
			decided = true
		}
	}
	return decided
}

type applicable struct {
	method *model.Method
	ranks  []int
}

// Select picks the most specific method among candidates.
// classes are the leaf classes of the call and only feed error details.
func Select(
	generic string,
	classes []string,
	chains [][]string,
	candidates []*model.Method,
) (*model.Method, error) {
	var matches []applicable
	for _, m := range candidates {
		if ranks, ok := Ranks(m.Signature, chains); ok {
			matches = append(matches, applicable{method: m, ranks: ranks})
		}
	}
	if len(matches) == 0 {
		return nil, &model.NoApplicableMethodError{Generic: generic, Classes: slices.Clone(classes)}
	}

	var maximal []applicable
	for i, m := range matches {
		beaten := false
		for j, other := range matches {
			if i != j && MoreSpecific(other.ranks, m.ranks) {
				beaten = true
				break
			}
		}
		if !beaten {
			maximal = append(maximal, m)
		}
	}

	if len(maximal) == 1 {
		return maximal[0].method, nil
	}

	tied := make([]model.Signature, len(maximal))
	for i, m := range maximal {
		tied[i] = m.method.Signature
	}
	slices.SortFunc(tied, func(a, b model.Signature) int {
		return slices.Compare(a, b)
	})
	return nil, &model.AmbiguousDispatchError{
		Generic:    generic,
		Classes:    slices.Clone(classes),
		Candidates: tied,
	}
}
