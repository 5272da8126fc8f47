/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"math/rand"
	"slices"
)

// maxShuffleAttempts bounds the randomized derangement search before the
// deterministic rotation fallback takes over.
const maxShuffleAttempts = 100

// Assign maps every giver in names to a receiver such that the result is a
// permutation of names in which nobody is assigned to themselves. Names must
// be unique. The distribution is not uniform over all derangements; the first
// acceptable shuffle wins.
func Assign(names []string) (map[string]string, error) {
	return assign(names, maxShuffleAttempts)
}

func assign(names []string, attempts int) (map[string]string, error) {
	if len(names) < 2 {
		return nil, errInsufficientParticipants
	}

	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			return nil, errUnsatisfiable
		}
		seen[name] = struct{}{}
	}

	shuffled := slices.Clone(names)

	for attempt := 0; attempt < attempts; attempt++ {
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		if fixedPointFree(names, shuffled) {
			mapping := make(map[string]string, len(names))
			for i, giver := range names {
				mapping[giver] = shuffled[i]
			}
			return mapping, nil
		}
	}

	return rotate(names), nil
}

func fixedPointFree(names, shuffled []string) bool {
	for i := range names {
		if names[i] == shuffled[i] {
			return false
		}
	}
	return true
}

// rotate assigns names[i] to names[(i+1) mod n], which cannot self-match for
// n >= 2. It guarantees the search terminates even if every random attempt
// is rejected.
func rotate(names []string) map[string]string {
	mapping := make(map[string]string, len(names))
	for i, giver := range names {
		mapping[giver] = names[(i+1)%len(names)]
	}
	return mapping
}
