package loader

import (
	"fmt"
	"strconv"
)

// Clip is a named animation of a loaded model. Index points back at the
// animation in the source document and serves as the playable handle.
type Clip struct {
	Name     string
	Index    int
	Duration float32 // seconds, 0 when the sampler inputs are unreadable
	Channels int
}

// ClipNames returns the clip names in order.
func ClipNames(clips []Clip) []string {
	names := make([]string, len(clips))
	for i, c := range clips {
		names[i] = c.Name
	}
	return names
}

// UniqueNames makes names unique while keeping order. Empty names become
// "animation_<index>". A repeated name keeps its first occurrence and later
// ones get "_<n>" with n counting occurrences from 2; suffixes already taken
// by another name are skipped.
//
//	["Walk", "Walk", "Idle"] -> ["Walk", "Walk_2", "Idle"]
func UniqueNames(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	seen := make(map[string]int, len(names))

	// Original names win over generated suffixes.
	for i, n := range names {
		if n == "" {
			n = fmt.Sprintf("animation_%d", i)
		}
		out[i] = n
	}
	for _, n := range out {
		taken[n] = true
	}

	claimed := make(map[string]bool, len(names))
	for i, n := range out {
		seen[n]++
		if !claimed[n] {
			claimed[n] = true
			continue
		}
		k := seen[n]
		candidate := n + "_" + strconv.Itoa(k)
		for taken[candidate] || claimed[candidate] {
			k++
			candidate = n + "_" + strconv.Itoa(k)
		}
		seen[n] = k
		claimed[candidate] = true
		out[i] = candidate
	}
	return out
}
