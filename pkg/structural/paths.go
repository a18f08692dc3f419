// Package structural computes routing-topology metrics: path statistics per
// time window and betweenness centrality of the attacker over the observed
// radio topology.
package structural

import (
	"strings"
)

// ParsePath splits a serialized path like "3>2>1" into trimmed, non-empty
// tokens. A missing path yields an empty sequence.
func ParsePath(path, separator string) []string {
	if path == "" {
		return nil
	}
	tokens := make([]string, 0, 4)
	for _, token := range strings.Split(path, separator) {
		token = strings.TrimSpace(token)
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// AveragePathLength is the mean hop count over non-empty paths, where hop
// count is token count minus one, clamped at zero. 0.0 for an empty group.
func AveragePathLength(paths [][]string) float64 {
	total := 0
	count := 0
	for _, path := range paths {
		if len(path) == 0 {
			continue
		}
		hops := len(path) - 1
		if hops < 0 {
			hops = 0
		}
		total += hops
		count++
	}
	if count == 0 {
		return 0.0
	}
	return float64(total) / float64(count)
}

// PathDiversity is the number of distinct ordered paths, ignoring empties.
func PathDiversity(paths [][]string, separator string) int {
	unique := make(map[string]bool)
	for _, path := range paths {
		if len(path) == 0 {
			continue
		}
		unique[strings.Join(path, separator)] = true
	}
	return len(unique)
}

// AttackExposure is the fraction of non-empty paths that traverse the
// attacker. 0.0 for an empty group.
func AttackExposure(paths [][]string, attackerID string) float64 {
	exposed := 0
	count := 0
	for _, path := range paths {
		if len(path) == 0 {
			continue
		}
		count++
		for _, token := range path {
			if token == attackerID {
				exposed++
				break
			}
		}
	}
	if count == 0 {
		return 0.0
	}
	return float64(exposed) / float64(count)
}
