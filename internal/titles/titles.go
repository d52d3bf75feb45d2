// Package titles maps free-text insider job titles to importance weights.
package titles

import (
	"maps"
	"strings"
)

// Unknown is the fallback key; every weight map must carry it.
const Unknown = "UNKNOWN"

// DefaultUnknownWeight is used when a map somehow lacks Unknown.
const DefaultUnknownWeight = 0.30

var defaultWeights = map[string]float64{
	"CEO":       1.00,
	"CFO":       0.95,
	"COO":       0.90,
	"PRESIDENT": 0.90,
	"CHAIR":     0.90,
	"DIRECTOR":  0.75,
	"10% OWNER": 0.60,
	"OFFICER":   0.50,
	"EXECUTIVE": 0.50,
	"VP":        0.50,
	Unknown:     DefaultUnknownWeight,
	"OTHER":     0.30,
}

// Defaults returns a fresh copy of the default title weights.
func Defaults() map[string]float64 {
	return maps.Clone(defaultWeights)
}

// Merge overlays overrides on the defaults and returns a new map. Keys are
// upper-cased so they match the upper-cased titles.
func Merge(overrides map[string]float64) map[string]float64 {
	out := Defaults()
	for k, v := range overrides {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}

// Classify returns the highest weight among all keys contained in the
// upper-cased title. Specificity does not matter: "CEO, PRESIDENT" scores as
// CEO because CEO carries the larger weight. A nil, blank or unmatched title
// gets the Unknown weight.
func Classify(title *string, weights map[string]float64) float64 {
	fallback, ok := weights[Unknown]
	if !ok {
		fallback = DefaultUnknownWeight
	}
	if title == nil {
		return fallback
	}
	t := strings.ToUpper(*title)
	best, matched := 0.0, false
	for k, w := range weights {
		if k == "" || !strings.Contains(t, k) {
			continue
		}
		if !matched || w > best {
			best, matched = w, true
		}
	}
	if !matched {
		return fallback
	}
	return best
}
