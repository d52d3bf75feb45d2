package titles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func str(s string) *string { return &s }

func TestClassify(t *testing.T) {
	w := Defaults()
	tests := []struct {
		name  string
		title *string
		want  float64
	}{
		{"ceo", str("CEO"), 1.00},
		{"lowercase", str("director"), 0.75},
		{"max wins over first match", str("Pres, CEO"), 1.00},
		{"10 percent owner", str("10% Owner"), 0.60},
		{"vp", str("EVP, General Counsel"), 0.50},
		{"unmatched", str("Secretary"), 0.30},
		{"nil", nil, 0.30},
		{"empty", str(""), 0.30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Classify(tt.title, w), 1e-12)
		})
	}
}

func TestClassifyCollisionResolvesByValue(t *testing.T) {
	w := map[string]float64{"DIR": 0.9, "DIRECTOR": 0.2, Unknown: 0.1}
	assert.Equal(t, 0.9, Classify(str("Director"), w))
}

func TestClassifyMissingUnknownKey(t *testing.T) {
	assert.Equal(t, DefaultUnknownWeight, Classify(str("nobody"), map[string]float64{"CEO": 1}))
}

func TestMergeDoesNotMutateDefaults(t *testing.T) {
	merged := Merge(map[string]float64{"ceo": 0.2, "treasurer": 0.4})
	assert.Equal(t, 0.2, merged["CEO"])
	assert.Equal(t, 0.4, merged["TREASURER"])
	assert.Equal(t, 1.00, Defaults()["CEO"])
	_, ok := Defaults()["TREASURER"]
	assert.False(t, ok)
}
