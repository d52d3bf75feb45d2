package percentile

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestRank(t *testing.T) {
	tests := []struct {
		name string
		in   []*float64
		want []float64
	}{
		{"empty", nil, []float64{}},
		{"single", []*float64{f(7)}, []float64{1}},
		{"distinct", []*float64{f(30), f(10), f(20)}, []float64{1, 1.0 / 3, 2.0 / 3}},
		{"ties average", []*float64{f(1), f(2), f(2), f(3)}, []float64{0.25, 0.625, 0.625, 1}},
		{"all equal", []*float64{f(5), f(5)}, []float64{0.75, 0.75}},
		{"missing excluded", []*float64{f(10), nil, f(20), f(math.NaN())}, []float64{0.5, 0, 1, 0}},
		{"all missing", []*float64{nil, nil}, []float64{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(tt.in)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12, "index %d", i)
			}
		})
	}
}

func TestRankMissingDoesNotShiftOthers(t *testing.T) {
	dense := Rank([]*float64{f(3), f(1), f(2)})
	sparse := Rank([]*float64{nil, f(3), nil, f(1), f(2), nil})
	assert.Equal(t, []float64{dense[0], dense[1], dense[2]}, []float64{sparse[1], sparse[3], sparse[4]})
	assert.Equal(t, 0.0, sparse[0])
	assert.Equal(t, 0.0, sparse[5])
}

func TestRankBoundedMonotoneAndOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vals := make([]float64, 200)
	for i := range vals {
		vals[i] = float64(rng.Intn(40)) - 10
	}
	got := Rank(Floats(vals))
	for i := range vals {
		assert.GreaterOrEqual(t, got[i], 0.0)
		assert.LessOrEqual(t, got[i], 1.0)
		for j := range vals {
			if vals[i] < vals[j] {
				assert.Less(t, got[i], got[j])
			}
		}
	}

	perm := rng.Perm(len(vals))
	shuffled := make([]float64, len(vals))
	for i, p := range perm {
		shuffled[i] = vals[p]
	}
	gotShuffled := Rank(Floats(shuffled))
	for i, p := range perm {
		assert.Equal(t, got[p], gotShuffled[i])
	}
}

func TestInverse(t *testing.T) {
	got := Inverse([]*float64{f(100), f(50), f(200), nil})
	assert.InDelta(t, 1.0/3, got[0], 1e-12)
	assert.InDelta(t, 2.0/3, got[1], 1e-12)
	assert.InDelta(t, 0, got[2], 1e-12)
	assert.Equal(t, 0.0, got[3])
	assert.Greater(t, got[1], got[0])
}

func TestInts(t *testing.T) {
	two := 2
	got := Ints([]*int{&two, nil})
	require.NotNil(t, got[0])
	assert.Equal(t, 2.0, *got[0])
	assert.Nil(t, got[1])
}
