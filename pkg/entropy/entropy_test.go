package entropy

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func round(x float64) float64 {
	return math.Round(x*100) / 100
}

func TestShannon(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"", 0},
		{"aaaaa", 0},
		{"aafaa", 0.72},
		{"abcdeabcdefj", 2.75},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, round(Shannon(tt.input)))
		})
	}
}

func TestShannon_PermutationInvariant(t *testing.T) {
	s := []rune("wbhnjvknttsogcdncgvo")
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5; i++ {
		shuffled := append([]rune(nil), s...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.InDelta(t, Shannon(string(s)), Shannon(string(shuffled)), 1e-12)
	}
}

func TestShannon_DistinctCharactersMaximize(t *testing.T) {
	for _, s := range []string{"ab", "abcd", "abcdefgh", "0123456789abcdef"} {
		assert.InDelta(t, math.Log2(float64(len(s))), Shannon(s), 1e-12, s)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		token    string
		expected Class
	}{
		{"abcdef", Alpha},
		{"ABCDEF", Alpha},
		{"xyzXYZ", AlphaCase},
		{"deadbeef01", Hex},
		{"DEADBEEF01", Hex},
		{"0123456789", Hex},
		{"abcxyz0123", AlphaNum},
		{"ABCXYZ0123", AlphaNum},
		{"aB3xYz9", AlphaNumCase},
		{"dEadbeef01", AlphaNumCase},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.token))
		})
	}
}

func TestDefaultTable(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	for _, class := range Classes {
		s, ok := table.Lookup(class, 20)
		require.True(t, ok, "missing %s/20", class)
		assert.Greater(t, s.Mean, 0.0)
		assert.Less(t, s.Mean, math.Log2(20)+1e-9)
	}
}

func TestThreshold(t *testing.T) {
	table := Table{
		Hex: {32: {Mean: 3.7, Stdev: 0.1}},
	}

	assert.InDelta(t, 3.7-2.326*0.1, table.Threshold(Hex, 32, 99), 1e-9)
	assert.InDelta(t, 3.7-3.291*0.1, table.Threshold(Hex, 32, 99.95), 1e-9)

	assert.True(t, math.IsInf(table.Threshold(Hex, 33, 99), 1), "missing length")
	assert.True(t, math.IsInf(table.Threshold(Alpha, 32, 99), 1), "missing class")
	assert.True(t, math.IsInf(table.Threshold(Hex, 32, 42), 1), "unknown percentile")
}

func TestStatCutoff(t *testing.T) {
	s := Stat{Mean: 4, Stdev: 0.5}
	cut, ok := s.Cutoff(95)
	require.True(t, ok)
	assert.InDelta(t, 4-1.645*0.5, cut, 1e-9)

	_, ok = s.Cutoff(50)
	assert.False(t, ok)
}

func TestSample(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	s := Sample(rng, Hex.Alphabet(), 32, 500)
	assert.Greater(t, s.Mean, 3.5)
	assert.Less(t, s.Mean, 4.0)
	assert.Greater(t, s.Stdev, 0.0)

	assert.Equal(t, Stat{}, Sample(rng, "", 10, 10))
	assert.Equal(t, Stat{}, Sample(rng, "ab", 10, 0))
}

func TestZScore(t *testing.T) {
	for _, p := range Percentiles() {
		_, ok := ZScore(p)
		assert.True(t, ok, "percentile %v", p)
	}
	_, ok := ZScore(90)
	assert.False(t, ok)
}

func TestGenerateTable(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	table := GenerateTable(rng, 4, 6, 200)

	require.Len(t, table, len(Classes))
	for _, class := range Classes {
		assert.Len(t, table[class], 3)
	}

	data, err := table.MarshalJSON()
	require.NoError(t, err)

	var decoded Table
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.Equal(t, table, decoded)
}
