package entropy

import (
	"math"
	"math/rand"
	"strings"
)

// Sample draws runs random strings of the given length from alphabet and
// returns the mean and population standard deviation of their entropy.
func Sample(rng *rand.Rand, alphabet string, length, runs int) Stat {
	if runs <= 0 || length <= 0 || alphabet == "" {
		return Stat{}
	}

	chars := []rune(alphabet)
	results := make([]float64, runs)
	var sb strings.Builder
	for i := 0; i < runs; i++ {
		sb.Reset()
		for j := 0; j < length; j++ {
			sb.WriteRune(chars[rng.Intn(len(chars))])
		}
		results[i] = Shannon(sb.String())
	}

	var sum float64
	for _, r := range results {
		sum += r
	}
	mean := sum / float64(runs)

	var variance float64
	for _, r := range results {
		variance += (r - mean) * (r - mean)
	}
	return Stat{Mean: mean, Stdev: math.Sqrt(variance / float64(runs))}
}

// GenerateTable samples every class for lengths minLen..maxLen inclusive.
func GenerateTable(rng *rand.Rand, minLen, maxLen, runs int) Table {
	t := make(Table, len(Classes))
	for _, class := range Classes {
		lengths := make(map[int]Stat, maxLen-minLen+1)
		for l := minLen; l <= maxLen; l++ {
			lengths[l] = Sample(rng, class.Alphabet(), l, runs)
		}
		t[class] = lengths
	}
	return t
}
