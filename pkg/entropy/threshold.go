package entropy

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"
)

//go:embed data/entropy_table.json
var tableJSON []byte

// Stat is the sampled mean and standard deviation of the entropy of random
// strings of one class and length.
type Stat struct {
	Mean  float64 `json:"mean"`
	Stdev float64 `json:"stdev"`
}

// Table maps class -> length -> Stat. It is keyed by decimal length strings
// on disk so the file stays compatible with other generators.
type Table map[Class]map[int]Stat

// MarshalJSON writes lengths as string keys.
func (t Table) MarshalJSON() ([]byte, error) {
	out := make(map[Class]map[string]Stat, len(t))
	for class, lengths := range t {
		m := make(map[string]Stat, len(lengths))
		for l, s := range lengths {
			m[strconv.Itoa(l)] = s
		}
		out[class] = m
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads lengths from string keys.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw map[Class]map[string]Stat
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Table, len(raw))
	for class, lengths := range raw {
		m := make(map[int]Stat, len(lengths))
		for key, s := range lengths {
			l, err := strconv.Atoi(key)
			if err != nil {
				return fmt.Errorf("entropy table %s: invalid length %q", class, key)
			}
			m[l] = s
		}
		out[class] = m
	}
	*t = out
	return nil
}

// Lookup returns the Stat for a class and length.
func (t Table) Lookup(class Class, length int) (Stat, bool) {
	lengths, ok := t[class]
	if !ok {
		return Stat{}, false
	}
	s, ok := lengths[length]
	return s, ok
}

var zScores = map[string]float64{
	"95":    1.645,
	"99":    2.326,
	"99.5":  2.576,
	"99.9":  3.090,
	"99.95": 3.291,
}

// ZScore returns the one-sided z-score for a supported percentile
// (95, 99, 99.5, 99.9, 99.95).
func ZScore(percentile float64) (float64, bool) {
	z, ok := zScores[strconv.FormatFloat(percentile, 'f', -1, 64)]
	return z, ok
}

// Percentiles lists the supported percentiles.
func Percentiles() []float64 {
	return []float64{95, 99, 99.5, 99.9, 99.95}
}

var (
	defaultOnce  sync.Once
	defaultTable Table
	defaultErr   error
)

// Default returns the embedded table. It is parsed once and shared read-only.
func Default() (Table, error) {
	defaultOnce.Do(func() {
		defaultErr = json.Unmarshal(tableJSON, &defaultTable)
	})
	return defaultTable, defaultErr
}

// Threshold returns mean - z(percentile)*stdev for the class and length.
// A missing entry or unsupported percentile yields +Inf, which no entropy
// value can reach.
func (t Table) Threshold(class Class, length int, percentile float64) float64 {
	s, ok := t.Lookup(class, length)
	if !ok {
		return math.Inf(1)
	}
	cut, ok := s.Cutoff(percentile)
	if !ok {
		return math.Inf(1)
	}
	return cut
}

// Cutoff returns the entropy that a random string drawn like s reaches
// with the given probability, mean - z(percentile)*stdev.
func (s Stat) Cutoff(percentile float64) (float64, bool) {
	z, ok := ZScore(percentile)
	if !ok {
		return 0, false
	}
	return s.Mean - z*s.Stdev, true
}

// Threshold uses the embedded table.
func Threshold(class Class, length int, percentile float64) float64 {
	t, err := Default()
	if err != nil {
		return math.Inf(1)
	}
	return t.Threshold(class, length, percentile)
}
