package detect

// similarity scores how closely phrase occurs anywhere inside text, from 0
// to 1. It is 1 - d/len(phrase), where d is the smallest edit distance
// (insertions, deletions, substitutions, adjacent transpositions) between
// phrase and any substring of text.
func similarity(phrase, text string) float64 {
	p := []rune(phrase)
	t := []rune(text)
	m := len(p)
	if m == 0 {
		return 0
	}

	// Rows are indexed by text position. Row 0 is all zeros so a match may
	// start anywhere in text.
	prev2 := make([]int, len(t)+1)
	prev := make([]int, len(t)+1)
	cur := make([]int, len(t)+1)

	for i := 1; i <= m; i++ {
		cur[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if p[i-1] == t[j-1] {
				cost = 0
			}
			d := min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && p[i-1] == t[j-2] && p[i-2] == t[j-1] {
				d = min(d, prev2[j-2]+1)
			}
			cur[j] = d
		}
		prev2, prev, cur = prev, cur, prev2
	}

	best := prev[0]
	for _, d := range prev[1:] {
		best = min(best, d)
	}
	if best >= m {
		return 0
	}
	return 1 - float64(best)/float64(m)
}
