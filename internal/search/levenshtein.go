package search

// levenshtein is the edit distance between a and b over runes.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// fuzziness allows one edit for short prefixes and two from six runes on.
func fuzziness(term string) int {
	if len([]rune(term)) >= 6 {
		return 2
	}
	return 1
}

// prefixMatches reports whether token starts with prefix, or, when fuzzy, whether the
// token's leading runes are within the allowed edit distance of prefix.
func prefixMatches(token, prefix string, fuzzy bool) bool {
	if len(token) >= len(prefix) && token[:len(prefix)] == prefix {
		return true
	}
	if !fuzzy || len([]rune(prefix)) < 3 {
		return false
	}
	rt, rp := []rune(token), []rune(prefix)
	if len(rt) > len(rp) {
		rt = rt[:len(rp)]
	}
	return levenshtein(string(rt), prefix) <= fuzziness(prefix)
}
