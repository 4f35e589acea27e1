package text

// Ratio returns a similarity score in [0,1] for two strings, computed
// as 2*LCS/(len(a)+len(b)) over runes. Empty input on either side
// scores 0.
func Ratio(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	if len(ar) == 0 || len(br) == 0 {
		return 0
	}

	// Two-row LCS table keeps memory linear in the shorter string.
	if len(br) > len(ar) {
		ar, br = br, ar
	}
	prev := make([]int, len(br)+1)
	cur := make([]int, len(br)+1)
	for i := 1; i <= len(ar); i++ {
		for j := 1; j <= len(br); j++ {
			switch {
			case ar[i-1] == br[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
		for j := range cur {
			cur[j] = 0
		}
	}
	lcs := prev[len(br)]
	return 2 * float64(lcs) / float64(len(ar)+len(br))
}

// Similarity normalizes both strings for comparison and returns their
// Ratio. Strings that are empty after normalization score 0.
func Similarity(a, b string) float64 {
	return Ratio(NormalizeForComparison(a), NormalizeForComparison(b))
}
