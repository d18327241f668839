package knowledge

import (
	"math"
	"strings"
	"unicode"
)

// ============================================================================
// Similarity Scoring
// ============================================================================

// abbreviationBonus is added on top of the character ratio when one name
// reads as an abbreviation of the other ("Jef A" vs "Jef Adriaenssens").
const abbreviationBonus = 0.3

// StringSimilarity computes a similarity score between two entity names.
// Three signals compete: a matching-blocks character ratio, whitespace token
// overlap (handles reordered multi-word names), and an abbreviation bonus.
// The result is the maximum of the signals and is not clamped; callers that
// blend it with other scores clamp the final value.
func StringSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	ratio := matchingBlocksRatio([]rune(a), []rune(b))
	overlap := tokenOverlap(a, b)

	score := math.Max(ratio, overlap)
	if isAbbreviation(a, b) {
		score = math.Max(score, ratio+abbreviationBonus)
	}
	return score
}

// CombinedSimilarity blends string and semantic similarity. A nil semantic
// score means no embedding was available and the string score stands alone.
// The blend is clamped to 1.0.
func CombinedSimilarity(stringSim float64, semanticSim *float64) float64 {
	if semanticSim == nil {
		return math.Min(stringSim, 1.0)
	}
	combined := 0.6*stringSim + 0.4**semanticSim
	return math.Min(combined, 1.0)
}

// CosineSimilarity computes the cosine of the angle between two embedding
// vectors, 0 when either is empty or the dimensions disagree.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// matchingBlocksRatio is the classic longest-matching-blocks ratio:
// 2*M / (len(a)+len(b)) where M counts characters in common blocks found by
// recursively taking the longest common substring and matching around it.
func matchingBlocksRatio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matchingChars(a, b)) / float64(total)
}

func matchingChars(a, b []rune) int {
	ai, bi, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}
	matched := size
	matched += matchingChars(a[:ai], b[:bi])
	matched += matchingChars(a[ai+size:], b[bi+size:])
	return matched
}

func longestCommonBlock(a, b []rune) (bestA, bestB, bestSize int) {
	// lengths[j] holds the common-suffix length ending at a[i-1], b[j-1]
	lengths := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		prev := 0
		for j := 1; j <= len(b); j++ {
			cur := lengths[j]
			if a[i-1] == b[j-1] {
				lengths[j] = prev + 1
				if lengths[j] > bestSize {
					bestSize = lengths[j]
					bestA = i - bestSize
					bestB = j - bestSize
				}
			} else {
				lengths[j] = 0
			}
			prev = cur
		}
	}
	return bestA, bestB, bestSize
}

// tokenOverlap splits both names on whitespace and measures shared tokens
// against the larger token set
func tokenOverlap(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	setA := make(map[string]bool, len(tokensA))
	for _, t := range tokensA {
		setA[t] = true
	}
	setB := make(map[string]bool, len(tokensB))
	for _, t := range tokensB {
		setB[t] = true
	}

	shared := 0
	for t := range setA {
		if setB[t] {
			shared++
		}
	}

	larger := len(setA)
	if len(setB) > larger {
		larger = len(setB)
	}
	return float64(shared) / float64(larger)
}

// isAbbreviation reports whether the shorter name's alphanumeric characters
// appear as a subsequence of the longer name's
func isAbbreviation(a, b string) bool {
	shorter, longer := alnumOnly(a), alnumOnly(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 || len(shorter) == len(longer) {
		return false
	}
	return isSubsequence(shorter, longer)
}

func alnumOnly(s string) []rune {
	var out []rune
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return out
}

func isSubsequence(needle, haystack []rune) bool {
	i := 0
	for _, r := range haystack {
		if i < len(needle) && needle[i] == r {
			i++
		}
	}
	return i == len(needle)
}
