// Package match scores similarity between free-text labels from the
// two reconciliation sources. Operator-typed job names differ in
// casing, word order, and trailing region codes, so the score is the
// maximum of four measures: plain ratio, partial-substring ratio,
// token-sort ratio, and token-set ratio.
package match

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Default confidence thresholds. Scores below the threshold yield no
// match at all, never a low-confidence guess.
const (
	DefaultThreshold      = 80 // cross-source job label matching
	EmployeeThreshold     = 70 // same-batch employee/job disambiguation
	DuplicateJobThreshold = 85 // duplicate-job detection within a branch
)

var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Candidate is one label offered for matching, carrying the caller's
// identifier through to the result.
type Candidate struct {
	ID    int64
	Label string
}

// Result is the winning candidate and its 0-100 score.
type Result struct {
	Candidate Candidate
	Score     int
}

// Score returns the 0-100 similarity of two labels: the maximum of the
// four ratios over normalized text. Two empty labels score zero rather
// than a vacuous 100.
func Score(a, b string) int {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	best := ratio(na, nb)
	if s := partialRatio(na, nb); s > best {
		best = s
	}
	if s := tokenSortRatio(na, nb); s > best {
		best = s
	}
	if s := tokenSetRatio(na, nb); s > best {
		best = s
	}
	return best
}

// BestMatch scans candidates in order and returns the highest-scoring
// one at or above minScore. Ties break to the first candidate scanned,
// so identical inputs always produce identical results.
func BestMatch(target string, candidates []Candidate, minScore int) (Result, bool) {
	var best Result
	found := false
	for _, cand := range candidates {
		score := Score(target, cand.Label)
		if score < minScore {
			continue
		}
		if !found || score > best.Score {
			best = Result{Candidate: cand, Score: score}
			found = true
		}
	}
	return best, found
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func tokens(s string) []string {
	parts := tokenSplitPattern.Split(s, -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ratio is the levenshtein similarity of the two strings as a 0-100
// score: (len(a)+len(b)-distance) / (len(a)+len(b)).
func ratio(a, b string) int {
	if a == b {
		return 100
	}
	la, lb := len([]rune(a)), len([]rune(b))
	if la+lb == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	score := int(float64(la+lb-2*dist)/float64(la+lb)*100 + 0.5)
	if score < 0 {
		return 0
	}
	return score
}

// partialRatio slides the shorter string across the longer one and
// takes the best window ratio, so "dale fairchild" still scores high
// against "dale fairchild - ora".
func partialRatio(a, b string) int {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		return 0
	}
	if len(shorter) == len(longer) {
		return ratio(string(shorter), string(longer))
	}
	best := 0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		window := string(longer[i : i+len(shorter)])
		if s := ratio(string(shorter), window); s > best {
			best = s
			if best == 100 {
				break
			}
		}
	}
	return best
}

func tokenSortRatio(a, b string) int {
	return ratio(sortedTokens(a), sortedTokens(b))
}

func sortedTokens(s string) string {
	toks := tokens(s)
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

// tokenSetRatio compares the shared-token core against each side's
// full token set, which tolerates one label carrying extra words.
func tokenSetRatio(a, b string) int {
	setA := tokenSet(a)
	setB := tokenSet(b)

	var shared, onlyA, onlyB []string
	for tok := range setA {
		if setB[tok] {
			shared = append(shared, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if !setA[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(shared)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	core := strings.Join(shared, " ")
	fullA := strings.TrimSpace(core + " " + strings.Join(onlyA, " "))
	fullB := strings.TrimSpace(core + " " + strings.Join(onlyB, " "))

	best := ratio(core, fullA)
	if s := ratio(core, fullB); s > best {
		best = s
	}
	if s := ratio(fullA, fullB); s > best {
		best = s
	}
	return best
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokens(s) {
		set[tok] = true
	}
	return set
}
