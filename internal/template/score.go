package template

import (
	"path/filepath"
	"sort"
	"time"
)

// Candidate describes the file/schema being matched against the
// template store.
type Candidate struct {
	AbsolutePath string
	RelativePath string
	Columns      []string
}

// glob syntax: '*' matches any run, '?' matches a single char; exact
// when the pattern has no wildcard (spec §4.K).
func globMatch(pattern, s string) bool {
	return globMatchRunes([]rune(pattern), []rune(s))
}

func globMatchRunes(pattern, s []rune) bool {
	if len(pattern) == 0 {
		return len(s) == 0
	}
	switch pattern[0] {
	case '*':
		if globMatchRunes(pattern[1:], s) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if globMatchRunes(pattern[1:], s[i+1:]) {
				return true
			}
		}
		return false
	case '?':
		if len(s) == 0 {
			return false
		}
		return globMatchRunes(pattern[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != pattern[0] {
			return false
		}
		return globMatchRunes(pattern[1:], s[1:])
	}
}

func wildcardCount(pattern string) int {
	n := 0
	for _, r := range pattern {
		if r == '*' || r == '?' {
			n++
		}
	}
	return n
}

// specificityBonus maps wildcard count to the spec §4.K bonus table.
func specificityBonus(wildcards int) int {
	switch wildcards {
	case 0:
		return 10
	case 1:
		return 5
	case 2:
		return 3
	case 3:
		return 1
	default:
		return 0
	}
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

func partialColumnMatches(templateCols, candidateCols []string) int {
	set := make(map[string]bool, len(candidateCols))
	for _, c := range candidateCols {
		set[c] = true
	}
	n := 0
	for _, c := range templateCols {
		if set[c] {
			n++
		}
	}
	return n
}

// Score ranks t against cand per the spec §4.K table: exact path+schema
// (2000), exact path (1000), relative path+schema (1950), relative path
// (950), schema-only (900), path/filename glob hits with a specificity
// bonus, partial schema (2/column), capped usage count, recency bonus,
// and an age penalty.
func Score(t *Template, cand Candidate, now time.Time) int {
	score := 0
	schemaMatches := t.Columns != nil && sameColumns(t.Columns, cand.Columns)

	switch {
	case t.AbsolutePath != "" && t.AbsolutePath == cand.AbsolutePath && schemaMatches:
		score += 2000
	case t.AbsolutePath != "" && t.AbsolutePath == cand.AbsolutePath:
		score += 1000
	case t.RelativePath != "" && t.RelativePath == cand.RelativePath && schemaMatches:
		score += 1950
	case t.RelativePath != "" && t.RelativePath == cand.RelativePath:
		score += 950
	case schemaMatches:
		score += 900
	default:
		if t.AbsolutePath != "" && wildcardCount(t.AbsolutePath) > 0 && globMatch(t.AbsolutePath, cand.AbsolutePath) {
			score += 50 + specificityBonus(wildcardCount(t.AbsolutePath))
		} else if t.AbsolutePath != "" {
			pattern := filepath.Base(t.AbsolutePath)
			if wildcardCount(pattern) > 0 && globMatch(pattern, filepath.Base(cand.AbsolutePath)) {
				score += 30 + specificityBonus(wildcardCount(pattern))
			}
		}
		score += 2 * partialColumnMatches(t.Columns, cand.Columns)
	}

	if t.UsageCount > 0 {
		uses := t.UsageCount
		if uses > 10 {
			uses = 10
		}
		score += uses
	}

	if t.LastUsedAt > 0 {
		elapsed := now.Sub(time.Unix(t.LastUsedAt, 0))
		switch {
		case elapsed <= 7*24*time.Hour:
			score += 5
		case elapsed <= 30*24*time.Hour:
			score += 2
		}
	}

	if t.CreatedAt > 0 {
		age := now.Sub(time.Unix(t.CreatedAt, 0))
		months := int(age / (30 * 24 * time.Hour))
		score -= months
	}

	return score
}

// Best returns the highest-scoring template for cand, ties broken by
// more recent LastUsedAt (spec §4.K).
func Best(templates []*Template, cand Candidate, now time.Time) *Template {
	var best *Template
	bestScore := 0
	for _, t := range templates {
		s := Score(t, cand, now)
		if best == nil || s > bestScore || (s == bestScore && t.LastUsedAt > best.LastUsedAt) {
			best = t
			bestScore = s
		}
	}
	return best
}
