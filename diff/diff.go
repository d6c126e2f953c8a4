// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

// Package diff implements a two-pass diff: a longest common
// subsequence pass that yields raw deletions and insertions, and a
// semantic recovery pass that re-pairs a deletion with an insertion
// that shares its identity key, turning the pair into a modification.
package diff

import (
	"sort"
)

// Pair couples an index in the old sequence with an index in the new
// sequence.
type Pair struct {
	Old int
	New int
}

// LCS computes the longest common subsequence of old and new using
// the supplied equality function, and returns the matched index pairs
// in ascending order. When two subsequences of equal length exist, the
// one using earlier old indices wins.
func LCS[T any](old, new []T, eq func(a, b T) bool) []Pair {
	m, n := len(old), len(new)

	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if eq(old[i-1], new[j-1]) {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] > dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}

	var pairs []Pair
	i, j := m, n
	for i > 0 && j > 0 {
		switch {
		case eq(old[i-1], new[j-1]):
			pairs = append(pairs, Pair{Old: i - 1, New: j - 1})
			i--
			j--
		case dp[i-1][j] >= dp[i][j-1]:
			i--
		default:
			j--
		}
	}

	for l, r := 0, len(pairs)-1; l < r; l, r = l+1, r-1 {
		pairs[l], pairs[r] = pairs[r], pairs[l]
	}
	return pairs
}

// Result describes the difference between two sequences. Deleted
// holds old indices with no counterpart in the new sequence, Inserted
// holds new indices with no counterpart in the old sequence, and
// Modified pairs an old index with the new index that replaced it.
type Result struct {
	LCS      []Pair
	Deleted  []int
	Inserted []int
	Modified []Pair
}

// collect lists the indices on either side that the LCS doesn't cover.
func collect(oldLen, newLen int, lcs []Pair) (deleted, inserted []int) {
	inOld := make(map[int]bool, len(lcs))
	inNew := make(map[int]bool, len(lcs))
	for _, p := range lcs {
		inOld[p.Old] = true
		inNew[p.New] = true
	}
	for i := 0; i < oldLen; i++ {
		if !inOld[i] {
			deleted = append(deleted, i)
		}
	}
	for j := 0; j < newLen; j++ {
		if !inNew[j] {
			inserted = append(inserted, j)
		}
	}
	return deleted, inserted
}

// Diff runs both passes. A deletion and an insertion that share the
// same key are re-paired: if the elements are equal the pair vanishes
// from the diff, otherwise it becomes a modification. When several
// deletions share a key, the last one wins. Unmatched deletions are
// returned in ascending order.
func Diff[T any](old, new []T, eq func(a, b T) bool, key func(T) string) Result {
	res := Result{LCS: LCS(old, new, eq)}
	deleted, inserted := collect(len(old), len(new), res.LCS)

	byKey := make(map[string]int)
	for _, d := range deleted {
		byKey[key(old[d])] = d
	}

	for _, i := range inserted {
		k := key(new[i])
		d, ok := byKey[k]
		if !ok {
			res.Inserted = append(res.Inserted, i)
			continue
		}
		delete(byKey, k)
		if !eq(old[d], new[i]) {
			res.Modified = append(res.Modified, Pair{Old: d, New: i})
		}
	}

	for _, d := range byKey {
		res.Deleted = append(res.Deleted, d)
	}
	sort.Ints(res.Deleted)

	return res
}

// OpKind is the kind of an Op.
type OpKind int

const (
	OpDelete OpKind = iota
	OpInsert
	OpModify
	OpUnchanged
)

func (k OpKind) String() string {
	switch k {
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	case OpModify:
		return "modify"
	case OpUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Op annotates one position of a sequence with the change that applies
// to it. Old is -1 for insertions and New is -1 for deletions.
type Op struct {
	Kind OpKind
	Old  int
	New  int
}

// Ops converts a diff result into two parallel op streams: one
// covering every index of the old sequence in order, and one covering
// every index of the new sequence in order. An element that moved
// appears as unchanged in both streams at its respective positions.
func Ops(oldLen, newLen int, res Result) (oldOps, newOps []Op) {
	modsByOld := append([]Pair(nil), res.Modified...)
	sort.Slice(modsByOld, func(a, b int) bool { return modsByOld[a].Old < modsByOld[b].Old })
	modsByNew := append([]Pair(nil), res.Modified...)
	sort.Slice(modsByNew, func(a, b int) bool { return modsByNew[a].New < modsByNew[b].New })

	d, m, l := 0, 0, 0
	for t := 0; t < oldLen; t++ {
		switch {
		case d < len(res.Deleted) && res.Deleted[d] == t:
			oldOps = append(oldOps, Op{Kind: OpDelete, Old: t, New: -1})
			d++
		case m < len(modsByOld) && modsByOld[m].Old == t:
			oldOps = append(oldOps, Op{Kind: OpModify, Old: t, New: modsByOld[m].New})
			m++
		case l < len(res.LCS) && res.LCS[l].Old == t:
			oldOps = append(oldOps, Op{Kind: OpUnchanged, Old: t, New: res.LCS[l].New})
			l++
		default:
			// A re-paired insertion whose deletion compared
			// equal leaves the index covered by neither list.
			oldOps = append(oldOps, Op{Kind: OpUnchanged, Old: t, New: -1})
		}
	}

	i := 0
	m, l = 0, 0
	for t := 0; t < newLen; t++ {
		switch {
		case i < len(res.Inserted) && res.Inserted[i] == t:
			newOps = append(newOps, Op{Kind: OpInsert, Old: -1, New: t})
			i++
		case m < len(modsByNew) && modsByNew[m].New == t:
			newOps = append(newOps, Op{Kind: OpModify, Old: modsByNew[m].Old, New: t})
			m++
		case l < len(res.LCS) && res.LCS[l].New == t:
			newOps = append(newOps, Op{Kind: OpUnchanged, Old: res.LCS[l].Old, New: t})
			l++
		default:
			newOps = append(newOps, Op{Kind: OpUnchanged, Old: -1, New: t})
		}
	}

	return oldOps, newOps
}
