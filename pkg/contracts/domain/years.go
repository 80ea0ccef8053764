package domain

import (
	"fmt"
	"slices"
)

// YearSet is an ascending, duplicate-free list of 4-digit fiscal years.
// It is established once during consolidation and passed explicitly to every
// later stage.
type YearSet []string

// NewYearSet validates, sorts and deduplicates the given years.
func NewYearSet(years ...string) (YearSet, error) {
	out := make(YearSet, 0, len(years))
	for _, y := range years {
		if !IsYear(y) {
			return nil, fmt.Errorf("invalid fiscal year %q", y)
		}
		out = append(out, y)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// IsYear reports whether s is exactly four ASCII digits.
func IsYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Contains reports whether year is part of the set.
func (ys YearSet) Contains(year string) bool {
	_, ok := slices.BinarySearch(ys, year)
	return ok
}

// First returns the earliest year, or "" for an empty set.
func (ys YearSet) First() string {
	if len(ys) == 0 {
		return ""
	}
	return ys[0]
}

// Last returns the latest year, or "" for an empty set.
func (ys YearSet) Last() string {
	if len(ys) == 0 {
		return ""
	}
	return ys[len(ys)-1]
}

// Penultimate returns the year before the latest, or "" with fewer than two years.
func (ys YearSet) Penultimate() string {
	if len(ys) < 2 {
		return ""
	}
	return ys[len(ys)-2]
}

// Since returns the years greater than or equal to from.
func (ys YearSet) Since(from string) YearSet {
	i, _ := slices.BinarySearch(ys, from)
	return ys[i:]
}

// Pairs returns consecutive (previous, next) year pairs in ascending order.
func (ys YearSet) Pairs() [][2]string {
	if len(ys) < 2 {
		return nil
	}
	pairs := make([][2]string, 0, len(ys)-1)
	for i := 0; i+1 < len(ys); i++ {
		pairs = append(pairs, [2]string{ys[i], ys[i+1]})
	}
	return pairs
}
