package registry

import (
	"strconv"
	"strings"
)

// CompareVersions implements the registry's version ordering: any
// pre-release suffix after the first '-' is ignored, the remaining dotted
// prefix compares as a numeric (major, minor, patch) triple, and the first
// non-zero difference decides. Non-numeric segments count as zero.
func CompareVersions(first, second string) int {
	firstParts := versionTriple(first)
	secondParts := versionTriple(second)
	for i := 0; i < 3; i++ {
		if firstParts[i] != secondParts[i] {
			if firstParts[i] > secondParts[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

func versionTriple(version string) [3]int {
	base := strings.TrimSpace(version)
	if i := strings.Index(base, "-"); i >= 0 {
		base = base[:i]
	}
	var triple [3]int
	for i, segment := range strings.Split(base, ".") {
		if i >= 3 {
			break
		}
		if n, err := strconv.Atoi(strings.TrimSpace(segment)); err == nil && n >= 0 {
			triple[i] = n
		}
	}
	return triple
}

// MaxVersion returns the greatest version under CompareVersions, with a
// lexicographic tiebreak so the result is deterministic for inputs that
// differ only in pre-release suffix.
func MaxVersion(versions []string) string {
	maxSeen := ""
	for _, candidate := range versions {
		if maxSeen == "" {
			maxSeen = candidate
			continue
		}
		switch CompareVersions(candidate, maxSeen) {
		case 1:
			maxSeen = candidate
		case 0:
			if candidate > maxSeen {
				maxSeen = candidate
			}
		}
	}
	return maxSeen
}

// sortVersions orders version strings by CompareVersions ascending with a
// lexicographic tiebreak; audit traversal depends on this being total.
func sortVersions(versions []string) {
	for i := 1; i < len(versions); i++ {
		for j := i; j > 0; j-- {
			cmp := CompareVersions(versions[j-1], versions[j])
			if cmp < 0 || (cmp == 0 && versions[j-1] <= versions[j]) {
				break
			}
			versions[j-1], versions[j] = versions[j], versions[j-1]
		}
	}
}
