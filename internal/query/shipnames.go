// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package query

import "strings"

// collabPrefixes are ship-name prefixes that stay fully uppercase.
// Collaboration ships carry them verbatim ("AL Montpelier", "STAR
// Kaga"), and title-casing would break the exact-match index lookup.
var collabPrefixes = []string{"AL ", "BA ", "GQ ", "STAR "}

// NormalizeShipName folds free-form ship-name input into the stored
// form: each word title-cased, with collaboration prefixes restored
// to uppercase. The index lookup is exact-match, so "al montpelier"
// must become "AL Montpelier" before it can hit anything.
func NormalizeShipName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}

	normalized := titleCaseWords(name)

	for _, prefix := range collabPrefixes {
		titled := titleCaseWords(prefix)
		if strings.HasPrefix(normalized, titled) {
			normalized = prefix + normalized[len(prefix):]
			break
		}
	}
	return normalized
}

// titleCaseWords uppercases the first letter of every space-separated
// word and lowercases the rest, preserving the separators.
func titleCaseWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	startOfWord := true
	for _, r := range s {
		switch {
		case r == ' ':
			startOfWord = true
			b.WriteRune(r)
		case startOfWord:
			b.WriteString(strings.ToUpper(string(r)))
			startOfWord = false
		default:
			b.WriteString(strings.ToLower(string(r)))
		}
	}
	return b.String()
}
