// Package segments parses free-text segment-assignment instructions.
package segments

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Instructions is the result of parsing one free-text instruction message.
// All three lists preserve first-mention order without duplicates. Callers
// are expected to show the interpretation and ask for confirmation before
// applying it.
type Instructions struct {
	Add    []string // segment names to add the group to
	Remove []string // segment names to remove the group from
	Errors []string // tokens that look like segment names but match nothing
}

// Empty reports whether the parse produced nothing actionable.
func (in Instructions) Empty() bool {
	return len(in.Add) == 0 && len(in.Remove) == 0
}

// Verb stems are matched as substrings of the lower-cased clause. They cover
// the common imperative and infinitive forms: "добавь", "добавить",
// "включи", "присоедини", "удали", "убери", "исключи" and so on.
var (
	addStems    = []string{"добав", "включ", "присое", "+", "плюс", "в "}
	removeStems = []string{"удал", "убер", "исключ", "из ", "-", "минус"}

	// Stems that mark a token as instruction vocabulary rather than a
	// possible segment name.
	keywordStems = []string{"добав", "удал", "включ", "исключ", "присое", "убер", "минус", "плюс"}

	clauseSplit = regexp.MustCompile(`[,;]| и `)
)

// ParseInstructions interprets a free-text message against the known segment
// names. Matching is case-insensitive and substring-based, so inflected forms
// ("из Архива" for the segment "Архив") still resolve. The message is split
// into clauses on commas, semicolons and the conjunction " и "; each clause
// carries its own add/remove intent. A clause with conflicting or missing
// intent defaults to add, unless it says "из <name>" for that particular name.
func ParseInstructions(text string, available []string) Instructions {
	var result Instructions

	textLower := strings.ToLower(text)

	var mentioned []string
	for _, name := range available {
		if strings.Contains(textLower, strings.ToLower(name)) {
			mentioned = append(mentioned, name)
		}
	}

	for _, clause := range clauseSplit.Split(textLower, -1) {
		var inClause []string
		for _, name := range mentioned {
			if strings.Contains(clause, strings.ToLower(name)) {
				inClause = append(inClause, name)
			}
		}
		if len(inClause) == 0 {
			continue
		}

		hasAdd := containsAny(clause, addStems)
		hasRemove := containsAny(clause, removeStems)

		for _, name := range inClause {
			switch {
			case hasAdd && !hasRemove:
				result.Add = appendUnique(result.Add, name)
			case hasRemove && !hasAdd:
				result.Remove = appendUnique(result.Remove, name)
			case strings.Contains(clause, "из "+strings.ToLower(name)):
				result.Remove = appendUnique(result.Remove, name)
			default:
				result.Add = appendUnique(result.Add, name)
			}
		}
	}

	// Flag leftover long tokens that resemble segment names but match none:
	// the admin probably misspelled a name and should be told instead of the
	// clause being silently dropped.
	for _, token := range strings.Fields(textLower) {
		cleaned := strings.Trim(token, ".,!?;")
		if utf8.RuneCountInString(cleaned) <= 3 {
			continue
		}
		if containsAny(cleaned, keywordStems) {
			continue
		}
		known := false
		for _, name := range available {
			nameLower := strings.ToLower(name)
			if strings.Contains(nameLower, cleaned) || strings.Contains(cleaned, nameLower) {
				known = true
				break
			}
		}
		if !known {
			result.Errors = appendUnique(result.Errors, cleaned)
		}
	}

	return result
}

func containsAny(s string, stems []string) bool {
	for _, stem := range stems {
		if strings.Contains(s, stem) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
