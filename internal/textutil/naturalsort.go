// Package textutil provides the text helpers the scanner relies on: natural
// ordering of file names, chapter-number extraction, slugs, and display
// titles derived from directory names.
package textutil

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NaturalLess compares two strings treating digit runs as numbers, so
// "page2" sorts before "page10" and "Chapter 9" before "Chapter 12".
func NaturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		aDigit := isDigit(a[0])
		bDigit := isDigit(b[0])
		switch {
		case aDigit && bDigit:
			aNum, aRest := splitLeadingNumber(a)
			bNum, bRest := splitLeadingNumber(b)
			if aNum != bNum {
				return aNum < bNum
			}
			a, b = aRest, bRest
		case aDigit != bDigit:
			// Numbers sort before letters at the same position.
			return aDigit
		default:
			ar := strings.ToLower(a[:1])
			br := strings.ToLower(b[:1])
			if ar != br {
				return ar < br
			}
			a, b = a[1:], b[1:]
		}
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func splitLeadingNumber(s string) (uint64, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	// Clamp absurdly long digit runs instead of failing the comparison.
	digits := s[:i]
	if len(digits) > 18 {
		digits = digits[:18]
	}
	value, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, s[i:]
	}
	return value, s[i:]
}

// SortNatural sorts names in place using NaturalLess.
func SortNatural(names []string) {
	// Insertion sort keeps this dependency-free and the inputs are small
	// (pages of one chapter, chapters of one series).
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && NaturalLess(names[j], names[j-1]); j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}

var (
	chapterMarkerPattern = regexp.MustCompile(`(?i)(?:\bch(?:apter)?|\bc|#)[\s._-]*(\d+(?:\.\d+)?)`)
	bareNumberPattern    = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// ExtractChapterNumber pulls a chapter number out of a folder or archive
// name. Names with an explicit chapter marker ("Chapter 12", "ch_3.5", "c08")
// win over bare numbers; a name with no digits returns 0.
func ExtractChapterNumber(name string) float64 {
	digits := ""
	if matches := chapterMarkerPattern.FindStringSubmatch(name); matches != nil {
		digits = matches[1]
	} else {
		digits = bareNumberPattern.FindString(name)
	}
	if digits == "" {
		return 0
	}
	value, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0
	}
	return value
}

var slugStripPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug converts a title into a URL-safe lowercase identifier.
func Slug(title string) string {
	lowered := strings.ToLower(strings.TrimSpace(title))
	slug := slugStripPattern.ReplaceAllString(lowered, "-")
	return strings.Trim(slug, "-")
}

var titleCaser = cases.Title(language.English, cases.NoLower)

// PrettyTitle derives a display title from a directory or archive base name:
// separators become spaces and bare lowercase words are title-cased.
func PrettyTitle(name string) string {
	replaced := strings.NewReplacer("_", " ", ".", " ").Replace(name)
	fields := strings.Fields(replaced)
	for i, field := range fields {
		if isAllLower(field) {
			fields[i] = titleCaser.String(field)
		}
	}
	return strings.Join(fields, " ")
}

func isAllLower(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsUpper(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
