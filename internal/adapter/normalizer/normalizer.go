// Package normalizer cleans raw extracted text ahead of chunking: whitespace
// collapse, character allow-listing, hyphen rejoining, line-break merging,
// and annotation of header and table regions.
package normalizer

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// TableStart and TableEnd delimit suspected tabular regions. The chunker
	// treats this pair as the authoritative table boundary.
	TableStart = "[TABLE START]"
	TableEnd   = "[TABLE END]"
)

var (
	repeatedNewlines = regexp.MustCompile(`\n+`)
	lineEdgeSpace    = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)
	// Keep letters, digits, underscore, whitespace and basic punctuation.
	// \p{L}\p{N} instead of \w so accented Spanish text survives.
	disallowed   = regexp.MustCompile(`[^\p{L}\p{N}_\s.,;:()\-/%]`)
	brokenWord   = regexp.MustCompile(`(\p{L})-\n(\p{L})`)
	headerMarker = regexp.MustCompile(`(?i)(cap[ií]tulo \d+|secci[oó]n \d+)`)
	// Two or more whitespace characters between tokens mark a tabular line.
	// Newlines are excluded so header annotations are never misread as tables.
	tabularGap = regexp.MustCompile(`(\S+)[^\S\n]{2,}(\S+)`)
)

// Normalize cleans raw extracted text and annotates structure. Pure function
// of its input: fixed inputs produce identical output across runs.
func Normalize(raw string) string {
	text := repeatedNewlines.ReplaceAllString(raw, "\n")
	text = lineEdgeSpace.ReplaceAllString(text, "")
	text = disallowed.ReplaceAllString(text, "")
	text = brokenWord.ReplaceAllString(text, "$1$2")
	text = mergeSoftBreaks(text)
	text = headerMarker.ReplaceAllString(text, "\n### $1 ###\n")
	text = tabularGap.ReplaceAllString(text, TableStart+"\n$1\t$2\n"+TableEnd)
	text = balanceTableDelimiters(text)
	return strings.TrimSpace(text)
}

// mergeSoftBreaks joins line breaks that do not terminate a sentence: a
// newline not preceded by sentence-ending punctuation and not followed by an
// uppercase letter becomes a single space.
func mergeSoftBreaks(text string) string {
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\n' {
			b.WriteRune(r)
			continue
		}
		prev := lastNonSpace(runes, i-1)
		terminal := prev == '.' || prev == '!' || prev == '?'
		upperNext := i+1 < len(runes) && unicode.IsUpper(runes[i+1])
		if terminal || upperNext {
			b.WriteRune('\n')
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func lastNonSpace(runes []rune, from int) rune {
	for i := from; i >= 0; i-- {
		if !unicode.IsSpace(runes[i]) {
			return runes[i]
		}
	}
	return 0
}

// balanceTableDelimiters guarantees every table region is closed, so the
// chunker never sees an open table running to end of text. An unmatched
// start marker gets a closing delimiter appended; an unmatched end marker
// gets an opening delimiter prepended.
func balanceTableDelimiters(text string) string {
	depth := 0
	rest := text
	for {
		si := strings.Index(rest, TableStart)
		ei := strings.Index(rest, TableEnd)
		switch {
		case si == -1 && ei == -1:
			for ; depth > 0; depth-- {
				text += "\n" + TableEnd
			}
			return text
		case ei == -1 || (si != -1 && si < ei):
			depth++
			rest = rest[si+len(TableStart):]
		default:
			if depth == 0 {
				text = TableStart + "\n" + text
			} else {
				depth--
			}
			rest = rest[ei+len(TableEnd):]
		}
	}
}
