package xmlmin

import (
	"strings"
	"unicode/utf8"
)

const (
	cdataStart = "<![CDATA["
	cdataEnd   = "]]>"
)

// cdataIndex records the interiors of CDATA sections as rune offsets,
// since the pattern engine reports match indices in runes. Both markers
// are ASCII, so their byte length doubles as their rune length.
type cdataIndex struct {
	spans [][2]int
}

// indexCDATA scans doc once and returns the span index, or nil when the
// document has no CDATA sections. An unterminated section extends to the
// end of the document. A span begins directly after the opening marker
// and ends directly after the closing one, so that a match starting
// halfway into "]]>" is still suppressed.
func indexCDATA(doc string) *cdataIndex {
	idx := &cdataIndex{}
	runes := 0 // rune offset corresponding to byte offset pos
	pos := 0
	for {
		i := strings.Index(doc[pos:], cdataStart)
		if i < 0 {
			break
		}
		begin := runes + utf8.RuneCountInString(doc[pos:pos+i]) + len(cdataStart)
		pos += i + len(cdataStart)
		runes = begin

		j := strings.Index(doc[pos:], cdataEnd)
		if j < 0 {
			idx.spans = append(idx.spans, [2]int{begin, runes + utf8.RuneCountInString(doc[pos:])})
			break
		}
		end := runes + utf8.RuneCountInString(doc[pos:pos+j]) + len(cdataEnd)
		pos += j + len(cdataEnd)
		runes = end
		idx.spans = append(idx.spans, [2]int{begin, end})
	}
	if len(idx.spans) == 0 {
		return nil
	}
	return idx
}

// inside reports whether the rune offset lies inside a CDATA section.
func (idx *cdataIndex) inside(offset int) bool {
	for _, s := range idx.spans {
		if s[0] <= offset && offset < s[1] {
			return true
		}
	}
	return false
}

// guard returns the CDATA index for doc, or nil when replacements need no
// guarding. The substring test is a cheap fast path for the common case of
// documents without CDATA.
func (o *Minifier) guard(doc string) *cdataIndex {
	if !o.IgnoreCDATA || !strings.Contains(doc, cdataStart) {
		return nil
	}
	return indexCDATA(doc)
}
