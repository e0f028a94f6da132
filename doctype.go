package xmlmin

import (
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/tdewolff/parse/v2"
)

var (
	// name, optional SYSTEM/PUBLIC with one or two quoted literals,
	// optional bracketed internal subset
	reDoctype    = regexp2.MustCompile(`<!DOCTYPE\s+(`+xmlName+`)(?:\s+(SYSTEM|PUBLIC)\s+("[^"]*"|'[^']*')(?:\s+("[^"]*"|'[^']*'))?)?(?:\s*\[((?s:.)*?)\])?\s*>`, 0)
	reStandalone = regexp2.MustCompile(inProlog("")+`\s+standalone\s*=\s*(?:"(?:yes|no)"|'(?:yes|no)')`, 0)

	reParameterEntity = regexp2.MustCompile(`<!ENTITY\s+%`, 0)
	reSubsetBetween   = regexp2.MustCompile(`>\s+<`, 0)
	reSubsetSpace     = regexp2.MustCompile(`\s+`, 0)
)

// collapseDoctype rewrites the DOCTYPE declaration with single-space field
// separators and minifies the internal subset.
func (o *Minifier) collapseDoctype(doc string) string {
	return replaceAll(doc, reDoctype, compute(func(m regexp2.Match) string {
		var b strings.Builder
		b.WriteString("<!DOCTYPE ")
		b.WriteString(m.GroupByNumber(1).String())
		if ext := m.GroupByNumber(2).String(); ext != "" {
			b.WriteString(" " + ext + " " + m.GroupByNumber(3).String())
			if lit := m.GroupByNumber(4).String(); lit != "" {
				b.WriteString(" " + lit)
			}
		}
		if subset := m.GroupByNumber(5); subset != nil && 0 < subset.Length {
			b.WriteString(" [" + minifyInternalSubset(subset.String()) + "]")
		}
		b.WriteString(">")
		return b.String()
	}), o.guard(doc))
}

// minifyInternalSubset minifies the DOCTYPE's internal subset: comments
// are stripped, whitespace directly between declarations is removed and
// remaining runs collapse to single spaces.
func minifyInternalSubset(subset string) string {
	subset = replaceAll(subset, reComment, literal(""), nil)
	subset = replaceAll(subset, reSubsetBetween, literal("><"), nil)
	subset = replaceAll(subset, reSubsetSpace, literal(" "), nil)
	return string(parse.TrimWhitespace([]byte(subset)))
}

// removeStandalone drops standalone="yes|no" from the prolog when the
// declaration provably has no effect: either no DOCTYPE is present, or the
// DOCTYPE has no external subset and declares no parameter entities in its
// internal subset. External subsets are not resolved; when in doubt the
// declaration stays.
func (o *Minifier) removeStandalone(doc string) string {
	m, err := reDoctype.FindStringMatch(doc)
	if err != nil {
		return doc
	}
	if m != nil {
		if 0 < m.GroupByNumber(2).Length {
			return doc
		}
		if ok, _ := reParameterEntity.MatchString(m.GroupByNumber(5).String()); ok {
			return doc
		}
	}
	return replaceAll(doc, reStandalone, literal(""), o.guard(doc))
}
