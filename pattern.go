package xmlmin // import "github.com/xmlmin/xmlmin"

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// The minifier never builds a DOM or token stream. Every transformation is
// scoped to a structural context by zero-width look-around assertions
// assembled from the fragments below. Each fragment is the body of a
// look-behind and carries a single %s splice point where an extra
// condition can be inserted just before the cursor.
const (
	// tagContext holds when the cursor is inside an element tag, open or
	// close. Quoted attribute values are skipped whole, so positions
	// inside them never qualify.
	tagContext = `<[A-Za-z_/](?:"[^"]*"|'[^']*'|[^<>"'])*?%s`

	// bracketContext holds inside any bracketed construct: element tag,
	// comment, CDATA section, DOCTYPE or processing instruction. The
	// constructs are enumerated separately so that a comment or
	// declaration interior cannot pass for a tag interior. Splicing ""
	// and appending ">" yields a pattern for a complete construct.
	bracketContext = `<(?:!--(?s:.)*?--|!\[CDATA\[(?s:.)*?\]\]|!DOCTYPE(?:"[^"]*"|'[^']*'|\[(?s:.)*?\]|[^<>"'])*?|\?(?:"[^"]*"|'[^']*'|[^<>"'])*?|[A-Za-z_/](?:"[^"]*"|'[^']*'|[^<>"'])*?)%s`

	// prologContext holds inside the <?xml ...?> declaration. The
	// embedded look-ahead keeps <?xml-stylesheet and friends out.
	prologContext = `<\?xml(?=[\s?])(?:"[^"]*"|'[^']*'|[^<>"'])*?%s`

	// preserveContext holds in the direct text content of a <pre> element
	// or of an element declaring xml:space="preserve". Nesting is not
	// tracked; only the text node directly after the opening tag is
	// covered, consistent with the document-global analysis elsewhere.
	preserveContext = `<(?:pre(?:\s[^<>]*)?|[^<>]*?xml:space\s*=\s*(?:"preserve"|'preserve')[^<>]*?)>[^<]*?%s`

	// notInComment rejects positions inside an unterminated comment, so
	// tag-like content in comments is not mistaken for markup.
	notInComment = `(?<!<!--(?s:(?:(?!-->).)*))`

	// xmlName approximates an XML name without a colon.
	xmlName = `[A-Za-z_][\w.-]*`
)

// inTag returns a look-behind asserting the cursor is inside an element
// tag, with extra spliced in directly before the cursor.
func inTag(extra string) string {
	return notInComment + "(?<=" + fmt.Sprintf(tagContext, extra) + ")"
}

// inProlog is inTag for the <?xml ...?> declaration.
func inProlog(extra string) string {
	return notInComment + "(?<=" + fmt.Sprintf(prologContext, extra) + ")"
}

// afterTagClose returns a look-behind anchored at a tag's closing '>',
// with gap allowing intervening text. In strict mode only genuine element
// tags qualify; otherwise any bracketed construct counts as tag-like.
func afterTagClose(gap string, strict bool) string {
	frag := bracketContext
	if strict {
		frag = tagContext
	}
	return "(?<=" + fmt.Sprintf(frag, "") + ">" + gap + ")"
}

// beforeTagOpen returns a look-ahead anchored at the next tag's opening
// '<'. Prolog, DOCTYPE and comment openings never qualify; in strict mode
// only element tags do.
func beforeTagOpen(gap string, strict bool) string {
	if strict {
		return "(?=" + gap + `</?[A-Za-z_])`
	}
	return "(?=" + gap + `<[^?!])`
}

// notInPreserve returns a negative look-behind excluding
// whitespace-preserving content.
func notInPreserve() string {
	return "(?<!" + fmt.Sprintf(preserveContext, "") + ")"
}

// variants compiles the strict and preserve-aware forms of a text-node
// pattern, indexed by [strict][preserve].
func variants(f func(strict bool, pres string) string) (v [2][2]*regexp2.Regexp) {
	for s := 0; s < 2; s++ {
		for p := 0; p < 2; p++ {
			pres := ""
			if p == 1 {
				pres = notInPreserve()
			}
			v[s][p] = regexp2.MustCompile(f(s == 1, pres), 0)
		}
	}
	return v
}

// Compiled patterns, derived once from the fragments above.
var (
	reComment = regexp2.MustCompile(`<!--(?s:.)*?-->`, 0)

	// whitespace-only text between two tags
	reWhitespaceBetweenTags = variants(func(strict bool, pres string) string {
		return afterTagClose("", strict) + pres + `\s+` + beforeTagOpen("", strict)
	})
	// leading whitespace of a text node
	reTrimTextLeft = variants(func(strict bool, pres string) string {
		return afterTagClose("", strict) + pres + `\s+(?=[^<\s])`
	})
	// trailing whitespace of a text node
	reTrimTextRight = variants(func(strict bool, pres string) string {
		return afterTagClose(`[^<]*?`, strict) + pres + `\s+` + beforeTagOpen("", strict)
	})
	// any whitespace run within a text node
	reCollapseText = variants(func(strict bool, pres string) string {
		return afterTagClose(`[^<]*?`, strict) + pres + `\s+` + beforeTagOpen(`[^<]*?`, strict)
	})

	// whitespace collapsing inside tags and inside the prolog
	reTagSpace     = regexp2.MustCompile(inTag("")+`\s+`, 0)
	reTagEquals    = regexp2.MustCompile(inTag("")+`\s*=\s*`, 0)
	reTagClose     = regexp2.MustCompile(inTag("")+`\s+(?=/?>)`, 0)
	rePrologSpace  = regexp2.MustCompile(inProlog("")+`\s+`, 0)
	rePrologEquals = regexp2.MustCompile(inProlog("")+`\s*=\s*`, 0)
	rePrologClose  = regexp2.MustCompile(inProlog("")+`\s+(?=/?>)`, 0)

	reSchemaLocation = regexp2.MustCompile(inTag("")+`\s+xsi:(?:noNamespaceSchemaLocation|schemaLocation)\s*=\s*(?:"[^"]*"|'[^']*')`, 0)

	reEmptyElement = regexp2.MustCompile(notInComment+`<([A-Za-z_][^<>\s/]*)((?:"[^"]*"|'[^']*'|[^<>/"'])*?)\s*></\1\s*>`, 0)
)

// collapseEmptyElement rewrites a directly adjacent open/close tag pair
// into a single self-closing tag, keeping the attributes.
func collapseEmptyElement(m regexp2.Match) string {
	return "<" + m.GroupByNumber(1).String() + m.GroupByNumber(2).String() + "/>"
}

// replacement is either literal text or a function computed per match.
// Literal text is substituted verbatim; it is not a template.
type replacement struct {
	text string
	fn   func(regexp2.Match) string
}

func literal(s string) replacement { return replacement{text: s} }

func compute(fn func(regexp2.Match) string) replacement { return replacement{fn: fn} }

// replaceAll applies re over doc, dispatching on the replacement variant.
// Matches whose offset lies inside a CDATA section are left unchanged when
// cd is non-nil. On an engine error the document is returned untouched.
func replaceAll(doc string, re *regexp2.Regexp, repl replacement, cd *cdataIndex) string {
	if cd == nil && repl.fn == nil {
		s, err := re.Replace(doc, repl.text, -1, -1)
		if err != nil {
			return doc
		}
		return s
	}
	s, err := re.ReplaceFunc(doc, func(m regexp2.Match) string {
		if cd != nil && cd.inside(m.Index) {
			return m.String()
		}
		if repl.fn != nil {
			return repl.fn(m)
		}
		return repl.text
	}, -1, -1)
	if err != nil {
		return doc
	}
	return s
}

// findAll returns every match of re in doc, skipping CDATA interiors when
// cd is non-nil.
func findAll(doc string, re *regexp2.Regexp, cd *cdataIndex) []regexp2.Match {
	var ms []regexp2.Match
	m, err := re.FindStringMatch(doc)
	for m != nil && err == nil {
		if cd == nil || !cd.inside(m.Index) {
			ms = append(ms, *m)
		}
		m, err = re.FindNextMatch(m)
	}
	return ms
}

// replaceText applies one of the precompiled text-node patterns, selecting
// the strict and preserve variants from the options.
func (o *Minifier) replaceText(doc string, res [2][2]*regexp2.Regexp, strict bool, repl replacement) string {
	s, p := 0, 0
	if strict {
		s = 1
	}
	if o.ConsiderPreserveWhitespace {
		p = 1
	}
	return replaceAll(doc, res[s][p], repl, o.guard(doc))
}

// collapseTagLike collapses whitespace runs, tightens '=' and trims before
// the closing bracket, scoped by the given context patterns. The prolog
// reuses this with its own context; its "?>" close never matches the trim
// pattern, which keeps a separating space before it.
func (o *Minifier) collapseTagLike(doc string, reSpace, reEquals, reClose *regexp2.Regexp) string {
	doc = replaceAll(doc, reSpace, literal(" "), o.guard(doc))
	doc = replaceAll(doc, reEquals, literal("="), o.guard(doc))
	return replaceAll(doc, reClose, literal(""), o.guard(doc))
}
