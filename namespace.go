package xmlmin

import (
	"regexp"

	"github.com/dlclark/regexp2"
)

var (
	reNamespaceDecl     = regexp2.MustCompile(inTag(`\s`)+`xmlns:(`+xmlName+`)(?=\s*=)`, 0)
	reElementPrefix     = regexp2.MustCompile(notInComment+`</?(`+xmlName+`):`, 0)
	reAttributePrefix   = regexp2.MustCompile(inTag(`\s`)+`(`+xmlName+`):`+xmlName+`(?=\s*=)`, 0)
	reUnprefixedElement = regexp2.MustCompile(notInComment+`<[A-Za-z_][^:<>\s/]*(?=[\s/>])`, 0)
	reDefaultNamespace  = regexp2.MustCompile(inTag("")+`\s+xmlns\s*=\s*(?:"[^"]*"|'[^']*')`, 0)
)

// Candidate prefixes start with a letter or underscore; subsequent
// characters may also be digits, '-' or '.'.
const (
	prefixAlphabetFirst = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_"
	prefixAlphabetRest  = prefixAlphabetFirst + "0123456789-."
)

// namespaceTable records declared prefixes in order of first appearance
// and which of them are referenced by element or attribute names. The
// analysis is document-global: a prefix used anywhere counts as used at
// every declaration site, even when a subtree declares it redundantly.
type namespaceTable struct {
	order    []string
	declared map[string]bool
	used     map[string]bool
}

// analyzeNamespaces builds the namespace table for doc. The reserved
// token xmlns itself never counts as a used prefix.
func (o *Minifier) analyzeNamespaces(doc string) *namespaceTable {
	cd := o.guard(doc)
	t := &namespaceTable{declared: map[string]bool{}, used: map[string]bool{}}
	for _, m := range findAll(doc, reNamespaceDecl, cd) {
		if p := m.GroupByNumber(1).String(); !t.declared[p] {
			t.declared[p] = true
			t.order = append(t.order, p)
		}
	}
	for _, m := range findAll(doc, reElementPrefix, cd) {
		t.used[m.GroupByNumber(1).String()] = true
	}
	for _, m := range findAll(doc, reAttributePrefix, cd) {
		if p := m.GroupByNumber(1).String(); p != "xmlns" {
			t.used[p] = true
		}
	}
	return t
}

// minifyNamespaces runs the enabled namespace phases in order: unused
// declaration removal, default namespace removal, prefix shortening.
func (o *Minifier) minifyNamespaces(doc string) string {
	t := o.analyzeNamespaces(doc)
	if o.RemoveUnusedNamespaces {
		for _, p := range t.order {
			if !t.used[p] {
				doc = o.removeNamespaceDecl(doc, p)
				t.declared[p] = false
			}
		}
	}
	if o.RemoveUnusedDefaultNamespace {
		doc = o.removeDefaultNamespace(doc)
	}
	if o.ShortenNamespaces {
		doc = o.shortenPrefixes(doc, t)
	}
	return doc
}

func (o *Minifier) removeNamespaceDecl(doc, prefix string) string {
	re := regexp2.MustCompile(inTag("")+`\s+xmlns:`+regexp.QuoteMeta(prefix)+`\s*=\s*(?:"[^"]*"|'[^']*')`, 0)
	return replaceAll(doc, re, literal(""), o.guard(doc))
}

// removeDefaultNamespace drops a default xmlns="..." declaration, but only
// when every element in the document carries a prefix, which makes the
// default namespace unreachable.
func (o *Minifier) removeDefaultNamespace(doc string) string {
	cd := o.guard(doc)
	if 0 < len(findAll(doc, reUnprefixedElement, cd)) {
		return doc
	}
	return replaceAll(doc, reDefaultNamespace, literal(""), cd)
}

// shortenPrefixes renames the remaining declared prefixes to the shortest
// free identifiers, processing them in declaration order. The literal
// prefix xsi is reserved and never renamed. Newly assigned names join the
// taken set immediately so later renames cannot collide.
func (o *Minifier) shortenPrefixes(doc string, t *namespaceTable) string {
	taken := map[string]bool{"xsi": true}
	for _, p := range t.order {
		if t.declared[p] {
			taken[p] = true
		}
	}
	for _, p := range t.order {
		if p == "xsi" || len(p) == 1 || !t.declared[p] {
			continue
		}
		short := shortestFreePrefix(p, taken)
		if len(p) <= len(short) {
			continue
		}
		taken[short] = true
		doc = o.renamePrefix(doc, p, short)
	}
	return doc
}

// shortestFreePrefix returns the shortest identifier not in taken,
// preferring the first character of the current prefix. The search walks
// candidates breadth-first by increasing length, so it finds a shortest
// free name without recursion.
func shortestFreePrefix(prefix string, taken map[string]bool) string {
	if first := prefix[:1]; !taken[first] {
		return first
	}
	queue := make([]string, 0, len(prefixAlphabetFirst))
	for _, c := range prefixAlphabetFirst {
		queue = append(queue, string(c))
	}
	for 0 < len(queue) {
		candidate := queue[0]
		queue = queue[1:]
		if !taken[candidate] {
			return candidate
		}
		for _, c := range prefixAlphabetRest {
			queue = append(queue, candidate+string(c))
		}
	}
	return prefix
}

// renamePrefix rewrites every use site of a prefix: element open and close
// tags, attribute names and the xmlns declaration itself.
func (o *Minifier) renamePrefix(doc, from, to string) string {
	q := regexp.QuoteMeta(from)

	// the guard is recomputed between rewrites since offsets shift
	reElem := regexp2.MustCompile(notInComment+`(</?)`+q+`:`, 0)
	doc = replaceAll(doc, reElem, compute(func(m regexp2.Match) string {
		return m.GroupByNumber(1).String() + to + ":"
	}), o.guard(doc))

	reAttr := regexp2.MustCompile(inTag(`\s`)+q+`:(?=`+xmlName+`\s*=)`, 0)
	doc = replaceAll(doc, reAttr, literal(to+":"), o.guard(doc))

	reDecl := regexp2.MustCompile(inTag(`\s`)+`xmlns:`+q+`(?=\s*=)`, 0)
	return replaceAll(doc, reDecl, literal("xmlns:"+to), o.guard(doc))
}
