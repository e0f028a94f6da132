package xmlmin // import "github.com/xmlmin/xmlmin"

import (
	"fmt"
	"io"

	"github.com/tdewolff/minify/v2"
)

// Tristate is an option value with an extra strict mode. Strict scopes the
// operation to genuine element tags only, so that the prolog, DOCTYPE and
// comments are not treated as tag-like brackets.
type Tristate uint8

const (
	False Tristate = iota
	True
	Strict
)

func (t Tristate) valid() bool  { return t <= Strict }
func (t Tristate) on() bool     { return t == True || t == Strict }
func (t Tristate) strict() bool { return t == Strict }

func (t Tristate) String() string {
	switch t {
	case False:
		return "false"
	case True:
		return "true"
	case Strict:
		return "strict"
	}
	return fmt.Sprintf("Tristate(%d)", uint8(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t Tristate) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("xmlmin: invalid tri-state value %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, accepting false, true
// or strict.
func (t *Tristate) UnmarshalText(text []byte) error {
	switch string(text) {
	case "false", "0":
		*t = False
	case "true", "1":
		*t = True
	case "strict":
		*t = Strict
	default:
		return fmt.Errorf("xmlmin: invalid tri-state value %q", text)
	}
	return nil
}

// Minifier is an XML minifier. Each field toggles one transformation pass;
// the zero value leaves the document unchanged. A Minifier is never
// mutated by the engine and may be shared between goroutines.
type Minifier struct {
	RemoveComments                         bool
	RemoveWhitespaceBetweenTags            Tristate
	ConsiderPreserveWhitespace             bool
	CollapseWhitespaceInTags               bool
	CollapseEmptyElements                  bool
	TrimWhitespaceFromTexts                Tristate
	CollapseWhitespaceInTexts              Tristate
	CollapseWhitespaceInProlog             bool
	CollapseWhitespaceInDocType            bool
	RemoveSchemaLocationAttributes         bool
	RemoveUnnecessaryStandaloneDeclaration bool
	RemoveUnusedNamespaces                 bool
	RemoveUnusedDefaultNamespace           bool
	ShortenNamespaces                      bool
	IgnoreCDATA                            bool
}

// NewMinifier returns a Minifier with the default configuration: all
// passes enabled except schema-location removal, text trimming and text
// whitespace collapsing.
func NewMinifier() *Minifier {
	return &Minifier{
		RemoveComments:                         true,
		RemoveWhitespaceBetweenTags:            True,
		ConsiderPreserveWhitespace:             true,
		CollapseWhitespaceInTags:               true,
		CollapseEmptyElements:                  true,
		CollapseWhitespaceInProlog:             true,
		CollapseWhitespaceInDocType:            true,
		RemoveUnnecessaryStandaloneDeclaration: true,
		RemoveUnusedNamespaces:                 true,
		RemoveUnusedDefaultNamespace:           true,
		ShortenNamespaces:                      true,
		IgnoreCDATA:                            true,
	}
}

// DefaultMinifier is the default configuration, used by the package-level
// functions.
var DefaultMinifier = NewMinifier()

func (o *Minifier) validate() error {
	for _, f := range []struct {
		name  string
		value Tristate
	}{
		{"RemoveWhitespaceBetweenTags", o.RemoveWhitespaceBetweenTags},
		{"TrimWhitespaceFromTexts", o.TrimWhitespaceFromTexts},
		{"CollapseWhitespaceInTexts", o.CollapseWhitespaceInTexts},
	} {
		if !f.value.valid() {
			return fmt.Errorf("xmlmin: invalid value %d for %s", uint8(f.value), f.name)
		}
	}
	return nil
}

// MinifyString minifies a well-formed XML document and returns the result.
// The transformation is a pure function of the document and the options;
// input is not validated and malformed documents yield best-effort output.
// The only error condition is an invalid option value.
//
// The pass order is fixed: whitespace removal between tags runs before
// empty elements collapse, and the standalone declaration is inspected
// before prolog and DOCTYPE are rewritten.
func (o *Minifier) MinifyString(xml string) (string, error) {
	if err := o.validate(); err != nil {
		return "", err
	}
	doc := xml
	if o.RemoveComments {
		doc = replaceAll(doc, reComment, literal(""), o.guard(doc))
	}
	if v := o.RemoveWhitespaceBetweenTags; v.on() {
		doc = o.replaceText(doc, reWhitespaceBetweenTags, v.strict(), literal(""))
	}
	if o.RemoveSchemaLocationAttributes {
		doc = replaceAll(doc, reSchemaLocation, literal(""), o.guard(doc))
	}
	if o.CollapseWhitespaceInTags {
		doc = o.collapseTagLike(doc, reTagSpace, reTagEquals, reTagClose)
	}
	if o.CollapseEmptyElements {
		doc = replaceAll(doc, reEmptyElement, compute(collapseEmptyElement), o.guard(doc))
	}
	if v := o.TrimWhitespaceFromTexts; v.on() {
		doc = o.replaceText(doc, reTrimTextLeft, v.strict(), literal(""))
		doc = o.replaceText(doc, reTrimTextRight, v.strict(), literal(""))
	}
	if v := o.CollapseWhitespaceInTexts; v.on() {
		doc = o.replaceText(doc, reCollapseText, v.strict(), literal(" "))
	}
	if o.RemoveUnnecessaryStandaloneDeclaration {
		doc = o.removeStandalone(doc)
	}
	if o.CollapseWhitespaceInProlog {
		doc = o.collapseTagLike(doc, rePrologSpace, rePrologEquals, rePrologClose)
	}
	if o.CollapseWhitespaceInDocType {
		doc = o.collapseDoctype(doc)
	}
	if o.RemoveUnusedNamespaces || o.RemoveUnusedDefaultNamespace || o.ShortenNamespaces {
		doc = o.minifyNamespaces(doc)
	}
	return doc, nil
}

// Minify implements the minify.Minifier interface of
// github.com/tdewolff/minify/v2, so the minifier can be registered in a
// minify.M registry. The document is buffered whole; the pattern
// composition cannot stream.
func (o *Minifier) Minify(_ *minify.M, w io.Writer, r io.Reader, _ map[string]string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s, err := o.MinifyString(string(b))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

// Minify minifies XML with the default configuration, it reads from r and
// writes to w.
func Minify(m *minify.M, w io.Writer, r io.Reader, params map[string]string) error {
	return DefaultMinifier.Minify(m, w, r, params)
}

// MinifyString minifies XML with the default configuration.
func MinifyString(xml string) (string, error) {
	return DefaultMinifier.MinifyString(xml)
}
