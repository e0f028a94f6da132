package xmlmin // import "github.com/xmlmin/xmlmin"

import (
	"testing"

	"github.com/tdewolff/test"
)

func TestCDATAGuard(t *testing.T) {
	in := `<a><![CDATA[  <hello>   world  <!-- not a comment -->  ]]></a>`

	out, err := MinifyString(in)
	test.Error(t, err)
	test.String(t, out, in)

	o := NewMinifier()
	o.IgnoreCDATA = false
	out, err = o.MinifyString(in)
	test.Error(t, err)
	test.String(t, out, `<a><![CDATA[  <hello>   world    ]]></a>`)
}

func TestCDATAMarkerLikeText(t *testing.T) {
	// the closing marker ends the guarded span, text after it is fair game
	in := "<a><![CDATA[x]]>\n<b>  </b></a>"
	out, err := MinifyString(in)
	test.Error(t, err)
	test.String(t, out, `<a><![CDATA[x]]><b/></a>`)
}

func TestIndexCDATA(t *testing.T) {
	test.That(t, indexCDATA(`<a/>`) == nil, "no sections means no index")

	idx := indexCDATA("<é>  <![CDATA[ä]]>")
	test.That(t, idx != nil, "expected an index")
	test.T(t, len(idx.spans), 1)
	test.T(t, idx.spans[0], [2]int{14, 18})
	test.That(t, !idx.inside(13), "offset before the content must not be guarded")
	test.That(t, idx.inside(14), "first content rune must be guarded")
	test.That(t, idx.inside(17), "closing marker must be guarded")
	test.That(t, !idx.inside(18), "offset past the section must not be guarded")

	idx = indexCDATA(`<a><![CDATA[x`)
	test.That(t, idx != nil, "unterminated section must still be indexed")
	test.T(t, idx.spans[0], [2]int{12, 13})

	idx = indexCDATA(`<![CDATA[a]]>-<![CDATA[b]]>`)
	test.T(t, len(idx.spans), 2)
	test.T(t, idx.spans[0], [2]int{9, 13})
	test.T(t, idx.spans[1], [2]int{23, 27})
}
