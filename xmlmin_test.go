package xmlmin // import "github.com/xmlmin/xmlmin"

import (
	"fmt"
	"os"
	"testing"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/test"
)

func TestXML(t *testing.T) {
	xmlTests := []struct {
		xml      string
		expected string
	}{
		{`<a>  </a>`, `<a/>`},
		{`<!-- x --><a/>`, `<a/>`},
		{`<a xmlns:foo='urn:x'><b/></a>`, `<a><b/></a>`},
		{`<a xmlns:alpha='urn:x'><alpha:b/></a>`, `<a xmlns:a='urn:x'><a:b/></a>`},
		{`<?xml  version = "1.0"  standalone = "yes" ?><a/>`, `<?xml version="1.0" ?><a/>`},
		{`<a><b>x</b></a>`, `<a><b>x</b></a>`},
		{"<a>\n  <b/>\n</a>", `<a><b/></a>`},
		{`<x  a = "b"  ></x>`, `<x a="b"/>`},
		{`<x a=" keep  inner ">t</x>`, `<x a=" keep  inner ">t</x>`},
		{`<a><![CDATA[ keep   me ]]></a>`, `<a><![CDATA[ keep   me ]]></a>`},
		{"<a>  <![CDATA[x]]>  </a>", "<a>  <![CDATA[x]]></a>"},
		{`<!DOCTYPE  foo  SYSTEM  "foo.dtd"><a/>`, `<!DOCTYPE foo SYSTEM "foo.dtd"><a/>`},
		{"<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<!DOCTYPE r>\n<r>\n  <s>v</s>\n</r>",
			"<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<!DOCTYPE r><r><s>v</s></r>"},
		{"<pre>\n  \n</pre>", "<pre>\n  \n</pre>"},
		{"  <a/>  ", "  <a/>  "}, // document edges are never touched
	}
	for _, tt := range xmlTests {
		t.Run(tt.xml, func(t *testing.T) {
			out, err := MinifyString(tt.xml)
			test.Error(t, err)
			test.String(t, out, tt.expected)
		})
	}
}

// Minifying a second time must not change the result.
func TestIdempotence(t *testing.T) {
	xmlTests := []string{
		`<a>  </a>`,
		`<?xml  version = "1.0"  standalone = "yes" ?><a/>`,
		`<a xmlns:alpha='urn:x' xmlns:beta='urn:y'><alpha:b beta:c="v"/></a>`,
		"<!DOCTYPE r [\n  <!ELEMENT r (#PCDATA)>\n]>\n<r>\n  text  node\n</r>",
		"<a>  <![CDATA[  keep  ]]>  </a>",
	}
	for _, x := range xmlTests {
		t.Run(x, func(t *testing.T) {
			once, err := MinifyString(x)
			test.Error(t, err)
			twice, err := MinifyString(once)
			test.Error(t, err)
			test.String(t, twice, once)
		})
	}
}

// The zero value disables every pass and returns the input unchanged.
func TestNoop(t *testing.T) {
	o := &Minifier{}
	xmlTests := []string{
		"  <?xml version = \"1.0\" ?>\n<!-- c -->\n<a>  <b/>  </a>  ",
		`<a xmlns:unused="urn:x"><b>  text  </b></a>`,
	}
	for _, x := range xmlTests {
		out, err := o.MinifyString(x)
		test.Error(t, err)
		test.String(t, out, x)
	}
}

func TestInvalidOption(t *testing.T) {
	o := &Minifier{TrimWhitespaceFromTexts: Tristate(7)}
	_, err := o.MinifyString(`<a/>`)
	test.That(t, err != nil, "must return error for invalid tri-state value")
}

func TestTristateText(t *testing.T) {
	var v Tristate
	test.Error(t, v.UnmarshalText([]byte("strict")))
	test.T(t, v, Strict)

	b, err := True.MarshalText()
	test.Error(t, err)
	test.String(t, string(b), "true")

	test.That(t, v.UnmarshalText([]byte("bogus")) != nil, "must reject unknown value")
	_, err = Tristate(9).MarshalText()
	test.That(t, err != nil, "must reject out-of-range value")
}

func TestMinifyReader(t *testing.T) {
	m := minify.New()
	m.Add("text/xml", NewMinifier())
	out, err := m.String("text/xml", `<a>  </a>`)
	test.Error(t, err)
	test.String(t, out, `<a/>`)
}

////////////////////////////////////////////////////////////////

func ExampleMinifier_MinifyString() {
	out, _ := MinifyString(`<greeting xmlns:alpha="urn:example">  <alpha:hello>  Hi  </alpha:hello>  </greeting>`)
	fmt.Println(out)
	// Output: <greeting xmlns:a="urn:example"><a:hello>  Hi  </a:hello></greeting>
}

func ExampleMinify() {
	m := minify.New()
	m.AddFunc("text/xml", Minify)

	if err := m.Minify("text/xml", os.Stdout, os.Stdin); err != nil {
		panic(err)
	}
}
