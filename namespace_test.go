package xmlmin // import "github.com/xmlmin/xmlmin"

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveUnusedNamespaces(t *testing.T) {
	o := &Minifier{RemoveUnusedNamespaces: true}
	tests := []struct {
		xml      string
		expected string
	}{
		{`<a xmlns:foo="urn:x"><b/></a>`, `<a><b/></a>`},
		{`<a xmlns:foo="urn:x"><foo:b/></a>`, `<a xmlns:foo="urn:x"><foo:b/></a>`},
		{`<a xmlns:foo="urn:x"><b foo:attr="v"/></a>`, `<a xmlns:foo="urn:x"><b foo:attr="v"/></a>`},
		{`<a xmlns:u1="x" xmlns:used="y"><used:b/></a>`, `<a xmlns:used="y"><used:b/></a>`},
		{`<a><b/></a>`, `<a><b/></a>`},
	}
	for _, tt := range tests {
		out, err := o.MinifyString(tt.xml)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, out, tt.xml)
	}
}

func TestRemoveUnusedDefaultNamespace(t *testing.T) {
	o := &Minifier{RemoveUnusedDefaultNamespace: true}
	tests := []struct {
		xml      string
		expected string
	}{
		{`<p:r xmlns="d" xmlns:p="u"><p:c/></p:r>`, `<p:r xmlns:p="u"><p:c/></p:r>`},
		{`<r xmlns="d"><c/></r>`, `<r xmlns="d"><c/></r>`},
		{`<p:r xmlns="d" xmlns:p="u"><c/></p:r>`, `<p:r xmlns="d" xmlns:p="u"><c/></p:r>`},
	}
	for _, tt := range tests {
		out, err := o.MinifyString(tt.xml)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, out, tt.xml)
	}
}

func TestShortenNamespaces(t *testing.T) {
	o := &Minifier{ShortenNamespaces: true}
	tests := []struct {
		xml      string
		expected string
	}{
		{`<a xmlns:alpha="urn:x"><alpha:b alpha:c="v"/></a>`, `<a xmlns:a="urn:x"><a:b a:c="v"/></a>`},
		// first choice taken, search continues with the next free prefix
		{`<r xmlns:aa="u1" xmlns:ab="u2"><aa:x/><ab:y/></r>`, `<r xmlns:a="u1" xmlns:A="u2"><a:x/><A:y/></r>`},
		// xsi stays as is, even when a shorter prefix is free
		{`<r xmlns:xsi="u"><x xsi:type="t"/></r>`, `<r xmlns:xsi="u"><x xsi:type="t"/></r>`},
		// already as short as it gets
		{`<r xmlns:q="u"><q:x/></r>`, `<r xmlns:q="u"><q:x/></r>`},
		{`<r xmlns:long="u" xmlns:l="v"><long:x/><l:y/></r>`, `<r xmlns:A="u" xmlns:l="v"><A:x/><l:y/></r>`},
	}
	for _, tt := range tests {
		out, err := o.MinifyString(tt.xml)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, out, tt.xml)
	}
}

func TestRemoveSchemaLocationAttributes(t *testing.T) {
	o := &Minifier{RemoveSchemaLocationAttributes: true}
	out, err := o.MinifyString(`<r xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="urn:x x.xsd"><c/></r>`)
	require.NoError(t, err)
	assert.Equal(t, `<r xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><c/></r>`, out)

	out, err = o.MinifyString(`<r xsi:noNamespaceSchemaLocation='x.xsd'/>`)
	require.NoError(t, err)
	assert.Equal(t, `<r/>`, out)

	// the xsi declaration becomes unused once the attribute is gone
	d := NewMinifier()
	d.RemoveSchemaLocationAttributes = true
	out, err = d.MinifyString(`<r xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="urn:x x.xsd"><c/></r>`)
	require.NoError(t, err)
	assert.Equal(t, `<r><c/></r>`, out)
}
