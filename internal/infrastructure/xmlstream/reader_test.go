package xmlstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFragmentsBatching(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<Content><Products Version=\"5.0\">")
	for i := 0; i < 7; i++ {
		sb.WriteString("<Product><Name>p</Name></Product>")
	}
	sb.WriteString("<Success>7</Success><Failure>0</Failure><TotalRecords>7</TotalRecords>")
	sb.WriteString("</Products></Content>")

	var batches [][]string
	err := ReadFragments(strings.NewReader(sb.String()), "Products", "Product", 3, func(elements [][]byte) (bool, error) {
		batch := make([]string, 0, len(elements))
		for _, e := range elements {
			batch = append(batch, string(e))
		}
		batches = append(batches, batch)
		return true, nil
	})
	require.NoError(t, err)

	// 7 elements at batch size 3: two full batches plus a remainder.
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[1], 3)
	assert.Len(t, batches[2], 1)
	assert.Contains(t, batches[0][0], "<Name>p</Name>")
}

func TestReadFragmentsEarlyStop(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<Content><Products>")
	for i := 0; i < 10; i++ {
		sb.WriteString("<Product/>")
	}
	sb.WriteString("</Products></Content>")

	calls := 0
	err := ReadFragments(strings.NewReader(sb.String()), "Products", "Product", 4, func(elements [][]byte) (bool, error) {
		calls++
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestReadFragmentsPreservesNestedContent(t *testing.T) {
	doc := `<Content><Categories>
		<Category>
			<Name>Shoes &amp; Bags</Name>
			<SeName><Value LanguageCulture="de-DE">schuhe</Value></SeName>
		</Category>
		<Success>1</Success>
	</Categories></Content>`

	var got []string
	err := ReadFragments(strings.NewReader(doc), "Categories", "Category", 0, func(elements [][]byte) (bool, error) {
		for _, e := range elements {
			got = append(got, string(e))
		}
		return true, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "Shoes &amp; Bags")
	assert.Contains(t, got[0], `LanguageCulture="de-DE"`)
	assert.NotContains(t, got[0], "Success")
}

func TestReadFragmentsKeepsElementBytesVerbatim(t *testing.T) {
	// Entity references, attribute quoting and CDATA must survive exactly
	// as written; re-encoding would normalize all three.
	entity := `<Product ref='10'><Name>A &amp; B</Name><Note><![CDATA[x < y]]></Note><Empty/></Product>`
	doc := "<Content><Products>\n\t" + entity + "\n</Products></Content>"

	var got []string
	err := ReadFragments(strings.NewReader(doc), "Products", "Product", 0, func(elements [][]byte) (bool, error) {
		for _, e := range elements {
			got = append(got, string(e))
		}
		return true, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entity, got[0])
}

func TestReadFragmentsMissingSubtree(t *testing.T) {
	called := false
	err := ReadFragments(strings.NewReader("<Content><Other/></Content>"), "Products", "Product", 0, func([][]byte) (bool, error) {
		called = true
		return true, nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestReadFragmentsPropagatesProcessorError(t *testing.T) {
	doc := "<Content><Products><Product/></Products></Content>"
	err := ReadFragments(strings.NewReader(doc), "Products", "Product", 0, func([][]byte) (bool, error) {
		return true, assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}
