package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKeepsOrderAndNumberLiterals(t *testing.T) {
	v, err := Decode([]byte(`{"z": 1, "a": 19.995, "m": [true, null, "x"]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "a", "m"}, v.Keys())
	assert.Equal(t, KindNumber, v.Get("a").Kind())
	assert.Equal(t, "19.995", v.Get("a").String())
	assert.Equal(t, 3, v.Get("m").Len())
	assert.Equal(t, "true", v.Get("m").First().String())
	assert.Equal(t, `{"z":1,"a":19.995,"m":[true,null,"x"]}`, v.Raw())
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	_, err := Decode([]byte(`{} {}`))
	require.Error(t, err)

	_, err = Decode([]byte(`{"a":`))
	require.Error(t, err)
}

func TestValueListAndFirst(t *testing.T) {
	assert.Nil(t, Null.List())
	assert.Len(t, String("x").List(), 1)
	assert.True(t, List().First().IsNull())
	assert.Equal(t, "Widget", List(String(" Widget ")).Text())
	assert.Equal(t, []string{"a", "b"}, List(String("a"), String(""), Null, String("b")).Strings())
	assert.True(t, String("x").Get("k").IsNull())
}

func TestFromAny(t *testing.T) {
	v := FromAny(map[string]any{
		"price": 19.99,
		"qty":   3,
		"tags":  []string{"a", "b"},
		"nested": map[string]any{
			"ok": true,
		},
	})

	assert.Equal(t, []string{"nested", "price", "qty", "tags"}, v.Keys())
	assert.Equal(t, "19.99", v.Get("price").String())
	assert.Equal(t, "3", v.Get("qty").String())
	assert.Equal(t, []string{"a", "b"}, v.Get("tags").Strings())
	assert.Equal(t, "true", v.Get("nested").Get("ok").String())
}

func TestParseIgnoresUnknownSyntaxes(t *testing.T) {
	b, err := Parse([]byte(`{"dublincore": [{"title": "x"}], "json-ld": []}`))
	require.NoError(t, err)
	assert.True(t, b.Empty())

	_, err = Parse([]byte(`[1, 2]`))
	require.Error(t, err)
}

func TestJSONLDGraphFlattened(t *testing.T) {
	b, err := Parse([]byte(`{"json-ld": [
		{"@context": "https://schema.org", "@graph": [{"@type": "WebSite"}, {"@type": "Product", "name": "P"}]},
		[{"@type": "Offer"}]
	]}`))
	require.NoError(t, err)

	require.Len(t, b.JSONLD, 4)
	assert.True(t, b.JSONLD[0].Has("@graph"))
	assert.Equal(t, "WebSite", b.JSONLD[1].Get("@type").Text())
	assert.Equal(t, "Product", b.JSONLD[2].Get("@type").Text())
	assert.Equal(t, "Offer", b.JSONLD[3].Get("@type").Text())
}

func TestMicrodataItemConversion(t *testing.T) {
	b, err := Parse([]byte(`{"microdata": [{
		"type": "http://schema.org/WebPage",
		"properties": {
			"name": ["Page"],
			"mainEntity": {
				"type": ["http://schema.org/Product"],
				"properties": {
					"name": ["Widget"],
					"image": ["a.jpg", "b.jpg"],
					"offers": {"price": "7.00", "priceCurrency": "EUR"}
				}
			}
		}
	}]}`))
	require.NoError(t, err)
	require.Len(t, b.Microdata, 1)

	root := b.Microdata[0]
	assert.Equal(t, "Page", root.Text("name"))

	product := root.Find(func(it *MicrodataItem) bool {
		return it.HasType(map[string]bool{"http://schema.org/Product": true})
	})
	require.NotNil(t, product)
	assert.Equal(t, "Widget", product.Text("name"))
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, product.Texts("image"))

	offer := product.Item("offers")
	require.NotNil(t, offer)
	assert.Empty(t, offer.Types)
	assert.Equal(t, "7.00", offer.Text("price"))
	assert.Equal(t, "EUR", offer.Text("priceCurrency"))
}

func TestMicrodataItemWithoutPropertiesKey(t *testing.T) {
	item := NewMicrodataItem(FromAny(map[string]any{
		"@type": "http://schema.org/Product",
		"name":  "Inline",
	}))

	assert.Equal(t, []string{"http://schema.org/Product"}, item.Types)
	require.Len(t, item.Properties, 1)
	assert.Equal(t, "Inline", item.Text("name"))
}

func TestRDFaNodeDropsUnknownWrappers(t *testing.T) {
	node := NewRDFaNode(FromAny(map[string]any{
		"@id": "https://shop.test/p/1",
		"http://ogp.me/ns#image": []any{
			map[string]any{"@value": "img1.jpg"},
			map[string]any{"invalid_key": "x"},
			map[string]any{"@value": "img2.jpg"},
		},
		"http://ogp.me/ns#type": []any{map[string]any{"@value": "Product"}},
	}))

	assert.Equal(t, "https://shop.test/p/1", node.ID)
	assert.Equal(t, []string{"img1.jpg", "img2.jpg"}, node.Literals("http://ogp.me/ns#image"))
	assert.Equal(t, "Product", node.Literal("og:type", "http://ogp.me/ns#type"))
	assert.Len(t, node.PredicatesWithSuffix("#type"), 1)
}

func TestOpenGraphShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{
			name: "entries with properties pairs",
			raw:  `{"opengraph": [{"namespace": {"og": "http://ogp.me/ns#"}, "properties": [["og:type", "product"], ["og:title", "A"], ["og:title", "B"]]}]}`,
			want: map[string]string{"og:type": "product", "og:title": "A"},
		},
		{
			name: "single object with properties",
			raw:  `{"opengraph": {"properties": [["og:type", "product"]]}}`,
			want: map[string]string{"og:type": "product"},
		},
		{
			name: "plain map entry",
			raw:  `{"opengraph": [{"og:type": "product", "og:image": ["1.jpg", "2.jpg"]}]}`,
			want: map[string]string{"og:type": "product", "og:image": "1.jpg"},
		},
		{
			name: "bare pair list",
			raw:  `{"opengraph": [["og:type", ["product", "other"]], ["og:url", "https://x.test"]]}`,
			want: map[string]string{"og:type": "product", "og:url": "https://x.test"},
		},
		{
			name: "property objects",
			raw:  `{"opengraph": [{"properties": [{"property": "og:type", "content": "product"}]}]}`,
			want: map[string]string{"og:type": "product"},
		},
		{
			name: "empty object",
			raw:  `{"opengraph": {}}`,
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Parse([]byte(tt.raw))
			require.NoError(t, err)
			got := map[string]string{}
			for i := len(b.OpenGraph) - 1; i >= 0; i-- {
				for k, v := range b.OpenGraph[i].Lookup() {
					got[k] = v
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMicroformatConversion(t *testing.T) {
	b, err := Parse([]byte(`{"microformat": [{
		"type": ["h-entry"],
		"properties": {"name": ["Post"]},
		"children": [{
			"type": ["h-product"],
			"properties": {
				"name": ["Lamp"],
				"description": [{"value": "Bright", "html": "<b>Bright</b>"}],
				"brand": [{"type": ["h-card"], "properties": {"name": ["Acme"]}}]
			}
		}]
	}]}`))
	require.NoError(t, err)
	require.Len(t, b.Microformat, 1)

	product := b.Microformat[0].Find(func(it *MicroformatItem) bool { return it.HasType("h-product") })
	require.NotNil(t, product)
	assert.Equal(t, "Lamp", product.Text("name"))
	assert.Equal(t, "Bright", product.Text("description", "summary"))
	assert.Equal(t, "Acme", product.Text("brand"))
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage([]byte(`{"url": "https://shop.test/p/1", "origin": "shop.test", "data": {"json-ld": [{"@type": "Product", "offers": {"price": 10.005}}]}}`))
	require.NoError(t, err)

	assert.Equal(t, "https://shop.test/p/1", page.URL)
	assert.Equal(t, "shop.test", page.Origin)
	b := page.Bundle()
	require.Len(t, b.JSONLD, 1)
	assert.Equal(t, "10.005", b.JSONLD[0].Get("offers").Get("price").String())
}

func TestParseSyntax(t *testing.T) {
	for name, want := range map[string]Syntax{
		"JSON-LD":   JSONLD,
		"jsonld":    JSONLD,
		"microdata": Microdata,
		"RDFa":      RDFa,
		"og":        OpenGraph,
		"mf2":       Microformat,
	} {
		got, ok := ParseSyntax(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := ParseSyntax("dublincore")
	assert.False(t, ok)
}
