package htmldata

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-products/bundle"
)

// microdata returns the top-level items of the document. Items nested in a
// property are reachable through their parent.
func microdata(root *goquery.Selection, base *url.URL) []bundle.Value {
	var out []bundle.Value
	root.Find("[itemscope]:not([itemprop])").Each(func(_ int, s *goquery.Selection) {
		out = append(out, microdataItem(s, base))
	})
	return out
}

func microdataItem(s *goquery.Selection, base *url.URL) bundle.Value {
	props := &orderedProps{}
	collectMicrodata(s, base, props)

	fields := []bundle.Field{
		{Key: "type", Value: bundle.List(stringValues(strings.Fields(s.AttrOr("itemtype", "")))...)},
	}
	if id := strings.TrimSpace(s.AttrOr("itemid", "")); id != "" {
		fields = append(fields, bundle.Field{Key: "id", Value: bundle.String(absolute(base, id))})
	}
	fields = append(fields, bundle.Field{Key: "properties", Value: props.object()})
	return bundle.Object(fields...)
}

// collectMicrodata walks the descendants of an item without entering
// nested item scopes.
func collectMicrodata(s *goquery.Selection, base *url.URL, props *orderedProps) {
	s.Children().Each(func(_ int, c *goquery.Selection) {
		_, scoped := c.Attr("itemscope")
		if names := strings.Fields(c.AttrOr("itemprop", "")); len(names) > 0 {
			var v bundle.Value
			if scoped {
				v = microdataItem(c, base)
			} else {
				v = bundle.String(elementValue(c, base))
			}
			for _, name := range names {
				props.add(name, v)
			}
		}
		if !scoped {
			collectMicrodata(c, base, props)
		}
	})
}
