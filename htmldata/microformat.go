package htmldata

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-products/bundle"
	"golang.org/x/net/html/atom"
)

// microformats returns the root mf2 items: elements with an h-* class that
// are not nested inside another item.
func microformats(root *goquery.Selection, base *url.URL) []bundle.Value {
	var out []bundle.Value
	root.Find(`[class*="h-"]`).Each(func(_ int, s *goquery.Selection) {
		if len(itemTypes(s)) == 0 {
			return
		}
		if s.ParentsFiltered(`[class*="h-"]`).FilterFunction(func(_ int, p *goquery.Selection) bool {
			return len(itemTypes(p)) > 0
		}).Length() > 0 {
			return
		}
		out = append(out, microformatItem(s, base))
	})
	return out
}

func microformatItem(s *goquery.Selection, base *url.URL) bundle.Value {
	props := &orderedProps{}
	var children []bundle.Value
	walkMicroformat(s, base, props, &children)
	if !props.has("name") {
		name := collapse(s.Text())
		if tagAtom(s) == atom.Img {
			name = strings.TrimSpace(s.AttrOr("alt", ""))
		}
		if name != "" {
			props.add("name", bundle.String(name))
		}
	}

	fields := []bundle.Field{
		{Key: "type", Value: bundle.List(stringValues(itemTypes(s))...)},
		{Key: "properties", Value: props.object()},
	}
	if len(children) > 0 {
		fields = append(fields, bundle.Field{Key: "children", Value: bundle.List(children...)})
	}
	return bundle.Object(fields...)
}

func walkMicroformat(s *goquery.Selection, base *url.URL, props *orderedProps, children *[]bundle.Value) {
	s.Children().Each(func(_ int, c *goquery.Selection) {
		classes := strings.Fields(c.AttrOr("class", ""))
		if types := itemTypes(c); len(types) > 0 {
			nested := microformatItem(c, base)
			isProperty := false
			for _, class := range classes {
				if name, _, ok := propertyClass(class); ok {
					isProperty = true
					props.add(name, bundle.Object(
						bundle.Field{Key: "type", Value: nested.Get("type")},
						bundle.Field{Key: "properties", Value: nested.Get("properties")},
						bundle.Field{Key: "value", Value: bundle.String(nested.Get("properties").Get("name").Text())},
					))
				}
			}
			if !isProperty {
				*children = append(*children, nested)
			}
			return
		}
		for _, class := range classes {
			if name, prefix, ok := propertyClass(class); ok {
				props.add(name, bundle.String(microformatValue(c, prefix, base)))
			}
		}
		walkMicroformat(c, base, props, children)
	})
}

func itemTypes(s *goquery.Selection) []string {
	var out []string
	for _, class := range strings.Fields(s.AttrOr("class", "")) {
		if strings.HasPrefix(class, "h-") && len(class) > 2 {
			out = append(out, class)
		}
	}
	return out
}

// propertyClass splits a class such as "p-name" or "dt-start" into the
// property name and its parsing prefix.
func propertyClass(class string) (name, prefix string, ok bool) {
	for _, p := range []string{"p-", "u-", "dt-", "e-"} {
		if rest, found := strings.CutPrefix(class, p); found && rest != "" {
			return rest, p, true
		}
	}
	return "", "", false
}

func microformatValue(s *goquery.Selection, prefix string, base *url.URL) string {
	tag := tagAtom(s)
	switch prefix {
	case "u-":
		return elementValue(s, base)
	case "dt-":
		switch tag {
		case atom.Time, atom.Ins, atom.Del:
			if v, ok := s.Attr("datetime"); ok {
				return strings.TrimSpace(v)
			}
		case atom.Abbr:
			if v, ok := s.Attr("title"); ok {
				return strings.TrimSpace(v)
			}
		}
	case "p-":
		switch tag {
		case atom.Abbr:
			if v, ok := s.Attr("title"); ok {
				return strings.TrimSpace(v)
			}
		case atom.Img, atom.Area:
			return strings.TrimSpace(s.AttrOr("alt", ""))
		case atom.Data, atom.Input:
			if v, ok := s.Attr("value"); ok {
				return strings.TrimSpace(v)
			}
		}
	}
	return collapse(s.Text())
}
