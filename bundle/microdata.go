package bundle

import "strings"

// MicrodataItem is an itemscope with its declared types and properties.
type MicrodataItem struct {
	Types      []string
	ID         string
	Properties []MicrodataProperty
}

// MicrodataProperty is one itemprop name with its values in document order.
type MicrodataProperty struct {
	Name   string
	Values []MicrodataValue
}

// MicrodataValue is either a text value or a nested item.
type MicrodataValue struct {
	Text string
	Item *MicrodataItem
}

var microdataMetaKeys = map[string]bool{
	"type": true, "@type": true, "id": true, "@id": true, "@context": true, "properties": true,
}

// NewMicrodataItem converts a raw item. Properties are read from the
// "properties" key when present, otherwise from the object's own keys.
func NewMicrodataItem(raw Value) MicrodataItem {
	item := MicrodataItem{
		Types: append(raw.Get("type").Strings(), raw.Get("@type").Strings()...),
		ID:    firstNonEmpty(raw.Get("id").Text(), raw.Get("@id").Text()),
	}

	props := raw.Get("properties")
	ownKeys := !props.IsObject()
	if ownKeys {
		props = raw
	}
	for _, name := range props.Keys() {
		if ownKeys && microdataMetaKeys[name] {
			continue
		}
		prop := MicrodataProperty{Name: name}
		for _, v := range props.Get(name).List() {
			switch {
			case v.IsObject():
				nested := NewMicrodataItem(v)
				prop.Values = append(prop.Values, MicrodataValue{Item: &nested})
			case v.IsList() || v.IsNull():
				if s := v.Text(); s != "" {
					prop.Values = append(prop.Values, MicrodataValue{Text: s})
				}
			default:
				prop.Values = append(prop.Values, MicrodataValue{Text: strings.TrimSpace(v.String())})
			}
		}
		item.Properties = append(item.Properties, prop)
	}
	return item
}

// HasType reports whether any declared type equals one of types.
func (it *MicrodataItem) HasType(types map[string]bool) bool {
	for _, t := range it.Types {
		if types[strings.TrimSpace(t)] {
			return true
		}
	}
	return false
}

// Values returns the values of the named property.
func (it *MicrodataItem) Values(name string) []MicrodataValue {
	if it == nil {
		return nil
	}
	for _, p := range it.Properties {
		if p.Name == name {
			return p.Values
		}
	}
	return nil
}

// Text returns the first value of the named property as text. A nested item
// contributes its own "name" property.
func (it *MicrodataItem) Text(name string) string {
	values := it.Values(name)
	if len(values) == 0 {
		return ""
	}
	if values[0].Item != nil {
		return values[0].Item.Text("name")
	}
	return values[0].Text
}

// Texts returns every non-empty text value of the named property.
func (it *MicrodataItem) Texts(name string) []string {
	var out []string
	for _, v := range it.Values(name) {
		text := v.Text
		if v.Item != nil {
			text = firstNonEmpty(v.Item.Text("url"), v.Item.Text("contentUrl"))
		}
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

// Item returns the first nested item of the named property.
func (it *MicrodataItem) Item(name string) *MicrodataItem {
	values := it.Values(name)
	if len(values) == 0 {
		return nil
	}
	return values[0].Item
}

// Find walks the item tree depth first in document order and returns the
// first item for which match is true.
func (it *MicrodataItem) Find(match func(*MicrodataItem) bool) *MicrodataItem {
	if match(it) {
		return it
	}
	for _, p := range it.Properties {
		for _, v := range p.Values {
			if v.Item == nil {
				continue
			}
			if found := v.Item.Find(match); found != nil {
				return found
			}
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
