package bundle

import "strings"

// MicroformatItem is an mf2 item such as h-product.
type MicroformatItem struct {
	Types      []string
	Properties []MicroformatProperty
	Children   []MicroformatItem
}

// MicroformatProperty holds the plain values of one mf2 property. Embedded
// and nested values are reduced to their "value" (or nested "name").
type MicroformatProperty struct {
	Name   string
	Values []string
}

// NewMicroformatItem converts a raw mf2 item.
func NewMicroformatItem(raw Value) MicroformatItem {
	item := MicroformatItem{Types: raw.Get("type").Strings()}
	props := raw.Get("properties")
	for _, name := range props.Keys() {
		prop := MicroformatProperty{Name: name}
		for _, v := range props.Get(name).List() {
			var text string
			switch {
			case v.IsObject() && v.Has("value"):
				text = v.Get("value").Text()
			case v.IsObject():
				text = v.Get("properties").Get("name").Text()
			default:
				text = strings.TrimSpace(v.String())
			}
			if text != "" {
				prop.Values = append(prop.Values, text)
			}
		}
		item.Properties = append(item.Properties, prop)
	}
	for _, child := range raw.Get("children").List() {
		if child.IsObject() {
			item.Children = append(item.Children, NewMicroformatItem(child))
		}
	}
	return item
}

// HasType reports whether the item declares typ.
func (it *MicroformatItem) HasType(typ string) bool {
	for _, t := range it.Types {
		if t == typ {
			return true
		}
	}
	return false
}

// Values returns the values of the first present property among names.
func (it *MicroformatItem) Values(names ...string) []string {
	for _, name := range names {
		for _, p := range it.Properties {
			if p.Name == name && len(p.Values) > 0 {
				return p.Values
			}
		}
	}
	return nil
}

// Text returns the first value of the first present property among names.
func (it *MicroformatItem) Text(names ...string) string {
	if values := it.Values(names...); len(values) > 0 {
		return values[0]
	}
	return ""
}

// Find walks the item and its children depth first.
func (it *MicroformatItem) Find(match func(*MicroformatItem) bool) *MicroformatItem {
	if match(it) {
		return it
	}
	for i := range it.Children {
		if found := it.Children[i].Find(match); found != nil {
			return found
		}
	}
	return nil
}
