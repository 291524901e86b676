package bundle

import "strings"

// OpenGraphNode is an ordered list of OpenGraph properties.
type OpenGraphNode struct {
	Namespaces map[string]string
	Properties []OpenGraphProperty
}

// OpenGraphProperty is one meta property/content pair.
type OpenGraphProperty struct {
	Key   string
	Value string
}

// Lookup builds a map in which the first value per key wins.
func (n OpenGraphNode) Lookup() map[string]string {
	out := make(map[string]string, len(n.Properties))
	for _, p := range n.Properties {
		if _, ok := out[p.Key]; !ok {
			out[p.Key] = p.Value
		}
	}
	return out
}

// openGraphNodes accepts an object or a list of entries. Each entry may be
// an object with a "properties" member, a plain object of properties, or a
// bare list of key/value pairs.
func openGraphNodes(raw Value) []OpenGraphNode {
	if raw.IsObject() {
		return []OpenGraphNode{newOpenGraphNode(raw)}
	}
	var out []OpenGraphNode
	for _, entry := range raw.List() {
		switch {
		case entry.IsObject():
			out = append(out, newOpenGraphNode(entry))
		case entry.IsList():
			if isPair(entry) {
				// a bare list of pairs was passed directly as the entry list
				return []OpenGraphNode{{Properties: pairs(raw)}}
			}
			out = append(out, OpenGraphNode{Properties: pairs(entry)})
		}
	}
	return out
}

func newOpenGraphNode(raw Value) OpenGraphNode {
	node := OpenGraphNode{Namespaces: map[string]string{}}
	if ns := raw.Get("namespace"); ns.IsObject() {
		for _, k := range ns.Keys() {
			node.Namespaces[k] = ns.Get(k).Text()
		}
	}

	props := raw.Get("properties")
	switch {
	case props.IsList():
		node.Properties = pairs(props)
	case props.IsObject():
		node.Properties = objectPairs(props)
	case !raw.Has("properties"):
		node.Properties = objectPairs(raw)
	}
	return node
}

func isPair(v Value) bool {
	if !v.IsList() || v.Len() != 2 {
		return false
	}
	return v.First().Kind() == KindString
}

// pairs reads [key, value] tuples and {"property"/"key", "content"/"value"}
// objects. List valued entries expand to one property per element.
func pairs(list Value) []OpenGraphProperty {
	var out []OpenGraphProperty
	for _, item := range list.List() {
		var key string
		var val Value
		switch {
		case isPair(item):
			key, val = item.First().Text(), item.List()[1]
		case item.IsObject():
			key = firstNonEmpty(item.Get("property").Text(), item.Get("key").Text())
			val = item.Get("content")
			if val.IsNull() {
				val = item.Get("value")
			}
		default:
			continue
		}
		out = append(out, expand(key, val)...)
	}
	return out
}

func objectPairs(obj Value) []OpenGraphProperty {
	var out []OpenGraphProperty
	for _, key := range obj.Keys() {
		if key == "namespace" {
			continue
		}
		out = append(out, expand(key, obj.Get(key))...)
	}
	return out
}

func expand(key string, val Value) []OpenGraphProperty {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	var out []OpenGraphProperty
	for _, v := range val.List() {
		if v.IsObject() || v.IsList() {
			continue
		}
		out = append(out, OpenGraphProperty{Key: key, Value: strings.TrimSpace(v.String())})
	}
	return out
}
