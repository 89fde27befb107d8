package doc

import "strings"

// Project keeps only the given dotted field paths of a map value. A path
// that crosses a list is applied to every map element of that list, so
// "entities.hashtags.text" keeps the text of each hashtag. With no paths the
// value is returned unchanged; a non-map value projects to an empty map.
func (v Value) Project(paths ...string) Value {
	if len(paths) == 0 {
		return v
	}
	out := NewMap()
	if v.kind != KindMap {
		return out
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		projectInto(out, v, strings.Split(p, "."))
	}
	return out
}

func projectInto(dst, src Value, segs []string) {
	child, ok := src.Get(segs[0])
	if !ok {
		return
	}
	key := segs[0]
	if len(segs) == 1 {
		dst.Set(key, child)
		return
	}

	switch child.kind {
	case KindMap:
		sub, exists := dst.Get(key)
		if !exists || sub.kind != KindMap {
			sub = NewMap()
		}
		projectInto(sub, child, segs[1:])
		dst.Set(key, sub)
	case KindList:
		prev, exists := dst.Get(key)
		items := make([]Value, 0, len(child.list))
		for _, el := range child.list {
			if el.kind != KindMap {
				continue
			}
			i := len(items)
			var sub Value
			if exists && prev.kind == KindList && i < len(prev.list) && prev.list[i].kind == KindMap {
				sub = prev.list[i]
			} else {
				sub = NewMap()
			}
			projectInto(sub, el, segs[1:])
			items = append(items, sub)
		}
		dst.Set(key, ListValue(items...))
	}
}
