package tally

import "sort"

// Group merges labels into named groups. groups maps a group name to its
// member labels; labels in no group are kept as they are. A group takes
// the position of its first member, then entries are re-sorted. Counts are
// summed, so a multi-valued event holding two members of one group counts
// twice. Denominators are unchanged. A label listed in several groups
// goes to the group whose name sorts first.
func Group(t *Table, groups map[string][]string) *Table {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	groupOf := make(map[string]string)
	for _, name := range names {
		for _, m := range groups[name] {
			if _, taken := groupOf[m]; !taken {
				groupOf[m] = name
			}
		}
	}

	out := t.Top(0)
	out.Entries = out.Entries[:0]
	index := make(map[string]int)
	for _, e := range t.Entries {
		label := e.Label
		if g, ok := groupOf[label]; ok {
			label = g
		}
		if i, ok := index[label]; ok {
			out.Entries[i].Count += e.Count
			continue
		}
		index[label] = len(out.Entries)
		out.Entries = append(out.Entries, Entry{Label: label, Count: e.Count})
	}
	sortEntries(out.Entries)
	return out
}

// Collapse keeps the first keep entries and folds the rest into one entry
// named other, placed last. Denominators are unchanged.
func Collapse(t *Table, keep int, other string) *Table {
	if keep < 0 || len(t.Entries) <= keep {
		return t.Top(0)
	}
	out := t.Top(0)
	out.Entries = out.Entries[:keep]
	var rest int64
	for _, e := range t.Entries[keep:] {
		rest += e.Count
	}
	out.Entries = append(out.Entries, Entry{Label: other, Count: rest})
	return out
}
