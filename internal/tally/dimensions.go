package tally

import (
	"strings"

	"github.com/runnerr0/streamtally/internal/doc"
	"github.com/runnerr0/streamtally/internal/filter"
)

// Field counts the scalar at a dotted path. Strings and numbers count;
// anything else, or a missing field, contributes nothing.
func Field(name, path string) Dimension {
	return Dimension{
		Name:   name,
		Fields: []string{path},
		Extract: func(d doc.Value) []string {
			if s, ok := scalar(d, path); ok {
				return []string{s}
			}
			return nil
		},
	}
}

func scalar(d doc.Value, path string) (string, bool) {
	v, ok := d.Lookup(path)
	if !ok {
		return "", false
	}
	if s, ok := v.Str(); ok {
		return s, true
	}
	if n, ok := v.Number(); ok {
		return n, true
	}
	return "", false
}

// listField collects key from every map in the list at path.
func listField(d doc.Value, path, key string) []string {
	list, ok := d.Lookup(path)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list.Items() {
		v, ok := item.Get(key)
		if !ok {
			continue
		}
		if s, ok := v.Str(); ok {
			out = append(out, s)
		}
	}
	return out
}

// HashtagTexts returns the text of every entry in entities.hashtags, as
// written in the post.
func HashtagTexts(d doc.Value) []string {
	return listField(d, "entities.hashtags", "text")
}

// Languages counts the lang field.
func Languages() Dimension { return Field("languages", "lang") }

// Countries counts place.country. Most posts carry no place; use
// AllScanned to see the share of all posts.
func Countries() Dimension { return Field("countries", "place.country") }

// ContentTypes counts Classify labels. Every event contributes.
func ContentTypes() Dimension {
	return Dimension{
		Name:   "content",
		Fields: []string{"retweeted_status", "is_quote_status", "in_reply_to_status_id"},
		Extract: func(d doc.Value) []string {
			return []string{string(Classify(d))}
		},
	}
}

// Hashtags counts every hashtag attached to an event.
func Hashtags() Dimension {
	return Dimension{
		Name:    "hashtags",
		Fields:  []string{"entities.hashtags.text"},
		Extract: HashtagTexts,
	}
}

// TrackedHashtags counts only hashtags in set, in canonical form, so
// "#Ukraine" and "ukraine" land in one row.
func TrackedHashtags(set *filter.Set) Dimension {
	return Dimension{
		Name:   "tracked",
		Fields: []string{"entities.hashtags.text"},
		Extract: func(d doc.Value) []string {
			var out []string
			for _, tag := range HashtagTexts(d) {
				if set.Matches(tag) {
					out = append(out, filter.Canonical(tag))
				}
			}
			return out
		},
	}
}

// Mentions counts mentioned screen names.
func Mentions() Dimension {
	return Dimension{
		Name:   "mentions",
		Fields: []string{"entities.user_mentions.screen_name"},
		Extract: func(d doc.Value) []string {
			return listField(d, "entities.user_mentions", "screen_name")
		},
	}
}

// HashtagsInCountry counts hashtags of posts placed in country. The
// country name is compared case-insensitively.
func HashtagsInCountry(country string) Dimension {
	return Dimension{
		Name:   "hashtags in " + country,
		Fields: []string{"entities.hashtags.text", "place.country"},
		Extract: func(d doc.Value) []string {
			c, ok := scalar(d, "place.country")
			if !ok || !strings.EqualFold(c, country) {
				return nil
			}
			return HashtagTexts(d)
		},
	}
}
