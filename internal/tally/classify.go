package tally

import "github.com/runnerr0/streamtally/internal/doc"

// Label is a post's content type.
type Label string

const (
	Original Label = "original"
	Repost   Label = "repost"
	Quote    Label = "quote"
	Reply    Label = "reply"
)

// Classify assigns exactly one label. Markers are checked in the order
// repost, quote, reply; a post with none of them is original. Only a
// boolean true is_quote_status marks a quote: a missing or null flag is
// not read as a quote, even though a check of "anything but false" would
// count it as one.
func Classify(d doc.Value) Label {
	if d.Present("retweeted_status") {
		return Repost
	}
	if v, ok := d.Get("is_quote_status"); ok {
		if quote, ok := v.Bool(); ok && quote {
			return Quote
		}
	}
	if d.Present("in_reply_to_status_id") {
		return Reply
	}
	return Original
}
