package tally

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/streamtally/internal/doc"
	"github.com/runnerr0/streamtally/internal/filter"
	"github.com/runnerr0/streamtally/internal/storage"
)

func storeWith(t *testing.T, payloads ...string) *storage.MemoryStore {
	t.Helper()
	s := storage.NewMemoryStore()
	for _, p := range payloads {
		d, err := doc.Decode([]byte(p))
		require.NoError(t, err)
		require.NoError(t, s.Insert(context.Background(), storage.NewEvent([]byte(p), d)))
	}
	return s
}

func labels(t *Table) []string {
	out := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		out[i] = e.Label
	}
	return out
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func TestCount_MultiValuedDenominator(t *testing.T) {
	table := Count([][]string{{"A", "B"}, {"A"}, {}}, Options{})

	assert.Equal(t, []Entry{{"A", 2}, {"B", 1}}, table.Entries)
	assert.Equal(t, int64(3), table.Scanned)
	assert.Equal(t, int64(2), table.Contributing)
	assert.Equal(t, int64(2), table.Denominator())
	assert.InDelta(t, 100.0, table.Percent(0), 1e-9)
	assert.InDelta(t, 50.0, table.Percent(1), 1e-9)
}

func TestCount_TiesKeepFirstSeenOrder(t *testing.T) {
	table := Count([][]string{{"x"}, {"y"}, {"y"}, {"x"}, {"z"}, {"w"}}, Options{})
	assert.Equal(t, []string{"x", "y", "z", "w"}, labels(table))

	table = Count([][]string{{"b"}, {"a"}, {"a"}, {"b"}, {"c"}, {"c"}, {"c"}}, Options{})
	assert.Equal(t, []string{"c", "b", "a"}, labels(table))
}

func TestCount_ValueCountedOncePerEvent(t *testing.T) {
	table := Count([][]string{{"A", "A", "a"}, {"", "A"}, {""}}, Options{})

	assert.Equal(t, []Entry{{"A", 2}, {"a", 1}}, table.Entries)
	assert.Equal(t, int64(2), table.Contributing)
}

func TestTopKeepsDenominators(t *testing.T) {
	table := Count([][]string{{"a"}, {"b"}, {"b"}, {"c"}}, Options{TopN: 1})

	require.Len(t, table.Entries, 1)
	assert.Equal(t, "b", table.Entries[0].Label)
	assert.Equal(t, int64(4), table.Contributing)
	assert.InDelta(t, 50.0, table.Percent(0), 1e-9)
}

func TestPercent_OutOfRangeAndEmpty(t *testing.T) {
	empty := Count(nil, Options{})
	assert.Zero(t, empty.Denominator())
	assert.Zero(t, empty.Percent(0))

	table := Count([][]string{{"a"}}, Options{})
	assert.Zero(t, table.Percent(-1))
	assert.Zero(t, table.Percent(5))
}

func TestQuery_DenominatorModes(t *testing.T) {
	var payloads []string
	countries := []string{"Spain", "Spain", "France"}
	for i := 0; i < 10; i++ {
		if i < len(countries) {
			payloads = append(payloads, fmt.Sprintf(`{"id":%d,"place":{"country":%q}}`, i, countries[i]))
		} else if i%2 == 0 {
			payloads = append(payloads, fmt.Sprintf(`{"id":%d,"place":null}`, i))
		} else {
			payloads = append(payloads, fmt.Sprintf(`{"id":%d}`, i))
		}
	}
	store := storeWith(t, payloads...)
	ctx := context.Background()

	contributing, err := Query(ctx, store, Countries(), Options{Mode: ContributingOnly})
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"Spain", 2}, {"France", 1}}, contributing.Entries)
	assert.InDelta(t, 100.0, sum(contributing.Percentages()), 1e-9)

	all, err := Query(ctx, store, Countries(), Options{Mode: AllScanned})
	require.NoError(t, err)
	assert.Equal(t, int64(10), all.Scanned)
	assert.InDelta(t, 30.0, sum(all.Percentages()), 1e-9)

	assert.InDelta(t, 30.0, sum(contributing.WithMode(AllScanned).Percentages()), 1e-9)
}

func TestQuery_Languages(t *testing.T) {
	store := storeWith(t,
		`{"lang":"en"}`, `{"lang":"es"}`, `{"lang":"en"}`, `{"lang":null}`, `{"text":"no lang"}`, `{"lang":7}`,
	)
	table, err := Query(context.Background(), store, Languages(), Options{})
	require.NoError(t, err)

	assert.Equal(t, []Entry{{"en", 2}, {"es", 1}, {"7", 1}}, table.Entries)
	assert.Equal(t, int64(6), table.Scanned)
	assert.Equal(t, int64(4), table.Contributing)
}

func TestQuery_Hashtags(t *testing.T) {
	store := storeWith(t,
		`{"entities":{"hashtags":[{"text":"Ukraine","indices":[0,8]},{"text":"war"}]}}`,
		`{"entities":{"hashtags":[{"text":"Ukraine"}]}}`,
		`{"entities":{"hashtags":[]}}`,
		`{"entities":{"hashtags":"broken"}}`,
		`{"entities":{"hashtags":[{"nope":1},{"text":null}]}}`,
	)
	table, err := Query(context.Background(), store, Hashtags(), Options{})
	require.NoError(t, err)

	assert.Equal(t, []Entry{{"Ukraine", 2}, {"war", 1}}, table.Entries)
	assert.Equal(t, int64(2), table.Contributing)
	assert.Equal(t, int64(5), table.Scanned)
}

func TestQuery_TrackedHashtags(t *testing.T) {
	set, err := filter.New([]string{"#Ukraine", "russia"})
	require.NoError(t, err)

	store := storeWith(t,
		`{"entities":{"hashtags":[{"text":"UKRAINE"},{"text":"cats"}]}}`,
		`{"entities":{"hashtags":[{"text":"Russia"},{"text":"ukraine"}]}}`,
		`{"entities":{"hashtags":[{"text":"cats"}]}}`,
	)
	table, err := Query(context.Background(), store, TrackedHashtags(set), Options{})
	require.NoError(t, err)

	assert.Equal(t, []Entry{{"ukraine", 2}, {"russia", 1}}, table.Entries)
	assert.Equal(t, int64(2), table.Contributing)
}

func TestQuery_Mentions(t *testing.T) {
	store := storeWith(t,
		`{"entities":{"user_mentions":[{"screen_name":"alice"},{"screen_name":"bob"}]}}`,
		`{"entities":{"user_mentions":[{"screen_name":"alice"}]}}`,
		`{"entities":{}}`,
	)
	table, err := Query(context.Background(), store, Mentions(), Options{TopN: 1})
	require.NoError(t, err)

	assert.Equal(t, []Entry{{"alice", 2}}, table.Entries)
	assert.Equal(t, int64(2), table.Contributing)
}

func TestQuery_HashtagsInCountry(t *testing.T) {
	store := storeWith(t,
		`{"place":{"country":"Spain"},"entities":{"hashtags":[{"text":"paz"}]}}`,
		`{"place":{"country":"spain"},"entities":{"hashtags":[{"text":"paz"},{"text":"ukraine"}]}}`,
		`{"place":{"country":"France"},"entities":{"hashtags":[{"text":"paix"}]}}`,
		`{"entities":{"hashtags":[{"text":"paz"}]}}`,
	)
	table, err := Query(context.Background(), store, HashtagsInCountry("Spain"), Options{})
	require.NoError(t, err)

	assert.Equal(t, []Entry{{"paz", 2}, {"ukraine", 1}}, table.Entries)
	assert.Equal(t, "hashtags in Spain", table.Dimension)
}

func TestQuery_ContentTypesEveryEventContributes(t *testing.T) {
	store := storeWith(t,
		`{"id":1}`,
		`{"id":2,"retweeted_status":{"id":1}}`,
		`{"id":3,"is_quote_status":true}`,
		`{"id":4,"in_reply_to_status_id":1}`,
		`{"id":5,"is_quote_status":false,"in_reply_to_status_id":null}`,
	)
	table, err := Query(context.Background(), store, ContentTypes(), Options{})
	require.NoError(t, err)

	assert.Equal(t, int64(5), table.Contributing)
	assert.Equal(t, int64(5), table.Total())
	assert.Equal(t, []Entry{{"original", 2}, {"repost", 1}, {"quote", 1}, {"reply", 1}}, table.Entries)
}

func TestQuery_CancelledContext(t *testing.T) {
	store := storeWith(t, `{"lang":"en"}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Query(ctx, store, Languages(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQuery_IndependentTables(t *testing.T) {
	store := storeWith(t, `{"lang":"en"}`, `{"lang":"fr"}`)
	ctx := context.Background()

	first, err := Query(ctx, store, Languages(), Options{})
	require.NoError(t, err)
	first.Entries[0].Count = 99

	second, err := Query(ctx, store, Languages(), Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.Entries[0].Count)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Label
	}{
		{"plain", `{"text":"hi"}`, Original},
		{"repost", `{"retweeted_status":{"id":1}}`, Repost},
		{"repost wins over quote", `{"retweeted_status":{"id":1},"is_quote_status":true}`, Repost},
		{"repost wins over all", `{"retweeted_status":{},"is_quote_status":true,"in_reply_to_status_id":3}`, Repost},
		{"quote", `{"is_quote_status":true}`, Quote},
		{"quote wins over reply", `{"is_quote_status":true,"in_reply_to_status_id":3}`, Quote},
		{"reply", `{"in_reply_to_status_id":3}`, Reply},
		{"null repost marker", `{"retweeted_status":null}`, Original},
		{"null quote flag", `{"is_quote_status":null}`, Original},
		{"missing quote flag", `{"text":"plain"}`, Original},
		{"string quote flag", `{"is_quote_status":"true"}`, Original},
		{"false quote flag with reply", `{"is_quote_status":false,"in_reply_to_status_id":9}`, Reply},
		{"null reply id", `{"in_reply_to_status_id":null}`, Original},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := doc.Decode([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, Classify(d))
		})
	}
}

func TestGroup(t *testing.T) {
	table := Count([][]string{{"en"}, {"es"}, {"en-gb"}, {"fr"}, {"es"}, {"en-gb"}}, Options{})
	grouped := Group(table, map[string][]string{"English": {"en", "en-gb"}})

	assert.Equal(t, []Entry{{"English", 3}, {"es", 2}, {"fr", 1}}, grouped.Entries)
	assert.Equal(t, table.Contributing, grouped.Contributing)
	// the input is left alone
	assert.Equal(t, "en-gb", table.Entries[1].Label)
}

func TestGroup_OverlapGoesToFirstName(t *testing.T) {
	table := Count([][]string{{"en"}, {"es"}, {"en"}}, Options{})
	groups := map[string][]string{"Zeta": {"en", "es"}, "Alpha": {"en"}}

	for i := 0; i < 20; i++ {
		grouped := Group(table, groups)
		assert.Equal(t, []Entry{{"Alpha", 2}, {"Zeta", 1}}, grouped.Entries)
	}
}

func TestCollapse(t *testing.T) {
	table := Count([][]string{{"a"}, {"a"}, {"a"}, {"b"}, {"b"}, {"c"}, {"d"}}, Options{})

	c := Collapse(table, 2, "Others")
	assert.Equal(t, []Entry{{"a", 3}, {"b", 2}, {"Others", 2}}, c.Entries)
	assert.Equal(t, int64(7), c.Denominator())

	assert.Equal(t, []Entry{{"Others", 7}}, Collapse(table, 0, "Others").Entries)
	assert.Len(t, Collapse(table, 10, "Others").Entries, 4)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("all")
	require.NoError(t, err)
	assert.Equal(t, AllScanned, m)

	m, err = ParseMode("contributing")
	require.NoError(t, err)
	assert.Equal(t, ContributingOnly, m)
	assert.Equal(t, "contributing", m.String())

	_, err = ParseMode("some")
	assert.Error(t, err)
}

func TestCountProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	names := []string{"", "a", "b", "c"}
	toEvents := func(raw [][]int) [][]string {
		events := make([][]string, len(raw))
		for i, r := range raw {
			for _, n := range r {
				events[i] = append(events[i], names[n])
			}
		}
		return events
	}
	events := gen.SliceOf(gen.SliceOf(gen.IntRange(0, len(names)-1)))

	properties.Property("no count exceeds the contributing events", prop.ForAll(
		func(raw [][]int) bool {
			table := Count(toEvents(raw), Options{})
			if table.Contributing > table.Scanned || table.Scanned != int64(len(raw)) {
				return false
			}
			for _, e := range table.Entries {
				if e.Count > table.Contributing {
					return false
				}
			}
			return true
		},
		events,
	))

	properties.Property("entries are sorted by descending count", prop.ForAll(
		func(raw [][]int) bool {
			table := Count(toEvents(raw), Options{})
			for i := 1; i < len(table.Entries); i++ {
				if table.Entries[i].Count > table.Entries[i-1].Count {
					return false
				}
			}
			return true
		},
		events,
	))

	properties.Property("single-valued shares sum to 100 over contributing events", prop.ForAll(
		func(picks []int) bool {
			raw := make([][]int, len(picks))
			for i, p := range picks {
				raw[i] = []int{p}
			}
			table := Count(toEvents(raw), Options{})
			if table.Contributing == 0 {
				return len(table.Entries) == 0
			}
			total := sum(table.Percentages())
			return total > 99.999 && total < 100.001
		},
		gen.SliceOf(gen.IntRange(0, len(names)-1)),
	))

	properties.TestingRun(t)
}
