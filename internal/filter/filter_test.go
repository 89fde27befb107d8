package filter

import (
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsEmpty(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = New([]string{})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNew_RejectsBlankTerm(t *testing.T) {
	for _, bad := range []string{"", "   ", "#", " # "} {
		_, err := New([]string{"#ok", bad})
		assert.ErrorIs(t, err, ErrConfiguration, "term %q", bad)
	}
}

func TestMatches_CaseAndMarkerInsensitive(t *testing.T) {
	s, err := New([]string{"Foo", "#TuesdayMotivation"})
	require.NoError(t, err)

	assert.True(t, s.Matches("#Foo"))
	assert.True(t, s.Matches("foo"))
	assert.True(t, s.Matches("FOO"))
	assert.True(t, s.Matches("tuesdaymotivation"))
	assert.True(t, s.Matches("#TUESDAYMOTIVATION"))
	assert.False(t, s.Matches("bar"))
	assert.False(t, s.Matches("##foo"))
	assert.False(t, s.Matches(""))
}

func TestTermsAndTrack(t *testing.T) {
	s, err := New([]string{"#FelizMartes", "paro", "#felizmartes", " #Marvel "})
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"felizmartes", "paro", "marvel"}, s.Terms())
	assert.Equal(t, []string{"#felizmartes", "#paro", "#marvel"}, s.Track())
	assert.Equal(t, "#felizmartes,#paro,#marvel", s.String())

	// Returned slices are copies.
	terms := s.Terms()
	terms[0] = "changed"
	assert.Equal(t, "felizmartes", s.Terms()[0])
}

func TestMatchesAny(t *testing.T) {
	s, err := New([]string{"#amazon"})
	require.NoError(t, err)

	assert.True(t, s.MatchesAny([]string{"x", "Amazon"}))
	assert.False(t, s.MatchesAny([]string{"x", "y"}))
	assert.False(t, s.MatchesAny(nil))
}

func TestMatches_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	nonEmpty := gen.AlphaString().SuchThat(func(s string) bool { return s != "" })

	properties.Property("any casing with or without marker matches the configured term", prop.ForAll(
		func(term string, upper bool, marker bool) bool {
			s, err := New([]string{term})
			if err != nil {
				return false
			}
			candidate := term
			if upper {
				candidate = strings.ToUpper(candidate)
			} else {
				candidate = strings.ToLower(candidate)
			}
			if marker {
				candidate = "#" + candidate
			}
			return s.Matches(candidate)
		},
		nonEmpty,
		gen.Bool(),
		gen.Bool(),
	))

	properties.Property("configuring with the marker is equivalent to without", prop.ForAll(
		func(term string, probe string) bool {
			a, err1 := New([]string{term})
			b, err2 := New([]string{"#" + term})
			if err1 != nil || err2 != nil {
				return false
			}
			return a.Matches(probe) == b.Matches(probe)
		},
		nonEmpty,
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
