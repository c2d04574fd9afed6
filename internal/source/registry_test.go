package source

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
)

func testConfig(id string) Config {
	return Config{
		ID:           id,
		URL:          "https://example.com/" + id,
		ItemSelector: "tr",
		LinkSelector: "a",
		DateSelector: ".date",
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry([]Config{
		testConfig("opinions.united_states.federal.ca9_u"),
		testConfig("opinions.united_states.federal.ca1"),
		testConfig("opinions.united_states.state.cal"),
		testConfig("opinions.united_states.state.tex"),
		testConfig("oral_args.united_states.federal.ca1"),
	})
	require.NoError(t, err)
	return r
}

func TestKey(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"opinions.united_states.federal.ca9_u": "ca9",
		"opinions.united_states.federal.ca1":   "ca1",
		"ca2_p":                                "ca2",
		"plain":                                "plain",
	}
	for id, want := range cases {
		require.Equal(t, want, Key(id), id)
	}
}

func TestNewRegistryRejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry([]Config{{ID: "a"}})
	require.ErrorContains(t, err, "url is required")

	_, err = NewRegistry([]Config{testConfig("a"), testConfig("a")})
	require.ErrorContains(t, err, "duplicate id")

	_, err = NewRegistry([]Config{testConfig("a.*")})
	require.ErrorContains(t, err, "glob")
}

func TestSelect(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)

	tests := []struct {
		name      string
		selectors []string
		want      []string
	}{
		{
			name:      "full id",
			selectors: []string{"opinions.united_states.federal.ca1"},
			want:      []string{"opinions.united_states.federal.ca1"},
		},
		{
			name:      "package prefix",
			selectors: []string{"opinions.united_states.federal"},
			want: []string{
				"opinions.united_states.federal.ca1",
				"opinions.united_states.federal.ca9_u",
			},
		},
		{
			name:      "top-level group",
			selectors: []string{"oral_args"},
			want:      []string{"oral_args.united_states.federal.ca1"},
		},
		{
			name:      "glob",
			selectors: []string{"opinions.*.state.*"},
			want: []string{
				"opinions.united_states.state.cal",
				"opinions.united_states.state.tex",
			},
		},
		{
			name:      "glob matching a prefix",
			selectors: []string{"*.united_states.federal"},
			want: []string{
				"opinions.united_states.federal.ca1",
				"opinions.united_states.federal.ca9_u",
				"oral_args.united_states.federal.ca1",
			},
		},
		{
			name: "overlap is deduplicated in first-match order",
			selectors: []string{
				"opinions.united_states.state.tex",
				"opinions.united_states.state",
			},
			want: []string{
				"opinions.united_states.state.tex",
				"opinions.united_states.state.cal",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Select(tt.selectors)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSelectPrefixRespectsSegmentBoundary(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)

	_, err := r.Select([]string{"opinions.united_states.federal.ca"})
	require.ErrorIs(t, err, crawler.ErrSetup)
	require.ErrorIs(t, err, crawler.ErrUnknownSource)
}

func TestSelectErrors(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)

	_, err := r.Select(nil)
	require.ErrorIs(t, err, crawler.ErrSetup)

	_, err = r.Select([]string{"opinions[", ""})
	require.ErrorIs(t, err, crawler.ErrSetup)
}

func TestNonMonotonic(t *testing.T) {
	t.Parallel()
	cfg := testConfig("opinions.united_states.federal.ca9_u")
	cfg.NonMonotonic = true
	r, err := NewRegistry([]Config{cfg, testConfig("b")})
	require.NoError(t, err)

	require.True(t, r.NonMonotonic("opinions.united_states.federal.ca9_u"))
	require.False(t, r.NonMonotonic("b"))
	require.False(t, r.NonMonotonic("missing"))
	require.Equal(t, []string{"b", "opinions.united_states.federal.ca9_u"}, r.IDs())
}
