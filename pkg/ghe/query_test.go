package ghe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

type searchOptions struct {
	Query    string     `url:"q"`
	State    string     `url:"state,omitempty"`
	Draft    *bool      `url:"draft,omitempty"`
	PerPage  int        `url:"per_page,omitempty"`
	Labels   []string   `url:"labels,omitempty"`
	Since    *time.Time `url:"since,omitempty"`
	Internal string     `url:"-"`
	Ignored  string
	hidden   string
}

func TestParameterEncoder_Encode(t *testing.T) {
	t.Parallel()

	encoder := ghe.NewParameterEncoder()
	draft := false
	since := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	values := encoder.Encode(&searchOptions{
		Query:    "",
		Draft:    &draft,
		PerPage:  50,
		Labels:   []string{"bug", "ui"},
		Since:    &since,
		Internal: "x",
		Ignored:  "y",
		hidden:   "z",
	})

	assert.Equal(t, "", values.Get("q"))
	assert.True(t, values.Has("q"))
	assert.False(t, values.Has("state"))
	assert.Equal(t, "false", values.Get("draft"))
	assert.Equal(t, "50", values.Get("per_page"))
	assert.Equal(t, "bug,ui", values.Get("labels"))
	assert.Equal(t, "2024-03-01T11:00:00Z", values.Get("since"))
	assert.Len(t, values, 5)
}

func TestParameterEncoder_EmptyInputs(t *testing.T) {
	t.Parallel()

	encoder := ghe.NewParameterEncoder()

	var nilOptions *searchOptions

	assert.Empty(t, encoder.Encode(nil))
	assert.Empty(t, encoder.Encode(nilOptions))
	assert.Empty(t, encoder.Encode("not a struct"))
	assert.Empty(t, encoder.Encode(&ghe.ListOptions{PageRequest: ghe.PageRequest{PageSize: 10}}))
}

func TestParameterEncoder_Merge(t *testing.T) {
	t.Parallel()

	encoder := ghe.NewParameterEncoder()
	pages := &ghe.PageRequest{PageSize: 5, StartPage: 2}

	values := encoder.Merge(pages.Values(), &ghe.ListOptions{Sort: "created", Direction: "desc"})

	assert.Equal(t, "5", values.Get("per_page"))
	assert.Equal(t, "2", values.Get("page"))
	assert.Equal(t, "created", values.Get("sort"))
	assert.Equal(t, "desc", values.Get("direction"))

	assert.Equal(t, "name", encoder.Merge(nil, &ghe.ListOptions{Sort: "name"}).Get("sort"))
}

func TestParameterEncoder_CachesPlans(t *testing.T) {
	t.Parallel()

	encoder := ghe.NewParameterEncoder()

	encoder.Encode(&ghe.ListOptions{})
	encoder.Encode(ghe.ListOptions{Sort: "name"})
	encoder.Encode(&searchOptions{})
	assert.Equal(t, 2, encoder.CachedTypes())

	encoder.Reset()
	assert.Zero(t, encoder.CachedTypes())
}
