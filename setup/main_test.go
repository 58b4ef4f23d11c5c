package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	seed := convert([]exportedVisit{
		{GUID: "g1", URL: "http://www.mozilla.com/", VisitCount: 3},
		{URL: "http://www.mozilla.com/", VisitCount: 2},
		{URL: "  "},
		{URL: "http://example.com/"},
	}, 1)

	require.Len(t, seed.Entries, 2)
	assert.Equal(t, "g1", seed.Entries[0].ID)
	assert.Equal(t, 5.0, seed.Entries[0].Score)
	assert.Equal(t, "http://example.com/", seed.Entries[1].ID)
	assert.Equal(t, 1.0, seed.Entries[1].Score)
}

func TestConvertMinVisits(t *testing.T) {
	seed := convert([]exportedVisit{
		{URL: "http://a.example/", VisitCount: 1},
		{URL: "http://b.example/", VisitCount: 4},
	}, 2)

	require.Len(t, seed.Entries, 1)
	assert.Equal(t, "http://b.example/", seed.Entries[0].URL)
}
