package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureFeed = `
<root>
    <updated>
        <datetime>2023-10-01T12:00:00+00:00</datetime>
    </updated>
    <lower_threshold status_id="1">10</lower_threshold>
    <activity status_id="1">
        <datetime>2023-10-01T12:00:00+00:00</datetime>
        <value>15.5</value>
    </activity>
</root>`

const liveShapedFeed = `<?xml version="1.0" encoding="UTF-8"?>
<sum_activity api_version="0.2.5">
  <updated><datetime>2024-12-11T21:46:06+0000</datetime></updated>
  <lower_threshold status_id="green">0</lower_threshold>
  <lower_threshold status_id="yellow">50</lower_threshold>
  <lower_threshold status_id="amber">100</lower_threshold>
  <lower_threshold status_id="red">200</lower_threshold>
  <activity status_id="green"><datetime>2024-12-10T22:00:00+0000</datetime><value>7.90</value></activity>
  <activity status_id="yellow"><datetime>2024-12-10T23:00:00+0000</datetime><value>61.2</value></activity>
  <activity status_id="green"><datetime>2024-12-11T00:00:00+0100</datetime><value>12</value></activity>
</sum_activity>`

func TestParseFeed_Fixture(t *testing.T) {
	snap, err := ParseFeed([]byte(fixtureFeed))
	require.NoError(t, err)

	assert.Equal(t, int64(1696161600), snap.UpdatedAt.Unix())
	assert.Equal(t, []ThresholdDefinition{{StatusID: "1", Value: 10}}, snap.Thresholds)
	require.Len(t, snap.Activities, 1)
	assert.Equal(t, "1", snap.Activities[0].StatusID)
	assert.Equal(t, int64(1696161600), snap.Activities[0].Timestamp.Unix())
	assert.Equal(t, "15.5", snap.Activities[0].Value.String())
}

func TestParseFeed_LiveShape(t *testing.T) {
	snap, err := ParseFeed([]byte(liveShapedFeed))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 12, 11, 21, 46, 6, 0, time.UTC), snap.UpdatedAt.UTC())
	require.Len(t, snap.Thresholds, 4)
	assert.Equal(t, "red", snap.Thresholds[3].StatusID)
	assert.Equal(t, 200, snap.Thresholds[3].Value)

	require.Len(t, snap.Activities, 3)
	assert.Equal(t, []string{"green", "yellow", "green"}, []string{
		snap.Activities[0].StatusID, snap.Activities[1].StatusID, snap.Activities[2].StatusID,
	})
	assert.True(t, snap.Activities[0].Value.Equal(mustDecimal(t, "7.9")))
	// +0100 offset: midnight local is 23:00 UTC the previous day.
	assert.Equal(t, time.Date(2024, 12, 10, 23, 0, 0, 0, time.UTC), snap.Activities[2].Timestamp.UTC())
}

func TestParseFeed_EmptyCollections(t *testing.T) {
	snap, err := ParseFeed([]byte(`<r><updated><datetime>2024-01-01T00:00:00Z</datetime></updated></r>`))
	require.NoError(t, err)
	assert.Empty(t, snap.Thresholds)
	assert.Empty(t, snap.Activities)
}

func TestParseFeed_Malformed(t *testing.T) {
	tests := []struct {
		name string
		feed string
	}{
		{"not xml", `this is not xml`},
		{"missing updated", `<r><activity status_id="green"><datetime>2024-01-01T00:00:00+00:00</datetime><value>1</value></activity></r>`},
		{"two updated nodes", `<r><updated><datetime>2024-01-01T00:00:00+00:00</datetime></updated><updated><datetime>2024-01-01T00:00:00+00:00</datetime></updated></r>`},
		{"updated without datetime", `<r><updated></updated></r>`},
		{"updated without offset", `<r><updated><datetime>2024-01-01T00:00:00</datetime></updated></r>`},
		{"non-integer threshold", `<r><updated><datetime>2024-01-01T00:00:00+00:00</datetime></updated><lower_threshold status_id="amber">1.5</lower_threshold></r>`},
		{"threshold without status", `<r><updated><datetime>2024-01-01T00:00:00+00:00</datetime></updated><lower_threshold>50</lower_threshold></r>`},
		{"activity bad timestamp", `<r><updated><datetime>2024-01-01T00:00:00+00:00</datetime></updated><activity status_id="green"><datetime>yesterday</datetime><value>1</value></activity></r>`},
		{"activity missing value", `<r><updated><datetime>2024-01-01T00:00:00+00:00</datetime></updated><activity status_id="green"><datetime>2024-01-01T00:00:00+00:00</datetime></activity></r>`},
		{"activity non-numeric value", `<r><updated><datetime>2024-01-01T00:00:00+00:00</datetime></updated><activity status_id="green"><datetime>2024-01-01T00:00:00+00:00</datetime><value>lots</value></activity></r>`},
		{"activity without status", `<r><updated><datetime>2024-01-01T00:00:00+00:00</datetime></updated><activity><datetime>2024-01-01T00:00:00+00:00</datetime><value>1</value></activity></r>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFeed([]byte(tt.feed))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedFeed), "expected ErrMalformedFeed, got %v", err)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC)
	for _, s := range []string{
		"2023-10-01T12:00:00+00:00",
		"2023-10-01T12:00:00+0000",
		"2023-10-01T12:00:00Z",
		"2023-10-01T13:00:00+01:00",
		" 2023-10-01T07:00:00-0500 ",
	} {
		ts, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(ts), "%s parsed as %s", s, ts)
	}

	_, err := ParseTimestamp("2023-10-01 12:00:00")
	assert.Error(t, err)
}
