package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/changeboard-api/internal/models"
)

func recencyFixture() (*VisibilityFilter, models.ReportWindows) {
	calc := NewWindowCalculator(WindowConfig{EventDaysBack: 45, PrepDaysPast: 30, PrepDaysFuture: 60, Location: time.UTC})
	filter := NewVisibilityFilter(PolicyRecency, calc)
	return filter, calc.Compute(time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC))
}

func TestNoiseReason(t *testing.T) {
	cases := map[string]DropReason{
		"Labor: 2 hrs":             DropNoiseLabor,
		"labor - load in":          DropNoiseLabor,
		"Labor speaker stand":      DropNoiseLabor,
		"Added extra labor":        DropNoiseLabor,
		"Price - adjusted":         DropNoisePrice,
		"PRICE: 40.00":             DropNoisePrice,
		"Updated price":            DropNoisePrice,
		"Added: 12ft truss":        DropNone,
		"Prices attached to quote": DropNone,
		"Laborious setup":          DropNone,
		"":                         DropNone,
	}
	for note, want := range cases {
		assert.Equal(t, want, NoiseReason(note), note)
	}
}

func TestVisibilityQueryPolicyOnlyDropsNoise(t *testing.T) {
	calc := NewWindowCalculator(WindowConfig{Location: time.UTC})
	filter := NewVisibilityFilter(PolicyQuery, calc)
	w := calc.Compute(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))

	ok, reason := filter.Visible(models.RawChangeRecord{Note: "Labor: replace cable"}, w)
	assert.False(t, ok)
	assert.Equal(t, DropNoiseLabor, reason)

	ok, reason = filter.Visible(models.RawChangeRecord{Note: "Added: mixer"}, w)
	assert.True(t, ok)
	assert.Equal(t, DropNone, reason)
}

func TestVisibilityRecencyAcceptsCurrentJob(t *testing.T) {
	filter, w := recencyFixture()

	ok, reason := filter.Visible(models.RawChangeRecord{
		Note:       "Added: mixer",
		BeginDate1: "2024-06-12T08:00:00",
		ReturnDate: "2024-06-20T17:00:00",
		EventDate:  "2024-06-09T11:15:00",
	}, w)
	assert.True(t, ok)
	assert.Equal(t, DropNone, reason)
}

func TestVisibilityRecencyBoundaries(t *testing.T) {
	filter, w := recencyFixture()

	// Prep on the 13th puts the lead-in start exactly at today.
	ok, _ := filter.Visible(models.RawChangeRecord{
		BeginDate1: "2024-06-13T15:00:00",
		ReturnDate: "2024-06-14T00:00:00",
		EventDate:  "2024-06-10T00:00:00",
	}, w)
	assert.True(t, ok)

	// Returning today at midnight still covers today.
	ok, _ = filter.Visible(models.RawChangeRecord{
		BeginDate1: "2024-06-01T00:00:00",
		ReturnDate: "2024-06-10T00:00:00",
		EventDate:  "2024-05-29T00:00:00",
	}, w)
	assert.True(t, ok)
}

func TestVisibilityRecencyRejectsOutOfWindow(t *testing.T) {
	filter, w := recencyFixture()

	cases := map[string]models.RawChangeRecord{
		"prep too far out": {
			BeginDate1: "2024-06-14T00:00:00",
			ReturnDate: "2024-06-20T00:00:00",
			EventDate:  "2024-06-10T00:00:00",
		},
		"already returned": {
			BeginDate1: "2024-06-01T00:00:00",
			ReturnDate: "2024-06-09T23:59:59",
			EventDate:  "2024-06-05T00:00:00",
		},
		"change before lead-in": {
			BeginDate1: "2024-06-12T00:00:00",
			ReturnDate: "2024-06-20T00:00:00",
			EventDate:  "2024-06-08T23:59:59",
		},
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			ok, reason := filter.Visible(rec, w)
			assert.False(t, ok)
			assert.Equal(t, DropOutOfWindow, reason)
		})
	}
}

func TestVisibilityRecencyDropsMalformedRows(t *testing.T) {
	filter, w := recencyFixture()

	cases := []models.RawChangeRecord{
		{ReturnDate: "2024-06-20T00:00:00", EventDate: "2024-06-10T00:00:00"},
		{BeginDate1: "2024-06-12T00:00:00", EventDate: "2024-06-10T00:00:00"},
		{BeginDate1: "2024-06-12T00:00:00", ReturnDate: "2024-06-20T00:00:00"},
		{BeginDate1: "soon", ReturnDate: "2024-06-20T00:00:00", EventDate: "2024-06-10T00:00:00"},
	}
	for _, rec := range cases {
		ok, reason := filter.Visible(rec, w)
		assert.False(t, ok)
		assert.Equal(t, DropMalformed, reason)
	}
}

func TestParseTimestamp(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	ts, ok := ParseTimestamp("2024-06-10T14:22:00Z", denver)
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2024, 6, 10, 14, 22, 0, 0, time.UTC)))

	ts, ok = ParseTimestamp("2024-06-10T14:22:00.123", denver)
	require.True(t, ok)
	assert.Equal(t, denver, ts.Location())
	assert.Equal(t, 14, ts.Hour())

	ts, ok = ParseTimestamp("2024-06-10", denver)
	require.True(t, ok)
	assert.Equal(t, 10, ts.Day())

	_, ok = ParseTimestamp("", denver)
	assert.False(t, ok)
	_, ok = ParseTimestamp("next tuesday", denver)
	assert.False(t, ok)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyQuery, p)

	p, err = ParsePolicy(" Recency ")
	require.NoError(t, err)
	assert.Equal(t, PolicyRecency, p)

	_, err = ParsePolicy("strict")
	assert.Error(t, err)
}
