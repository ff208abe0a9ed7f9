package analytics

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/learning"
	"github.com/poiesic/suggestit/storage"
	"github.com/poiesic/suggestit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T) *badger.Repositories {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	ctx := context.Background()
	_, err = repos.Interactions.AddInteractions(ctx,
		&core.Interaction{UserID: "u1", Query: "plumber", Selected: "Best plumber", Rating: 5, Timestamp: day},
		&core.Interaction{UserID: "u1", Query: "plumber", Timestamp: day.Add(time.Hour)},
		&core.Interaction{UserID: "u2", Query: "plumber", Selected: "Best plumber", Rating: 4, Timestamp: day.Add(2 * time.Hour)},
		&core.Interaction{UserID: "u2", Query: "dentist", Selected: "Top dentist", Rating: 2, Timestamp: day.Add(48 * time.Hour)},
	)
	require.NoError(t, err)

	_, err = repos.Events.AddEvents(ctx,
		&core.Event{UserID: "u1", Type: "click", Timestamp: day},
		&core.Event{UserID: "u1", Type: "click", Timestamp: day.Add(time.Minute)},
		&core.Event{UserID: "u2", Type: "impression", Timestamp: day.Add(48 * time.Hour)},
	)
	require.NoError(t, err)
	return repos
}

func TestNewReporterRequiresRepositories(t *testing.T) {
	repos := seed(t)

	_, err := NewReporter(nil, repos.Events)
	assert.ErrorIs(t, err, ErrInteractionRepositoryRequired)
	_, err = NewReporter(repos.Interactions, nil)
	assert.ErrorIs(t, err, ErrEventRepositoryRequired)
}

func TestReport(t *testing.T) {
	repos := seed(t)
	state := learning.New()
	state.RecordInteraction("plumber", "", "")

	r, err := NewReporter(repos.Interactions, repos.Events, WithLearningState(state))
	require.NoError(t, err)

	report, err := r.Report(context.Background(), Range{})
	require.NoError(t, err)

	assert.Equal(t, Statistics{TotalSearches: 4, UniqueUsers: 2, AverageRating: 3.67}, report.Statistics)
	assert.Equal(t, []QueryCount{{"plumber", 3}, {"dentist", 1}}, report.TopQueries)
	assert.Equal(t, []SuggestionCount{{"Best plumber", 2}, {"Top dentist", 1}}, report.TopSuggestions)
	assert.Equal(t, []EventCount{{"click", 2}, {"impression", 1}}, report.Events)
	assert.Equal(t, map[string]int{"plumber": 1}, report.LearningPatterns)
}

func TestReportRange(t *testing.T) {
	repos := seed(t)
	r, err := NewReporter(repos.Interactions, repos.Events)
	require.NoError(t, err)

	report, err := r.Report(context.Background(), Range{Start: day, End: day.Add(24 * time.Hour)})
	require.NoError(t, err)

	assert.Equal(t, Statistics{TotalSearches: 3, UniqueUsers: 2, AverageRating: 4.5}, report.Statistics)
	assert.Equal(t, []QueryCount{{"plumber", 3}}, report.TopQueries)
	assert.Equal(t, []EventCount{{"click", 2}}, report.Events)
	assert.Empty(t, report.LearningPatterns)
}

func TestReportEmpty(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	r, err := NewReporter(repos.Interactions, repos.Events)
	require.NoError(t, err)

	report, err := r.Report(context.Background(), Range{})
	require.NoError(t, err)
	assert.Zero(t, report.Statistics)
	assert.Empty(t, report.TopQueries)
	assert.Empty(t, report.Events)
}

func TestReportTopLimit(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	var batch []*core.Interaction
	for i := range 15 {
		for range i + 1 {
			batch = append(batch, &core.Interaction{UserID: "u", Query: string(rune('a' + i))})
		}
	}
	_, err = repos.Interactions.AddInteractions(context.Background(), batch...)
	require.NoError(t, err)

	r, err := NewReporter(repos.Interactions, repos.Events)
	require.NoError(t, err)
	report, err := r.Report(context.Background(), Range{})
	require.NoError(t, err)

	require.Len(t, report.TopQueries, TopLimit)
	assert.Equal(t, QueryCount{"o", 15}, report.TopQueries[0])
	assert.Equal(t, QueryCount{"f", 6}, report.TopQueries[TopLimit-1])
}

func TestReportInvalidRange(t *testing.T) {
	repos := seed(t)
	r, err := NewReporter(repos.Interactions, repos.Events)
	require.NoError(t, err)

	_, err = r.Report(context.Background(), Range{Start: day, End: day.Add(-time.Hour)})
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

type failingEvents struct {
	storage.EventRepository
}

func (failingEvents) GetEventsByDateRange(context.Context, time.Time, time.Time) ([]*core.Event, error) {
	return nil, errors.New("disk on fire")
}

func TestReportStoreUnavailable(t *testing.T) {
	repos := seed(t)
	r, err := NewReporter(repos.Interactions, failingEvents{repos.Events})
	require.NoError(t, err)

	_, err = r.Report(context.Background(), Range{})
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, &Report{TopQueries: []QueryCount{
		{"plumber", 3},
		{"roof, gutter", 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, "query,frequency\nplumber,3\n\"roof, gutter\",1\n", buf.String())
}
