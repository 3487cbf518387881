package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/model"
)

func writeRecords(t *testing.T, dir, name string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestRun_ScoresAndRanks(t *testing.T) {
	dir := t.TempDir()
	writeRecords(t, dir, "email.json", []model.OpportunityRecord{
		{
			Source:         model.SourceEmail,
			Content:        "Need help with my golf swing, can you coach me ASAP?",
			VerifiedSender: true,
			Timestamp:      time.Now().UTC(),
		},
		{
			Source:    model.SourceEmail,
			Content:   "just saying hi",
			Timestamp: time.Now().UTC(),
		},
	})

	report, err := NewPipeline(nil).Run(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, report.Opportunities, 2)
	// Highest score first.
	assert.Equal(t, model.TypeGolfCoaching, report.Opportunities[0].Type)
	assert.GreaterOrEqual(t, report.Opportunities[0].Score, report.Opportunities[1].Score)

	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.HighPriority)
	assert.Equal(t, 2, report.BySource[model.SourceEmail])
	assert.Equal(t, 1, report.ByType[model.TypeGolfCoaching])
	assert.Zero(t, report.Skipped.Duplicates)
	assert.Zero(t, report.Skipped.Malformed)
}

func TestRun_DeduplicatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	// The same content in both files, differing only in whitespace and case.
	writeRecords(t, dir, "a.json", []model.OpportunityRecord{
		{Source: model.SourceEmail, Content: "Interested in coaching sessions"},
	})
	writeRecords(t, dir, "b.json", []model.OpportunityRecord{
		{Source: model.SourceTwitter, Content: "  interested   in COACHING sessions "},
	})

	report, err := NewPipeline(nil).Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Len(t, report.Opportunities, 1)
	assert.Equal(t, 1, report.Skipped.Duplicates)
}

func TestRun_SkipsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	writeRecords(t, dir, "mixed.json", []model.OpportunityRecord{
		{Source: model.SourceEmail, Content: "valid record about coaching"},
		{Source: model.SourceEmail}, // missing content
		{Content: "missing source"},
	})

	report, err := NewPipeline(nil).Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Len(t, report.Opportunities, 1)
	assert.Equal(t, 2, report.Skipped.Malformed)
}

func TestRun_AcceptsWrappedFormat(t *testing.T) {
	dir := t.TempDir()
	writeRecords(t, dir, "wrapped.json", map[string]any{
		"opportunities": []model.OpportunityRecord{
			{Source: model.SourceTwitter, Content: "want to collaborate?", FollowerCount: 20000},
		},
	})

	report, err := NewPipeline(nil).Run(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, report.Opportunities, 1)
	assert.Equal(t, model.TypePartnership, report.Opportunities[0].Type)
	assert.Equal(t, 15, report.Opportunities[0].InfluenceScore)
}

func TestRun_SkipsUnparseableFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{nope"), 0o644))
	writeRecords(t, dir, "good.json", []model.OpportunityRecord{
		{Source: model.SourceEmail, Content: "coaching inquiry for next month"},
	})

	report, err := NewPipeline(nil).Run(context.Background(), dir)
	require.NoError(t, err)

	// The readable file's records survive the bad one.
	require.Len(t, report.Opportunities, 1)
	assert.Equal(t, 1, report.Skipped.BadFiles)
	assert.Zero(t, report.Skipped.Malformed)
}

func TestRun_EmptyDir(t *testing.T) {
	report, err := NewPipeline(nil).Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, report.Summary.Total)
	assert.Empty(t, report.Opportunities)
}

func TestWriteReport_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeRecords(t, dir, "email.json", []model.OpportunityRecord{
		{Source: model.SourceEmail, Content: "coaching inquiry"},
	})

	report, err := NewPipeline(nil).Run(context.Background(), dir)
	require.NoError(t, err)

	out := filepath.Join(dir, "opportunities.json")
	require.NoError(t, WriteReport(report, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, report.Summary, got.Summary)
	assert.Len(t, got.Opportunities, 1)
}
