// Package ingest runs the batch triage pipeline: read collector output
// files, validate and dedupe records, score them, and write a ranked
// report.
package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/normalize"
	"github.com/sells-group/dealflow-cli/internal/scorer"
)

// maxFileConcurrency caps how many collector files are parsed at once.
const maxFileConcurrency = 4

// Skipped counts records and files dropped during a run, by reason.
type Skipped struct {
	Duplicates int `json:"duplicates"`
	Malformed  int `json:"malformed"`
	BadFiles   int `json:"bad_files"`
}

// Summary is the priority breakdown of one pipeline run.
type Summary struct {
	Total        int `json:"total_opportunities"`
	HighPriority int `json:"high_priority"`
	Medium       int `json:"medium_priority"`
	Low          int `json:"low_priority"`
}

// Report is the ranked output of one pipeline run.
type Report struct {
	GeneratedAt   time.Time                     `json:"generated_at"`
	Summary       Summary                       `json:"summary"`
	ByType        map[model.OpportunityType]int `json:"by_type"`
	BySource      map[model.Source]int          `json:"by_source"`
	Skipped       Skipped                       `json:"skipped"`
	Opportunities []model.Opportunity           `json:"opportunities"`
}

// Pipeline wires the normalizer, batch deduper, and scoring engine.
type Pipeline struct {
	engine *scorer.Engine
}

// NewPipeline creates a Pipeline scoring with engine. A nil engine uses
// the default rules.
func NewPipeline(engine *scorer.Engine) *Pipeline {
	if engine == nil {
		engine = scorer.NewEngine(nil)
	}
	return &Pipeline{engine: engine}
}

// Run processes every *.json collector file under dir and returns the
// ranked report. Malformed records and in-batch duplicates are counted
// and skipped, as are unreadable files; one bad collector never loses
// the rest of the batch.
func (p *Pipeline) Run(ctx context.Context, dir string) (*Report, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: glob %s", dir)
	}

	deduper := normalize.NewDeduper()

	var (
		mu        sync.Mutex
		opps      []model.Opportunity
		malformed int
		badFiles  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFileConcurrency)

	for _, path := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			records, err := readRecords(path)
			if err != nil {
				zap.L().Warn("ingest: skipping unreadable file",
					zap.String("file", filepath.Base(path)),
					zap.Error(err))
				mu.Lock()
				badFiles++
				mu.Unlock()
				return nil
			}

			var scored []model.Opportunity
			var bad int
			for i := range records {
				rec := &records[i]
				if err := normalize.Record(rec); err != nil {
					zap.L().Warn("ingest: skipping malformed record",
						zap.String("file", filepath.Base(path)),
						zap.Error(err))
					bad++
					continue
				}
				if deduper.SeenAndRecord(normalize.Fingerprint(rec.Content)) {
					continue
				}
				scored = append(scored, p.engine.Score(*rec))
			}

			mu.Lock()
			opps = append(opps, scored...)
			malformed += bad
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "ingest: process files")
	}

	// Rank by score, then recency for ties.
	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].Score != opps[j].Score {
			return opps[i].Score > opps[j].Score
		}
		return opps[i].Timestamp.After(opps[j].Timestamp)
	})

	report := &Report{
		GeneratedAt:   time.Now().UTC(),
		ByType:        make(map[model.OpportunityType]int),
		BySource:      make(map[model.Source]int),
		Skipped:       Skipped{Duplicates: deduper.Duplicates(), Malformed: malformed, BadFiles: badFiles},
		Opportunities: opps,
	}
	for _, o := range opps {
		report.ByType[o.Type]++
		report.BySource[o.Source]++
		switch {
		case o.Score >= 80:
			report.Summary.HighPriority++
		case o.Score >= 50:
			report.Summary.Medium++
		default:
			report.Summary.Low++
		}
	}
	report.Summary.Total = len(opps)

	zap.L().Info("ingest: run complete",
		zap.Int("files", len(paths)),
		zap.Int("opportunities", len(opps)),
		zap.Int("duplicates", report.Skipped.Duplicates),
		zap.Int("malformed", malformed),
		zap.Int("bad_files", badFiles),
	)
	return report, nil
}

// WriteReport writes the report as indented JSON to path.
func WriteReport(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "ingest: marshal report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "ingest: write %s", path)
	}
	return nil
}

// readRecords parses one collector file. Files hold either a JSON array
// of records or an object with an "opportunities" array.
func readRecords(path string) ([]model.OpportunityRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}

	var records []model.OpportunityRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var wrapped struct {
		Opportunities []model.OpportunityRecord `json:"opportunities"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, eris.Wrapf(err, "ingest: parse %s", path)
	}
	return wrapped.Opportunities, nil
}
