package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode. Write transactions take the write lock at BEGIN (_txlock=immediate)
// so the outcome-insert + metric-recompute pair is serialized against
// concurrent runs sharing the store.
func NewSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if !strings.Contains(dsn, "?") {
		dsn += "?_txlock=immediate"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS decisions (
	decision_id      TEXT PRIMARY KEY,
	timestamp        DATETIME NOT NULL,
	opportunity_type TEXT NOT NULL,
	source           TEXT NOT NULL,
	content          TEXT,
	score            INTEGER NOT NULL DEFAULT 0,
	sender           TEXT,
	action_taken     TEXT NOT NULL,
	decision_maker   TEXT NOT NULL DEFAULT 'system',
	context          TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS outcomes (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	decision_id           TEXT NOT NULL REFERENCES decisions(decision_id),
	outcome_type          TEXT NOT NULL,
	status                TEXT NOT NULL,
	revenue_generated     REAL NOT NULL DEFAULT 0,
	customer_acquired     INTEGER NOT NULL DEFAULT 0,
	deal_closed           INTEGER NOT NULL DEFAULT 0,
	response_received     INTEGER NOT NULL DEFAULT 0,
	time_to_outcome_hours REAL,
	notes                 TEXT,
	recorded_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS conversion_metrics (
	source                       TEXT NOT NULL,
	opportunity_type             TEXT NOT NULL,
	total_decisions              INTEGER NOT NULL DEFAULT 0,
	total_responses              INTEGER NOT NULL DEFAULT 0,
	total_customers              INTEGER NOT NULL DEFAULT 0,
	total_deals_closed           INTEGER NOT NULL DEFAULT 0,
	total_revenue                REAL NOT NULL DEFAULT 0,
	avg_time_to_conversion_hours REAL,
	conversion_rate              REAL NOT NULL DEFAULT 0,
	last_updated                 DATETIME NOT NULL,
	PRIMARY KEY (source, opportunity_type)
);

CREATE TABLE IF NOT EXISTS insights (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	insight_type TEXT NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL,
	confidence   REAL,
	data_points  INTEGER,
	generated_at DATETIME NOT NULL,
	is_active    INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp);
CREATE INDEX IF NOT EXISTS idx_decisions_pair ON decisions(opportunity_type, source);
CREATE INDEX IF NOT EXISTS idx_outcomes_decision ON outcomes(decision_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertDecision(ctx context.Context, d *model.Decision) error {
	contextJSON, err := marshalContext(d.Context)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO decisions (
			decision_id, timestamp, opportunity_type, source, content,
			score, sender, action_taken, decision_maker, context, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.DecisionID, d.Timestamp, string(d.OpportunityType), string(d.Source), d.Content,
		d.Score, d.Sender, d.ActionTaken, d.DecisionMaker, contextJSON, d.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert decision %s", d.DecisionID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrDuplicateDecision, "id %s", d.DecisionID)
	}
	return nil
}

func (s *SQLiteStore) GetDecision(ctx context.Context, decisionID string) (*model.Decision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT decision_id, timestamp, opportunity_type, source, content,
		        score, sender, action_taken, decision_maker, context, created_at
		 FROM decisions WHERE decision_id = ?`,
		decisionID,
	)
	return scanDecision(row, decisionID)
}

func (s *SQLiteStore) CountDecisions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decisions`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count decisions")
}

// RecordOutcome inserts the outcome and recomputes the conversion metric
// row for the decision's (source, type) pair inside one immediate
// transaction. The recompute is a from-scratch aggregate over the ledger,
// never an incremental counter update.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, o *model.Outcome) (*model.Outcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	var decidedAt time.Time
	var typ, source string
	err = tx.QueryRowContext(ctx,
		`SELECT timestamp, opportunity_type, source FROM decisions WHERE decision_id = ?`,
		o.DecisionID,
	).Scan(&decidedAt, &typ, &source)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrDecisionNotFound, "id %s", o.DecisionID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: lookup decision %s", o.DecisionID)
	}

	recorded := *o
	if recorded.RecordedAt.IsZero() {
		recorded.RecordedAt = time.Now().UTC()
	}
	recorded.TimeToOutcomeHours = recorded.RecordedAt.Sub(decidedAt).Hours()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outcomes (
			decision_id, outcome_type, status, revenue_generated,
			customer_acquired, deal_closed, response_received,
			time_to_outcome_hours, notes, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		recorded.DecisionID, recorded.OutcomeType, recorded.Status, recorded.RevenueGenerated,
		recorded.CustomerAcquired, recorded.DealClosed, recorded.ResponseReceived,
		recorded.TimeToOutcomeHours, recorded.Notes, recorded.RecordedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert outcome for %s", recorded.DecisionID)
	}

	if err := s.recomputeMetrics(ctx, tx, typ, source); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit outcome")
	}
	return &recorded, nil
}

// recomputeMetrics rescans all decisions LEFT JOINed with outcomes for
// one (source, type) key and upserts the metric row. Running inside the
// caller's transaction keeps the aggregate exact under concurrent runs.
func (s *SQLiteStore) recomputeMetrics(ctx context.Context, tx *sql.Tx, typ, source string) error {
	var (
		decisions, responses, customers, deals int
		revenue                                float64
		avgTime                                sql.NullFloat64
	)
	err := tx.QueryRowContext(ctx,
		`SELECT
			COUNT(DISTINCT d.decision_id),
			COALESCE(SUM(CASE WHEN o.response_received = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN o.customer_acquired = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN o.deal_closed = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(o.revenue_generated), 0),
			AVG(CASE WHEN o.deal_closed = 1 THEN o.time_to_outcome_hours END)
		 FROM decisions d
		 LEFT JOIN outcomes o ON d.decision_id = o.decision_id
		 WHERE d.opportunity_type = ? AND d.source = ?`,
		typ, source,
	).Scan(&decisions, &responses, &customers, &deals, &revenue, &avgTime)
	if err != nil {
		return eris.Wrapf(err, "sqlite: aggregate %s/%s", source, typ)
	}

	var rate float64
	if decisions > 0 {
		rate = float64(customers) / float64(decisions) * 100
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversion_metrics (
			source, opportunity_type, total_decisions, total_responses,
			total_customers, total_deals_closed, total_revenue,
			avg_time_to_conversion_hours, conversion_rate, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, opportunity_type) DO UPDATE SET
			total_decisions = excluded.total_decisions,
			total_responses = excluded.total_responses,
			total_customers = excluded.total_customers,
			total_deals_closed = excluded.total_deals_closed,
			total_revenue = excluded.total_revenue,
			avg_time_to_conversion_hours = excluded.avg_time_to_conversion_hours,
			conversion_rate = excluded.conversion_rate,
			last_updated = excluded.last_updated`,
		source, typ, decisions, responses, customers, deals, revenue,
		avgTime, rate, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert metrics %s/%s", source, typ)
}

func (s *SQLiteStore) ListHistory(ctx context.Context, typ model.OpportunityType, source model.Source, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.decision_id, d.timestamp, d.content, d.score,
		        o.customer_acquired, o.revenue_generated,
		        COALESCE(o.time_to_outcome_hours, 0)
		 FROM decisions d
		 JOIN outcomes o ON d.decision_id = o.decision_id
		 WHERE d.opportunity_type = ? AND d.source = ?
		 ORDER BY d.timestamp DESC, o.recorded_at DESC
		 LIMIT ?`,
		string(typ), string(source), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list history")
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		if err := rows.Scan(&e.DecisionID, &e.Timestamp, &e.Content, &e.Score,
			&e.CustomerAcquired, &e.RevenueGenerated, &e.TimeToOutcomeHours); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan history")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list history iterate")
}

func (s *SQLiteStore) ListConversionMetrics(ctx context.Context) ([]model.ConversionMetric, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, opportunity_type, total_decisions, total_responses,
		        total_customers, total_deals_closed, total_revenue,
		        avg_time_to_conversion_hours, conversion_rate, last_updated
		 FROM conversion_metrics
		 ORDER BY conversion_rate DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list conversion metrics")
	}
	defer rows.Close()

	var metrics []model.ConversionMetric
	for rows.Next() {
		var m model.ConversionMetric
		var avgTime sql.NullFloat64
		if err := rows.Scan(&m.Source, &m.OpportunityType, &m.TotalDecisions,
			&m.TotalResponses, &m.TotalCustomers, &m.TotalDealsClosed,
			&m.TotalRevenue, &avgTime, &m.ConversionRate, &m.LastUpdated); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan conversion metric")
		}
		m.AvgTimeToConversionHours = avgTime.Float64
		metrics = append(metrics, m)
	}
	return metrics, eris.Wrap(rows.Err(), "sqlite: list conversion metrics iterate")
}

func (s *SQLiteStore) ROIByType(ctx context.Context) ([]model.ROIRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.opportunity_type, d.source,
		        COUNT(DISTINCT d.decision_id) AS decisions_made,
		        COALESCE(SUM(o.revenue_generated), 0) AS total_revenue,
		        COALESCE(SUM(o.revenue_generated), 0) * 1.0 / COUNT(DISTINCT d.decision_id),
		        COALESCE(SUM(CASE WHEN o.deal_closed = 1 THEN 1 ELSE 0 END), 0),
		        COALESCE(AVG(o.time_to_outcome_hours), 0)
		 FROM decisions d
		 LEFT JOIN outcomes o ON d.decision_id = o.decision_id
		 GROUP BY d.opportunity_type, d.source
		 HAVING COALESCE(SUM(o.revenue_generated), 0) > 0
		 ORDER BY total_revenue DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: roi by type")
	}
	defer rows.Close()

	var out []model.ROIRow
	for rows.Next() {
		var r model.ROIRow
		if err := rows.Scan(&r.OpportunityType, &r.Source, &r.DecisionsMade,
			&r.TotalRevenue, &r.AvgRevenuePerDecision, &r.ClosedDeals, &r.AvgTimeHours); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan roi row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: roi iterate")
}

func (s *SQLiteStore) SummaryCounts(ctx context.Context, date string) (*SummaryCounts, error) {
	var (
		sc             SummaryCounts
		types, sources sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        GROUP_CONCAT(DISTINCT opportunity_type),
		        GROUP_CONCAT(DISTINCT source)
		 FROM decisions WHERE DATE(timestamp) = ?`,
		date,
	).Scan(&sc.Decisions.Count, &types, &sources)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: summarize decisions %s", date)
	}
	sc.Decisions.Types = splitConcat(types)
	sc.Decisions.Sources = splitConcat(sources)

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(revenue_generated), 0),
		        COALESCE(SUM(CASE WHEN customer_acquired = 1 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN deal_closed = 1 THEN 1 ELSE 0 END), 0)
		 FROM outcomes WHERE DATE(recorded_at) = ?`,
		date,
	).Scan(&sc.Outcomes.Total, &sc.Outcomes.Revenue, &sc.Outcomes.Customers, &sc.Outcomes.DealsClosed)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: summarize outcomes %s", date)
	}
	return &sc, nil
}

func (s *SQLiteStore) SaveInsights(ctx context.Context, insights []model.Insight) error {
	if len(insights) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, ins := range insights {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO insights (insight_type, title, description, confidence, data_points, generated_at, is_active)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(ins.Type), ins.Title, ins.Description, ins.Confidence, ins.DataPoints, ins.GeneratedAt, ins.IsActive,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert insight %q", ins.Title)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit insights")
}

func (s *SQLiteStore) ListInsights(ctx context.Context, limit int) ([]model.Insight, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT insight_type, title, description, confidence, data_points, generated_at, is_active
		 FROM insights ORDER BY generated_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list insights")
	}
	defer rows.Close()

	var out []model.Insight
	for rows.Next() {
		var ins model.Insight
		if err := rows.Scan(&ins.Type, &ins.Title, &ins.Description,
			&ins.Confidence, &ins.DataPoints, &ins.GeneratedAt, &ins.IsActive); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan insight")
		}
		out = append(out, ins)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list insights iterate")
}

// helpers

func marshalContext(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, eris.Wrap(err, "marshal decision context")
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDecision(row scannable, decisionID string) (*model.Decision, error) {
	var d model.Decision
	var contextJSON sql.NullString

	err := row.Scan(&d.DecisionID, &d.Timestamp, &d.OpportunityType, &d.Source,
		&d.Content, &d.Score, &d.Sender, &d.ActionTaken, &d.DecisionMaker,
		&contextJSON, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrDecisionNotFound, "id %s", decisionID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan decision")
	}
	if contextJSON.Valid {
		if err := json.Unmarshal([]byte(contextJSON.String), &d.Context); err != nil {
			return nil, eris.Wrap(err, "unmarshal decision context")
		}
	}
	return &d, nil
}

func splitConcat(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	return strings.Split(s.String, ",")
}
