package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// PgxPool is the subset of pgxpool.Pool the store uses; pgxmock
// implements it for tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS decisions (
	decision_id      TEXT PRIMARY KEY,
	timestamp        TIMESTAMPTZ NOT NULL,
	opportunity_type TEXT NOT NULL,
	source           TEXT NOT NULL,
	content          TEXT,
	score            INTEGER NOT NULL DEFAULT 0,
	sender           TEXT,
	action_taken     TEXT NOT NULL,
	decision_maker   TEXT NOT NULL DEFAULT 'system',
	context          JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS outcomes (
	id                    BIGSERIAL PRIMARY KEY,
	decision_id           TEXT NOT NULL REFERENCES decisions(decision_id),
	outcome_type          TEXT NOT NULL,
	status                TEXT NOT NULL,
	revenue_generated     DOUBLE PRECISION NOT NULL DEFAULT 0,
	customer_acquired     BOOLEAN NOT NULL DEFAULT FALSE,
	deal_closed           BOOLEAN NOT NULL DEFAULT FALSE,
	response_received     BOOLEAN NOT NULL DEFAULT FALSE,
	time_to_outcome_hours DOUBLE PRECISION,
	notes                 TEXT,
	recorded_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS conversion_metrics (
	source                       TEXT NOT NULL,
	opportunity_type             TEXT NOT NULL,
	total_decisions              INTEGER NOT NULL DEFAULT 0,
	total_responses              INTEGER NOT NULL DEFAULT 0,
	total_customers              INTEGER NOT NULL DEFAULT 0,
	total_deals_closed           INTEGER NOT NULL DEFAULT 0,
	total_revenue                DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_time_to_conversion_hours DOUBLE PRECISION,
	conversion_rate              DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_updated                 TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (source, opportunity_type)
);

CREATE TABLE IF NOT EXISTS insights (
	id           BIGSERIAL PRIMARY KEY,
	insight_type TEXT NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL,
	confidence   DOUBLE PRECISION,
	data_points  INTEGER,
	generated_at TIMESTAMPTZ NOT NULL,
	is_active    BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp);
CREATE INDEX IF NOT EXISTS idx_decisions_pair ON decisions(opportunity_type, source);
CREATE INDEX IF NOT EXISTS idx_outcomes_decision ON outcomes(decision_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) InsertDecision(ctx context.Context, d *model.Decision) error {
	var contextJSON []byte
	if len(d.Context) > 0 {
		var err error
		contextJSON, err = json.Marshal(d.Context)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal decision context")
		}
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO decisions (
			decision_id, timestamp, opportunity_type, source, content,
			score, sender, action_taken, decision_maker, context, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (decision_id) DO NOTHING`,
		d.DecisionID, d.Timestamp, string(d.OpportunityType), string(d.Source), d.Content,
		d.Score, d.Sender, d.ActionTaken, d.DecisionMaker, contextJSON, d.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert decision %s", d.DecisionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrDuplicateDecision, "id %s", d.DecisionID)
	}
	return nil
}

func (s *PostgresStore) GetDecision(ctx context.Context, decisionID string) (*model.Decision, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT decision_id, timestamp, opportunity_type, source, content,
		        score, sender, action_taken, decision_maker, context, created_at
		 FROM decisions WHERE decision_id = $1`,
		decisionID,
	)

	var d model.Decision
	var contextJSON []byte
	err := row.Scan(&d.DecisionID, &d.Timestamp, &d.OpportunityType, &d.Source,
		&d.Content, &d.Score, &d.Sender, &d.ActionTaken, &d.DecisionMaker,
		&contextJSON, &d.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrapf(ErrDecisionNotFound, "id %s", decisionID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan decision")
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &d.Context); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal decision context")
		}
	}
	return &d, nil
}

func (s *PostgresStore) CountDecisions(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM decisions`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count decisions")
}

// RecordOutcome inserts the outcome and recomputes the conversion metric
// row for the decision's (source, type) pair inside one serializable
// transaction, so concurrent runs never read a mid-write aggregate.
func (s *PostgresStore) RecordOutcome(ctx context.Context, o *model.Outcome) (*model.Outcome, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var decidedAt time.Time
	var typ, source string
	err = tx.QueryRow(ctx,
		`SELECT timestamp, opportunity_type, source FROM decisions WHERE decision_id = $1`,
		o.DecisionID,
	).Scan(&decidedAt, &typ, &source)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrapf(ErrDecisionNotFound, "id %s", o.DecisionID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: lookup decision %s", o.DecisionID)
	}

	recorded := *o
	if recorded.RecordedAt.IsZero() {
		recorded.RecordedAt = time.Now().UTC()
	}
	recorded.TimeToOutcomeHours = recorded.RecordedAt.Sub(decidedAt).Hours()

	_, err = tx.Exec(ctx,
		`INSERT INTO outcomes (
			decision_id, outcome_type, status, revenue_generated,
			customer_acquired, deal_closed, response_received,
			time_to_outcome_hours, notes, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		recorded.DecisionID, recorded.OutcomeType, recorded.Status, recorded.RevenueGenerated,
		recorded.CustomerAcquired, recorded.DealClosed, recorded.ResponseReceived,
		recorded.TimeToOutcomeHours, recorded.Notes, recorded.RecordedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert outcome for %s", recorded.DecisionID)
	}

	var (
		decisions, responses, customers, deals int
		revenue                                float64
		avgTime                                sql.NullFloat64
	)
	err = tx.QueryRow(ctx,
		`SELECT
			COUNT(DISTINCT d.decision_id),
			COALESCE(SUM(CASE WHEN o.response_received THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN o.customer_acquired THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN o.deal_closed THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(o.revenue_generated), 0),
			AVG(CASE WHEN o.deal_closed THEN o.time_to_outcome_hours END)
		 FROM decisions d
		 LEFT JOIN outcomes o ON d.decision_id = o.decision_id
		 WHERE d.opportunity_type = $1 AND d.source = $2`,
		typ, source,
	).Scan(&decisions, &responses, &customers, &deals, &revenue, &avgTime)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: aggregate %s/%s", source, typ)
	}

	var rate float64
	if decisions > 0 {
		rate = float64(customers) / float64(decisions) * 100
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO conversion_metrics (
			source, opportunity_type, total_decisions, total_responses,
			total_customers, total_deals_closed, total_revenue,
			avg_time_to_conversion_hours, conversion_rate, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source, opportunity_type) DO UPDATE SET
			total_decisions = EXCLUDED.total_decisions,
			total_responses = EXCLUDED.total_responses,
			total_customers = EXCLUDED.total_customers,
			total_deals_closed = EXCLUDED.total_deals_closed,
			total_revenue = EXCLUDED.total_revenue,
			avg_time_to_conversion_hours = EXCLUDED.avg_time_to_conversion_hours,
			conversion_rate = EXCLUDED.conversion_rate,
			last_updated = EXCLUDED.last_updated`,
		source, typ, decisions, responses, customers, deals, revenue,
		avgTime, rate, time.Now().UTC(),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert metrics %s/%s", source, typ)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit outcome")
	}
	return &recorded, nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, typ model.OpportunityType, source model.Source, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT d.decision_id, d.timestamp, d.content, d.score,
		        o.customer_acquired, o.revenue_generated,
		        COALESCE(o.time_to_outcome_hours, 0)
		 FROM decisions d
		 JOIN outcomes o ON d.decision_id = o.decision_id
		 WHERE d.opportunity_type = $1 AND d.source = $2
		 ORDER BY d.timestamp DESC, o.recorded_at DESC
		 LIMIT $3`,
		string(typ), string(source), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list history")
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		if err := rows.Scan(&e.DecisionID, &e.Timestamp, &e.Content, &e.Score,
			&e.CustomerAcquired, &e.RevenueGenerated, &e.TimeToOutcomeHours); err != nil {
			return nil, eris.Wrap(err, "postgres: scan history")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list history iterate")
}

func (s *PostgresStore) ListConversionMetrics(ctx context.Context) ([]model.ConversionMetric, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT source, opportunity_type, total_decisions, total_responses,
		        total_customers, total_deals_closed, total_revenue,
		        avg_time_to_conversion_hours, conversion_rate, last_updated
		 FROM conversion_metrics
		 ORDER BY conversion_rate DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list conversion metrics")
	}
	defer rows.Close()

	var metrics []model.ConversionMetric
	for rows.Next() {
		var m model.ConversionMetric
		var avgTime sql.NullFloat64
		if err := rows.Scan(&m.Source, &m.OpportunityType, &m.TotalDecisions,
			&m.TotalResponses, &m.TotalCustomers, &m.TotalDealsClosed,
			&m.TotalRevenue, &avgTime, &m.ConversionRate, &m.LastUpdated); err != nil {
			return nil, eris.Wrap(err, "postgres: scan conversion metric")
		}
		m.AvgTimeToConversionHours = avgTime.Float64
		metrics = append(metrics, m)
	}
	return metrics, eris.Wrap(rows.Err(), "postgres: list conversion metrics iterate")
}

func (s *PostgresStore) ROIByType(ctx context.Context) ([]model.ROIRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT d.opportunity_type, d.source,
		        COUNT(DISTINCT d.decision_id),
		        COALESCE(SUM(o.revenue_generated), 0) AS total_revenue,
		        COALESCE(SUM(o.revenue_generated), 0) / COUNT(DISTINCT d.decision_id),
		        COALESCE(SUM(CASE WHEN o.deal_closed THEN 1 ELSE 0 END), 0),
		        COALESCE(AVG(o.time_to_outcome_hours), 0)
		 FROM decisions d
		 LEFT JOIN outcomes o ON d.decision_id = o.decision_id
		 GROUP BY d.opportunity_type, d.source
		 HAVING COALESCE(SUM(o.revenue_generated), 0) > 0
		 ORDER BY total_revenue DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: roi by type")
	}
	defer rows.Close()

	var out []model.ROIRow
	for rows.Next() {
		var r model.ROIRow
		if err := rows.Scan(&r.OpportunityType, &r.Source, &r.DecisionsMade,
			&r.TotalRevenue, &r.AvgRevenuePerDecision, &r.ClosedDeals, &r.AvgTimeHours); err != nil {
			return nil, eris.Wrap(err, "postgres: scan roi row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: roi iterate")
}

func (s *PostgresStore) SummaryCounts(ctx context.Context, date string) (*SummaryCounts, error) {
	var (
		sc             SummaryCounts
		types, sources []string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(ARRAY_AGG(DISTINCT opportunity_type) FILTER (WHERE opportunity_type IS NOT NULL), '{}'),
		        COALESCE(ARRAY_AGG(DISTINCT source) FILTER (WHERE source IS NOT NULL), '{}')
		 FROM decisions WHERE timestamp::date = $1::date`,
		date,
	).Scan(&sc.Decisions.Count, &types, &sources)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: summarize decisions %s", date)
	}
	sc.Decisions.Types = types
	sc.Decisions.Sources = sources

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(revenue_generated), 0),
		        COALESCE(SUM(CASE WHEN customer_acquired THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN deal_closed THEN 1 ELSE 0 END), 0)
		 FROM outcomes WHERE recorded_at::date = $1::date`,
		date,
	).Scan(&sc.Outcomes.Total, &sc.Outcomes.Revenue, &sc.Outcomes.Customers, &sc.Outcomes.DealsClosed)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: summarize outcomes %s", date)
	}
	return &sc, nil
}

func (s *PostgresStore) SaveInsights(ctx context.Context, insights []model.Insight) error {
	if len(insights) == 0 {
		return nil
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, ins := range insights {
		_, err := tx.Exec(ctx,
			`INSERT INTO insights (insight_type, title, description, confidence, data_points, generated_at, is_active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			string(ins.Type), ins.Title, ins.Description, ins.Confidence, ins.DataPoints, ins.GeneratedAt, ins.IsActive,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert insight %q", ins.Title)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit insights")
}

func (s *PostgresStore) ListInsights(ctx context.Context, limit int) ([]model.Insight, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT insight_type, title, description, confidence, data_points, generated_at, is_active
		 FROM insights ORDER BY generated_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list insights")
	}
	defer rows.Close()

	var out []model.Insight
	for rows.Next() {
		var ins model.Insight
		if err := rows.Scan(&ins.Type, &ins.Title, &ins.Description,
			&ins.Confidence, &ins.DataPoints, &ins.GeneratedAt, &ins.IsActive); err != nil {
			return nil, eris.Wrap(err, "postgres: scan insight")
		}
		out = append(out, ins)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list insights iterate")
}
