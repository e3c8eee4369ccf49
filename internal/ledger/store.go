// Package ledger persists decision events, their outcomes, and sovereign
// overrides as an append-only sqlite log, and derives patterns and
// calibrations from it (spec.md §4.6). Grounded on the teacher's
// internal/memory event-sourcing store: an INSERT-only event table with
// database-enforced immutability, generalized from distributed
// memory-sync events to counsel decision/outcome events.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Arjun3125/Sovereign/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	event_id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	domain TEXT NOT NULL,
	stakes TEXT,
	emotional_load REAL,
	urgency REAL,
	ministers_called TEXT,
	verdict_summary TEXT,
	posture TEXT,
	illusions_detected TEXT,
	contradictions_found INTEGER,
	sovereign_action TEXT,
	action_followed_counsel INTEGER,
	override_reason TEXT,
	mode TEXT NOT NULL
);

CREATE TRIGGER IF NOT EXISTS events_no_update BEFORE UPDATE ON events
BEGIN SELECT RAISE(ABORT, 'events is append-only'); END;

CREATE TRIGGER IF NOT EXISTS events_no_delete BEFORE DELETE ON events
BEGIN SELECT RAISE(ABORT, 'events is append-only'); END;

CREATE TABLE IF NOT EXISTS outcomes (
	event_id TEXT PRIMARY KEY REFERENCES events(event_id),
	resolved_at TEXT NOT NULL,
	result TEXT NOT NULL,
	damage REAL,
	benefit REAL,
	lessons TEXT
);

CREATE TRIGGER IF NOT EXISTS outcomes_no_update BEFORE UPDATE ON outcomes
BEGIN SELECT RAISE(ABORT, 'outcomes is append-only'); END;

CREATE TRIGGER IF NOT EXISTS outcomes_no_delete BEFORE DELETE ON outcomes
BEGIN SELECT RAISE(ABORT, 'outcomes is append-only'); END;

CREATE TABLE IF NOT EXISTS overrides (
	event_id TEXT PRIMARY KEY REFERENCES events(event_id),
	domain TEXT NOT NULL,
	reason TEXT,
	occurred_at TEXT NOT NULL
);

CREATE TRIGGER IF NOT EXISTS overrides_no_update BEFORE UPDATE ON overrides
BEGIN SELECT RAISE(ABORT, 'overrides is append-only'); END;

CREATE TRIGGER IF NOT EXISTS overrides_no_delete BEFORE DELETE ON overrides
BEGIN SELECT RAISE(ABORT, 'overrides is append-only'); END;

CREATE TABLE IF NOT EXISTS patterns (
	pattern_id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	description TEXT,
	domain TEXT,
	frequency INTEGER,
	last_seen TEXT,
	last_outcome TEXT
);

CREATE TABLE IF NOT EXISTS calibrations (
	subject TEXT NOT NULL,
	domain TEXT NOT NULL,
	confidence REAL,
	caution REAL,
	urgency_threshold REAL,
	bluntness REAL,
	updated_at TEXT,
	PRIMARY KEY (subject, domain)
);
`

// Store is the append-only sqlite-backed ledger. Patterns and
// calibrations are the only tables it overwrites in place, since spec.md
// §4.6 defines both as derived and rebuildable.
type Store struct {
	db *sql.DB
}

// Open creates or opens the ledger database at path and ensures its
// schema, including the append-only triggers, exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// AppendEvent inserts one DecisionEvent row. Calling this twice with the
// same EventId is a primary-key violation, not a silent overwrite.
func (s *Store) AppendEvent(ctx context.Context, e domain.DecisionEvent) error {
	ministers, err := json.Marshal(e.MinistersCalled)
	if err != nil {
		return fmt.Errorf("ledger: marshal ministers_called: %w", err)
	}
	illusions, err := json.Marshal(e.IllusionsDetected)
	if err != nil {
		return fmt.Errorf("ledger: marshal illusions_detected: %w", err)
	}

	var followedCounsel sql.NullBool
	if e.ActionFollowedCounsel != nil {
		followedCounsel = sql.NullBool{Bool: *e.ActionFollowedCounsel, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (event_id, timestamp, domain, stakes, emotional_load, urgency,
			ministers_called, verdict_summary, posture, illusions_detected,
			contradictions_found, sovereign_action, action_followed_counsel, override_reason, mode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EventId, e.Timestamp.UTC().Format(time.RFC3339Nano), string(e.Domain), e.Stakes,
		e.EmotionalLoad, e.Urgency, string(ministers), e.VerdictSummary, e.Posture,
		string(illusions), e.ContradictionsFound, e.SovereignAction, followedCounsel,
		e.OverrideReason, string(e.Mode))
	if err != nil {
		return fmt.Errorf("ledger: append event %s: %w", e.EventId, err)
	}

	if e.ActionFollowedCounsel != nil && !*e.ActionFollowedCounsel {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO overrides (event_id, domain, reason, occurred_at) VALUES (?, ?, ?, ?)`,
			e.EventId, string(e.Domain), e.OverrideReason, e.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("ledger: append override for %s: %w", e.EventId, err)
		}
	}
	return nil
}

// AppendOutcome inserts one Outcome row. A duplicate EventId is a
// primary-key violation, enforcing "at most one Outcome per event_id".
func (s *Store) AppendOutcome(ctx context.Context, o domain.Outcome) error {
	lessons, err := json.Marshal(o.Lessons)
	if err != nil {
		return fmt.Errorf("ledger: marshal lessons: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outcomes (event_id, resolved_at, result, damage, benefit, lessons) VALUES (?, ?, ?, ?, ?, ?)`,
		o.EventId, o.ResolvedAt.UTC().Format(time.RFC3339Nano), string(o.Result), o.Damage, o.Benefit, string(lessons))
	if err != nil {
		return fmt.Errorf("ledger: append outcome for %s: %w", o.EventId, err)
	}
	return nil
}

// Events returns every event row, oldest first.
func (s *Store) Events(ctx context.Context) ([]domain.DecisionEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, timestamp, domain, stakes, emotional_load, urgency, ministers_called,
			verdict_summary, posture, illusions_detected, contradictions_found, sovereign_action,
			action_followed_counsel, override_reason, mode
		FROM events ORDER BY timestamp ASC`)
	if err != nil {
		return nil, fmt.Errorf("ledger: query events: %w", err)
	}
	defer rows.Close()

	var out []domain.DecisionEvent
	for rows.Next() {
		var e domain.DecisionEvent
		var ts string
		var dom, mode string
		var ministersJSON, illusionsJSON string
		var followedCounsel sql.NullBool
		if err := rows.Scan(&e.EventId, &ts, &dom, &e.Stakes, &e.EmotionalLoad, &e.Urgency,
			&ministersJSON, &e.VerdictSummary, &e.Posture, &illusionsJSON, &e.ContradictionsFound,
			&e.SovereignAction, &followedCounsel, &e.OverrideReason, &mode); err != nil {
			return nil, fmt.Errorf("ledger: scan event: %w", err)
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("ledger: parse timestamp: %w", err)
		}
		e.Domain = domain.Domain(dom)
		e.Mode = domain.Mode(mode)
		if err := json.Unmarshal([]byte(ministersJSON), &e.MinistersCalled); err != nil {
			return nil, fmt.Errorf("ledger: unmarshal ministers_called: %w", err)
		}
		if err := json.Unmarshal([]byte(illusionsJSON), &e.IllusionsDetected); err != nil {
			return nil, fmt.Errorf("ledger: unmarshal illusions_detected: %w", err)
		}
		if followedCounsel.Valid {
			v := followedCounsel.Bool
			e.ActionFollowedCounsel = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Outcomes returns every outcome row, keyed for lookup by event_id.
func (s *Store) Outcomes(ctx context.Context) (map[string]domain.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT event_id, resolved_at, result, damage, benefit, lessons FROM outcomes`)
	if err != nil {
		return nil, fmt.Errorf("ledger: query outcomes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Outcome)
	for rows.Next() {
		var o domain.Outcome
		var resolvedAt, result, lessonsJSON string
		if err := rows.Scan(&o.EventId, &resolvedAt, &result, &o.Damage, &o.Benefit, &lessonsJSON); err != nil {
			return nil, fmt.Errorf("ledger: scan outcome: %w", err)
		}
		o.ResolvedAt, err = time.Parse(time.RFC3339Nano, resolvedAt)
		if err != nil {
			return nil, fmt.Errorf("ledger: parse resolved_at: %w", err)
		}
		o.Result = domain.Result(result)
		if err := json.Unmarshal([]byte(lessonsJSON), &o.Lessons); err != nil {
			return nil, fmt.Errorf("ledger: unmarshal lessons: %w", err)
		}
		out[o.EventId] = o
	}
	return out, rows.Err()
}

// SavePatterns replaces the derived patterns table with a freshly computed
// set (spec.md §4.6: "may be rebuilt from events + outcomes").
func (s *Store) SavePatterns(ctx context.Context, patterns []domain.Pattern) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin patterns tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM patterns`); err != nil {
		return fmt.Errorf("ledger: clear patterns: %w", err)
	}
	for _, p := range patterns {
		var dom sql.NullString
		if p.Domain != nil {
			dom = sql.NullString{String: string(*p.Domain), Valid: true}
		}
		var lastOutcome sql.NullString
		if p.LastOutcome != nil {
			lastOutcome = sql.NullString{String: string(*p.LastOutcome), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO patterns (pattern_id, kind, description, domain, frequency, last_seen, last_outcome)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.PatternId, string(p.Kind), p.Description, dom, p.Frequency,
			p.LastSeen.UTC().Format(time.RFC3339Nano), lastOutcome); err != nil {
			return fmt.Errorf("ledger: insert pattern %s: %w", p.PatternId, err)
		}
	}
	return tx.Commit()
}

// SaveCalibration upserts one subject/domain calibration row.
func (s *Store) SaveCalibration(ctx context.Context, c domain.Calibration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calibrations (subject, domain, confidence, caution, urgency_threshold, bluntness, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject, domain) DO UPDATE SET
			confidence=excluded.confidence, caution=excluded.caution,
			urgency_threshold=excluded.urgency_threshold, bluntness=excluded.bluntness,
			updated_at=excluded.updated_at`,
		c.Subject, string(c.Domain), c.Confidence, c.Caution, c.UrgencyThreshold, c.Bluntness,
		c.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("ledger: save calibration for %s/%s: %w", c.Subject, c.Domain, err)
	}
	return nil
}

// Calibration loads the stored calibration for subject/domain, or the
// documented starting point if none has been saved yet.
func (s *Store) Calibration(ctx context.Context, subject string, dom domain.Domain) (domain.Calibration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT confidence, caution, urgency_threshold, bluntness, updated_at FROM calibrations WHERE subject = ? AND domain = ?`,
		subject, string(dom))
	var c domain.Calibration
	c.Subject = subject
	c.Domain = dom
	var updatedAt string
	err := row.Scan(&c.Confidence, &c.Caution, &c.UrgencyThreshold, &c.Bluntness, &updatedAt)
	if err == sql.ErrNoRows {
		return domain.NewCalibration(subject, dom), nil
	}
	if err != nil {
		return domain.Calibration{}, fmt.Errorf("ledger: load calibration for %s/%s: %w", subject, dom, err)
	}
	c.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return domain.Calibration{}, fmt.Errorf("ledger: parse calibration updated_at: %w", err)
	}
	return c, nil
}
