package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/gogo/simulator/internal/domain"
)

// SQLiteStore implements AgentStore and EventStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			agent_id TEXT PRIMARY KEY,
			type TEXT NOT NULL DEFAULT 'TinyPerson',
			name TEXT NOT NULL,
			persona TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS simulation_events (
			event_id TEXT PRIMARY KEY,
			simulation_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_simulation_events_sim ON simulation_events(simulation_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Upgrade databases created before agents had updated_at.
	if err := s.ensureColumn("agents", "updated_at", "ALTER TABLE agents ADD COLUMN updated_at DATETIME"); err != nil {
		return err
	}

	return nil
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(ddl)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateAgent inserts a new agent.
func (s *SQLiteStore) CreateAgent(ctx context.Context, agent *domain.Agent) error {
	persona, err := json.Marshal(agent.Persona)
	if err != nil {
		return fmt.Errorf("failed to encode persona: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agents (agent_id, type, name, persona, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.Type, agent.Persona.Name, string(persona), agent.CreatedAt, agent.UpdatedAt)
	return err
}

// GetAgent retrieves an agent by ID.
func (s *SQLiteStore) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT agent_id, type, persona, created_at, updated_at FROM agents WHERE agent_id = ?`,
		agentID)
	agent, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// ListAgents lists all agents, oldest first.
func (s *SQLiteStore) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_id, type, persona, created_at, updated_at FROM agents ORDER BY created_at, agent_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *agent)
	}
	return agents, rows.Err()
}

// UpdateAgentPersona replaces the persona of an agent. It reports whether a row was updated.
func (s *SQLiteStore) UpdateAgentPersona(ctx context.Context, agentID string, persona domain.Persona, updatedAt time.Time) (bool, error) {
	raw, err := json.Marshal(persona)
	if err != nil {
		return false, fmt.Errorf("failed to encode persona: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE agents SET name = ?, persona = ?, updated_at = ? WHERE agent_id = ?`,
		persona.Name, string(raw), updatedAt, agentID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteAgent removes an agent. It reports whether a row existed.
func (s *SQLiteStore) DeleteAgent(ctx context.Context, agentID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE agent_id = ?`, agentID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var agent domain.Agent
	var persona string
	var updatedAt sql.NullTime
	if err := row.Scan(&agent.ID, &agent.Type, &persona, &agent.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(persona), &agent.Persona); err != nil {
		return nil, fmt.Errorf("failed to decode persona for agent %s: %w", agent.ID, err)
	}
	if updatedAt.Valid {
		agent.UpdatedAt = updatedAt.Time
	} else {
		agent.UpdatedAt = agent.CreatedAt
	}
	return &agent, nil
}

// CreateEvent appends an event to the trail.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO simulation_events (event_id, simulation_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.SimulationID, event.Ts, event.Type, nullStringBytes(event.Payload))
	return err
}

// GetEvents retrieves events for a simulation in timestamp order.
func (s *SQLiteStore) GetEvents(ctx context.Context, simulationID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	query := `SELECT event_id, simulation_id, ts, type, payload FROM simulation_events WHERE simulation_id = ?`
	args := []interface{}{simulationID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.SimulationID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullStringBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
