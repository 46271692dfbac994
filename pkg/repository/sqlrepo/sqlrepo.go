// Copyright 2025 Arada AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlrepo is the reference SQL-backed implementation of the
// repository interfaces, over github.com/jmoiron/sqlx and
// modernc.org/sqlite (a pure-Go sqlite driver, so the binary stays
// cgo-free). Agent configs are stored as YAML documents and MCP server
// headers as JSON blobs, alongside their indexed columns, following
// original_source/src/mcp/repository.py's record shape: credentials
// never touch these tables, only a secret_ref string.
package sqlrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
	"gopkg.in/yaml.v3"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/engerrors"
	"github.com/aradaai/agentcore/pkg/mcp"
	"github.com/aradaai/agentcore/pkg/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS agents (
	id      TEXT PRIMARY KEY,
	kind    TEXT NOT NULL,
	doc     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mcp_servers (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	template      TEXT NOT NULL,
	url           TEXT NOT NULL,
	headers_json  TEXT NOT NULL DEFAULT '{}',
	secret_ref    TEXT,
	oauth_ref     TEXT,
	state         TEXT NOT NULL DEFAULT 'disconnected',
	error_message TEXT
);

CREATE TABLE IF NOT EXISTS messages (
	session_id TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	doc        TEXT NOT NULL,
	PRIMARY KEY (session_id, seq)
);
`

// Open connects to (creating if necessary) a sqlite database at path and
// applies the schema.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlrepo: open %q: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlrepo: apply schema: %w", err)
	}
	return db, nil
}

// AgentRepository persists agent configs as YAML documents, keyed by id.
type AgentRepository struct {
	db *sqlx.DB
}

func NewAgentRepository(db *sqlx.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

func (r *AgentRepository) Get(ctx context.Context, id string) (*config.Config, error) {
	var doc string
	err := r.db.GetContext(ctx, &doc, `SELECT doc FROM agents WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, engerrors.New(engerrors.KindConfigInvalid, fmt.Sprintf("agent %q not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("sqlrepo: get agent %q: %w", id, err)
	}

	cfg := &config.Config{}
	if err := yaml.Unmarshal([]byte(doc), cfg); err != nil {
		return nil, fmt.Errorf("sqlrepo: decode agent %q: %w", id, err)
	}
	cfg.SetDefaults()
	return cfg, nil
}

func (r *AgentRepository) List(ctx context.Context) ([]*config.Config, error) {
	var docs []string
	if err := r.db.SelectContext(ctx, &docs, `SELECT doc FROM agents ORDER BY id`); err != nil {
		return nil, fmt.Errorf("sqlrepo: list agents: %w", err)
	}

	out := make([]*config.Config, 0, len(docs))
	for _, doc := range docs {
		cfg := &config.Config{}
		if err := yaml.Unmarshal([]byte(doc), cfg); err != nil {
			return nil, fmt.Errorf("sqlrepo: decode agent: %w", err)
		}
		cfg.SetDefaults()
		out = append(out, cfg)
	}
	return out, nil
}

func (r *AgentRepository) Upsert(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	doc, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("sqlrepo: encode agent %q: %w", cfg.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO agents (id, kind, doc) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET kind = excluded.kind, doc = excluded.doc
	`, cfg.ID, string(cfg.Kind), string(doc))
	if err != nil {
		return fmt.Errorf("sqlrepo: upsert agent %q: %w", cfg.ID, err)
	}
	return nil
}

func (r *AgentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlrepo: delete agent %q: %w", id, err)
	}
	return nil
}

var _ repository.AgentRepository = (*AgentRepository)(nil)

// MCPServerRepository persists MCP server instance records. Credentials
// never land in this table — only a secret_ref pointing at wherever the
// real secret lives (spec §6).
type MCPServerRepository struct {
	db *sqlx.DB
}

func NewMCPServerRepository(db *sqlx.DB) *MCPServerRepository {
	return &MCPServerRepository{db: db}
}

// NewServerID generates the "srv_<uuid hex12>" id scheme grounded on
// original_source/src/mcp/repository.py's create().
func NewServerID() string {
	u := uuid.New()
	return fmt.Sprintf("srv_%x", u[:6])
}

func (r *MCPServerRepository) Create(ctx context.Context, rec repository.ServerRecord) error {
	headers, err := json.Marshal(rec.Headers)
	if err != nil {
		return fmt.Errorf("sqlrepo: encode headers for %q: %w", rec.ID, err)
	}
	if rec.State == "" {
		rec.State = mcp.StateDisconnected
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO mcp_servers (id, name, template, url, headers_json, secret_ref, oauth_ref, state, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Name, rec.Template, rec.URL, string(headers), rec.SecretRef, rec.OAuthRef, string(rec.State), rec.ErrorMessage)
	if err != nil {
		return fmt.Errorf("sqlrepo: create mcp server %q: %w", rec.ID, err)
	}
	return nil
}

type mcpServerRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Template     string `db:"template"`
	URL          string `db:"url"`
	HeadersJSON  string `db:"headers_json"`
	SecretRef    string `db:"secret_ref"`
	OAuthRef     string `db:"oauth_ref"`
	State        string `db:"state"`
	ErrorMessage string `db:"error_message"`
}

func (row mcpServerRow) toRecord() (repository.ServerRecord, error) {
	var headers map[string]string
	if row.HeadersJSON != "" {
		if err := json.Unmarshal([]byte(row.HeadersJSON), &headers); err != nil {
			return repository.ServerRecord{}, fmt.Errorf("sqlrepo: decode headers for %q: %w", row.ID, err)
		}
	}
	return repository.ServerRecord{
		ID:           row.ID,
		Name:         row.Name,
		Template:     row.Template,
		URL:          row.URL,
		Headers:      headers,
		SecretRef:    row.SecretRef,
		OAuthRef:     row.OAuthRef,
		State:        mcp.State(row.State),
		ErrorMessage: row.ErrorMessage,
	}, nil
}

func (r *MCPServerRepository) Get(ctx context.Context, id string) (*repository.ServerRecord, error) {
	var row mcpServerRow
	err := r.db.GetContext(ctx, &row, `SELECT id, name, template, url, headers_json, secret_ref, oauth_ref, state, error_message FROM mcp_servers WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, engerrors.New(engerrors.KindToolUnknown, fmt.Sprintf("mcp server %q not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("sqlrepo: get mcp server %q: %w", id, err)
	}
	rec, err := row.toRecord()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *MCPServerRepository) List(ctx context.Context) ([]repository.ServerRecord, error) {
	var rows []mcpServerRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name, template, url, headers_json, secret_ref, oauth_ref, state, error_message FROM mcp_servers ORDER BY id`); err != nil {
		return nil, fmt.Errorf("sqlrepo: list mcp servers: %w", err)
	}

	out := make([]repository.ServerRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *MCPServerRepository) UpdateStatus(ctx context.Context, id string, state mcp.State, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE mcp_servers SET state = ?, error_message = ? WHERE id = ?`, string(state), errMessage, id)
	if err != nil {
		return fmt.Errorf("sqlrepo: update status for %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return engerrors.New(engerrors.KindToolUnknown, fmt.Sprintf("mcp server %q not found", id))
	}
	return nil
}

func (r *MCPServerRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mcp_servers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlrepo: delete mcp server %q: %w", id, err)
	}
	return nil
}

var _ repository.MCPServerRepository = (*MCPServerRepository)(nil)

// ConversationRepository appends messages keyed by (session_id, seq).
type ConversationRepository struct {
	db *sqlx.DB
}

func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, sessionID string, msg config.Message) error {
	doc, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("sqlrepo: encode message for %q: %w", sessionID, err)
	}

	var nextSeq int
	err = r.db.GetContext(ctx, &nextSeq, `SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("sqlrepo: compute seq for %q: %w", sessionID, err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO messages (session_id, seq, doc) VALUES (?, ?, ?)`, sessionID, nextSeq, string(doc))
	if err != nil {
		return fmt.Errorf("sqlrepo: append message for %q: %w", sessionID, err)
	}
	return nil
}

func (r *ConversationRepository) History(ctx context.Context, sessionID string) ([]config.Message, error) {
	var docs []string
	if err := r.db.SelectContext(ctx, &docs, `SELECT doc FROM messages WHERE session_id = ? ORDER BY seq`, sessionID); err != nil {
		return nil, fmt.Errorf("sqlrepo: history for %q: %w", sessionID, err)
	}

	out := make([]config.Message, 0, len(docs))
	for _, doc := range docs {
		var msg config.Message
		if err := json.Unmarshal([]byte(doc), &msg); err != nil {
			return nil, fmt.Errorf("sqlrepo: decode message for %q: %w", sessionID, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

var _ repository.ConversationRepository = (*ConversationRepository)(nil)
