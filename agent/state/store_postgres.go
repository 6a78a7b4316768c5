package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN string `envconfig:"DSN" split_words:"true" required:"true"`
}

type conversationRow struct {
	bun.BaseModel `bun:"table:conversation_states,alias:cs"`

	ID             string          `bun:"id,pk"`
	Document       json.RawMessage `bun:"document,type:jsonb,notnull"`
	ReplySignature string          `bun:"reply_signature,nullzero"`
	ReplyAt        time.Time       `bun:"reply_at,nullzero"`
	UpdatedAt      time.Time       `bun:"updated_at,notnull"`
}

// PostgresDocumentStore keeps one row per conversation: the state document
// in a jsonb column and the reply mark in its own columns.
type PostgresDocumentStore struct {
	db *bun.DB
}

var _ DocumentStore = (*PostgresDocumentStore)(nil)

// OpenPostgres opens a bun DB over pgdriver.
func OpenPostgres(cfg PostgresConfig) (*bun.DB, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func NewPostgresDocumentStore(db *bun.DB) (*PostgresDocumentStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresDocumentStore{db: db}, nil
}

// Migrate creates the conversation_states table when missing.
func (s *PostgresDocumentStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*conversationRow)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("create conversation_states: %w", err)
	}
	return nil
}

func (s *PostgresDocumentStore) Get(ctx context.Context, id string) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidConversation
	}

	var row conversationRow
	err := s.db.NewSelect().Model(&row).Column("document").Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select conversation document: %w", err)
	}
	return []byte(row.Document), nil
}

func (s *PostgresDocumentStore) Set(ctx context.Context, id string, doc []byte) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidConversation
	}
	if doc == nil {
		return ErrNilDocument
	}

	row := &conversationRow{
		ID:        id,
		Document:  json.RawMessage(doc),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.NewInsert().Model(row).
		Column("id", "document", "updated_at").
		On("CONFLICT (id) DO UPDATE").
		Set("document = EXCLUDED.document").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert conversation document: %w", err)
	}
	return nil
}

// CompareAndSet is a single upsert whose DO UPDATE branch is guarded by the
// condition; RowsAffected is 1 when the mark was written and 0 otherwise.
func (s *PostgresDocumentStore) CompareAndSet(ctx context.Context, id string, cond ReplyCondition, mark ReplyMark) (int64, error) {
	if strings.TrimSpace(id) == "" {
		return 0, ErrInvalidConversation
	}

	row := &conversationRow{
		ID:             id,
		Document:       json.RawMessage(`{}`),
		ReplySignature: mark.Signature,
		ReplyAt:        mark.At.UTC(),
		UpdatedAt:      mark.At.UTC(),
	}
	res, err := s.db.NewInsert().Model(row).
		Column("id", "document", "reply_signature", "reply_at", "updated_at").
		On("CONFLICT (id) DO UPDATE").
		Set("reply_signature = EXCLUDED.reply_signature").
		Set("reply_at = EXCLUDED.reply_at").
		Where("cs.reply_signature IS NULL OR cs.reply_signature <> ? OR cs.reply_at IS NULL OR cs.reply_at < ?",
			cond.SignatureNot, cond.OlderThan.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("register reply: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("register reply rows affected: %w", err)
	}
	return n, nil
}
