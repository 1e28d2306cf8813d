package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/EvershineMarbles/EvershineBackend/internal/storage/db"
)

type CreateOutboxMsgParams struct {
	Topic        string
	Headers      map[string]string
	Payload      json.RawMessage
	PartitionKey *string
}

type ListUnprocessedOutboxMsgsParams struct {
	BatchSize int32
}

type ListUnprocessedOutboxMsgsResult struct {
	ID           uuid.UUID
	Topic        string
	Headers      map[string]string
	Payload      json.RawMessage
	PartitionKey *string
}

type BulkUpdateOutboxMsgsItem struct {
	ID    uuid.UUID
	Error *string
}

type BulkUpdateOutboxMsgsParams struct {
	Items []BulkUpdateOutboxMsgsItem
}

type OutboxMsgRepository interface {
	WithDB(db db.DB) OutboxMsgRepository
	CreateOutboxMsg(ctx context.Context, params CreateOutboxMsgParams) error
	ListUnprocessedOutboxMsgs(ctx context.Context, params ListUnprocessedOutboxMsgsParams) ([]ListUnprocessedOutboxMsgsResult, error)
	BulkUpdateOutboxMsgs(ctx context.Context, params BulkUpdateOutboxMsgsParams) error
}

type outboxMsgRepository struct {
	db db.DB
}

func NewOutboxMsgRepository(db db.DB) OutboxMsgRepository {
	return &outboxMsgRepository{db: db}
}

func (r outboxMsgRepository) WithDB(db db.DB) OutboxMsgRepository {
	return &outboxMsgRepository{db: db}
}

const outboxTable = "outbox_messages"

func (r outboxMsgRepository) CreateOutboxMsg(ctx context.Context, params CreateOutboxMsgParams) error {
	headers, err := json.Marshal(params.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	// v7 ids sort by creation time, which keeps the primary key index append-only.
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate outbox msg id: %w", err)
	}

	query, args, err := psql.Insert(outboxTable).
		Columns("id", "topic", "headers", "payload", "partition_key", "created_at").
		Values(id, params.Topic, string(headers), string(params.Payload), params.PartitionKey, time.Now()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build outbox insert: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert outbox msg: %w", err)
	}
	return nil
}

// ListUnprocessedOutboxMsgs claims the oldest pending rows. The row locks
// last until the surrounding transaction ends, and SKIP LOCKED lets several
// relays share the table without sending a row twice.
func (r outboxMsgRepository) ListUnprocessedOutboxMsgs(ctx context.Context, params ListUnprocessedOutboxMsgsParams) ([]ListUnprocessedOutboxMsgsResult, error) {
	query, args, err := psql.Select("id", "topic", "headers", "payload", "partition_key").
		From(outboxTable).
		Where(sq.Eq{"processed_at": nil}).
		OrderBy("created_at", "id").
		Limit(uint64(max(params.BatchSize, 0))).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build outbox select: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select pending outbox msgs: %w", err)
	}

	msgs, err := pgx.CollectRows(rows, scanOutboxMsg)
	if err != nil {
		return nil, fmt.Errorf("scan outbox msgs: %w", err)
	}
	return msgs, nil
}

func scanOutboxMsg(row pgx.CollectableRow) (ListUnprocessedOutboxMsgsResult, error) {
	var (
		msg     ListUnprocessedOutboxMsgsResult
		headers []byte
	)
	if err := row.Scan(&msg.ID, &msg.Topic, &headers, &msg.Payload, &msg.PartitionKey); err != nil {
		return msg, err
	}

	msg.Headers = map[string]string{}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &msg.Headers); err != nil {
			return msg, fmt.Errorf("unmarshal headers of %s: %w", msg.ID, err)
		}
	}
	return msg, nil
}

func (r outboxMsgRepository) BulkUpdateOutboxMsgs(ctx context.Context, params BulkUpdateOutboxMsgsParams) error {
	ids := make([]uuid.UUID, 0, len(params.Items))
	errs := make([]*string, 0, len(params.Items))
	for _, item := range params.Items {
		ids = append(ids, item.ID)
		errs = append(errs, item.Error)
	}

	// One round trip: the two arrays are zipped back into (id, error) rows.
	_, err := r.db.Exec(ctx, `
		UPDATE outbox_messages AS o
		SET processed_at = NOW(), error = e.error
		FROM UNNEST(@ids::uuid[], @errors::text[]) AS e(id, error)
		WHERE o.id = e.id
	`, pgx.NamedArgs{
		"ids":    ids,
		"errors": errs,
	})
	if err != nil {
		return fmt.Errorf("mark outbox msgs processed: %w", err)
	}
	return nil
}
