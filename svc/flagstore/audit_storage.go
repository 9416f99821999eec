package flagstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/flagkit/pkg/audit"
)

// PostgresAuditStorage stores audit entries in the audit_logs table.
type PostgresAuditStorage struct {
	pool *pgxpool.Pool
}

var (
	_ audit.Storage     = (*PostgresAuditStorage)(nil)
	_ audit.BatchWriter = (*PostgresAuditStorage)(nil)
	_ audit.Querier     = (*PostgresAuditStorage)(nil)
)

func NewPostgresAuditStorage(pool *pgxpool.Pool) *PostgresAuditStorage {
	if pool == nil {
		panic("flagstore: pool is required")
	}
	return &PostgresAuditStorage{pool: pool}
}

const auditColumns = `id, tenant_id, actor_id, actor_type, action, entity_type, entity_id,
	before_state, after_state, ip_address, user_agent, created_at`

const insertAudit = `INSERT INTO audit_logs (` + auditColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func auditArgs(e audit.Entry) []any {
	return []any{
		e.ID, e.TenantID, e.ActorID, string(e.ActorType), string(e.Action), string(e.EntityType), e.EntityID,
		nullJSON(e.BeforeState), nullJSON(e.AfterState), e.IPAddress, e.UserAgent, e.CreatedAt,
	}
}

func nullJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func (s *PostgresAuditStorage) Store(ctx context.Context, entry audit.Entry) error {
	if _, err := s.pool.Exec(ctx, insertAudit, auditArgs(entry)...); err != nil {
		return errors.Join(audit.ErrStorageNotAvailable, err)
	}
	return nil
}

// StoreBatch writes all entries in one transaction.
func (s *PostgresAuditStorage) StoreBatch(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Join(audit.ErrStorageNotAvailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(insertAudit, auditArgs(e)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Join(audit.ErrStorageNotAvailable, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(audit.ErrStorageNotAvailable, err)
	}
	return nil
}

func (s *PostgresAuditStorage) Query(ctx context.Context, c audit.Criteria) ([]audit.Entry, int, error) {
	c = c.Normalize()

	where := `tenant_id = $1`
	args := []any{c.TenantID}
	add := func(cond string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(" AND %s = $%d", cond, len(args))
	}
	if c.Action != "" {
		add("action", string(c.Action))
	}
	if c.EntityType != "" {
		add("entity_type", string(c.EntityType))
	}
	if c.EntityID != uuid.Nil {
		add("entity_id", c.EntityID)
	}
	if c.ActorID != "" {
		add("actor_id", c.ActorID)
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM audit_logs WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM audit_logs WHERE %s ORDER BY created_at DESC, id LIMIT %d OFFSET %d`,
		auditColumns, where, c.Limit, c.Offset())
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []audit.Entry{}
	for rows.Next() {
		var (
			e                        audit.Entry
			actorType, action, etype string
			before, after            []byte
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ActorID, &actorType, &action, &etype, &e.EntityID,
			&before, &after, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.ActorType = audit.ActorType(actorType)
		e.Action = audit.Action(action)
		e.EntityType = audit.EntityType(etype)
		e.BeforeState, e.AfterState = before, after
		out = append(out, e)
	}
	return out, total, rows.Err()
}
