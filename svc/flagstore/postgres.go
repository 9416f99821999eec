package flagstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/pg"
	"github.com/dmitrymomot/flagkit/pkg/tenant"
)

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store; assumes migrations already created the
// schema.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("flagstore: pool is required")
	}
	return &PostgresStore{pool: pool}
}

// classify maps driver errors to the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if pg.IsNotFoundError(err) {
		return errors.Join(ErrNotFound, err)
	}
	switch pg.Code(err) {
	case pg.CodeForeignKeyViolation:
		return errors.Join(ErrNotFound, err)
	case pg.CodeUniqueViolation:
		return errors.Join(ErrDuplicateKey, err)
	}
	return err
}

func affected(tag interface{ RowsAffected() int64 }, err error) error {
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const tenantColumns = `id, name, slug, quota_burst, quota_sustained, created_at, updated_at`

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var t tenant.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.QuotaBurst, &t.QuotaSustained, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, classify(err)
	}
	return &t, nil
}

func (s *PostgresStore) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Name, t.Slug, t.QuotaBurst, t.QuotaSustained, t.CreatedAt, t.UpdatedAt,
	)
	return classify(err)
}

func (s *PostgresStore) FindTenant(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return scanTenant(s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
}

func (s *PostgresStore) FindTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return scanTenant(s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug))
}

func (s *PostgresStore) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY created_at DESC, slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*tenant.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	return affected(s.pool.Exec(ctx, `
		UPDATE tenants SET name = $2, quota_burst = $3, quota_sustained = $4, updated_at = $5
		WHERE id = $1`,
		t.ID, t.Name, t.QuotaBurst, t.QuotaSustained, t.UpdatedAt,
	))
}

func (s *PostgresStore) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	return affected(s.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id))
}

const featureColumns = `id, tenant_id, key, name, description, created_at, updated_at`

func scanFeature(row pgx.Row) (*feature.Feature, error) {
	var f feature.Feature
	if err := row.Scan(&f.ID, &f.TenantID, &f.Key, &f.Name, &f.Description, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, classify(err)
	}
	return &f, nil
}

func (s *PostgresStore) CreateFeature(ctx context.Context, f *feature.Feature) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO features (`+featureColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.TenantID, f.Key, f.Name, f.Description, f.CreatedAt, f.UpdatedAt,
	)
	return classify(err)
}

func (s *PostgresStore) FindFeature(ctx context.Context, tenantID, id uuid.UUID) (*feature.Feature, error) {
	return scanFeature(s.pool.QueryRow(ctx,
		`SELECT `+featureColumns+` FROM features WHERE tenant_id = $1 AND id = $2`, tenantID, id))
}

func (s *PostgresStore) FindFeatureByKey(ctx context.Context, tenantID uuid.UUID, key string) (*feature.Feature, error) {
	return scanFeature(s.pool.QueryRow(ctx,
		`SELECT `+featureColumns+` FROM features WHERE tenant_id = $1 AND key = $2`, tenantID, key))
}

func (s *PostgresStore) UpdateFeature(ctx context.Context, f *feature.Feature) error {
	return affected(s.pool.Exec(ctx, `
		UPDATE features SET name = $3, description = $4, updated_at = $5
		WHERE tenant_id = $1 AND id = $2`,
		f.TenantID, f.ID, f.Name, f.Description, f.UpdatedAt,
	))
}

func (s *PostgresStore) DeleteFeature(ctx context.Context, tenantID, id uuid.UUID) error {
	return affected(s.pool.Exec(ctx, `DELETE FROM features WHERE tenant_id = $1 AND id = $2`, tenantID, id))
}

// likePattern escapes LIKE metacharacters so search is a plain substring.
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(search) + "%"
}

func (s *PostgresStore) ListFeatures(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]*feature.Feature, int, error) {
	opts = opts.Normalize()

	where := `tenant_id = $1`
	args := []any{tenantID}
	if opts.Search != "" {
		where += ` AND (key ILIKE $2 OR name ILIKE $2)`
		args = append(args, likePattern(opts.Search))
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM features WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM features WHERE %s ORDER BY created_at DESC, key LIMIT %d OFFSET %d`,
		featureColumns, where, opts.Limit, opts.Offset())
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*feature.Feature{}
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, f)
	}
	return out, total, rows.Err()
}

const flagColumns = `id, tenant_id, feature_id, env, enabled, strategy_type, strategy_config, version, created_at, updated_at`

func scanFlag(row pgx.Row) (*feature.Flag, error) {
	var (
		f          feature.Flag
		env, stype string
		rawConfig  []byte
	)
	if err := row.Scan(&f.ID, &f.TenantID, &f.FeatureID, &env, &f.Enabled, &stype, &rawConfig,
		&f.Version, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, classify(err)
	}
	f.Env = feature.Environment(env)
	f.StrategyType = feature.StrategyType(stype)

	cfg, err := feature.DecodeConfig(f.StrategyType, rawConfig)
	if err != nil {
		return nil, fmt.Errorf("flag %s: %w", f.ID, err)
	}
	f.StrategyConfig = cfg
	return &f, nil
}

func (s *PostgresStore) CreateFlag(ctx context.Context, f *feature.Flag) error {
	cfg, err := feature.EncodeConfig(f.StrategyConfig)
	if err != nil {
		return err
	}

	// The feature must belong to the tenant; the foreign key alone does not
	// check that.
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO feature_flags (`+flagColumns+`)
		SELECT $1, $2, $3, $4, $5, $6, $7, 1, $8, $9
		WHERE EXISTS (SELECT 1 FROM features WHERE id = $3 AND tenant_id = $2)`,
		f.ID, f.TenantID, f.FeatureID, string(f.Env), f.Enabled, string(f.StrategyType), []byte(cfg),
		f.CreatedAt, f.UpdatedAt,
	)
	if err := affected(tag, err); err != nil {
		return err
	}
	f.Version = 1
	return nil
}

func (s *PostgresStore) FindFlag(ctx context.Context, tenantID, featureID uuid.UUID, env feature.Environment) (*feature.Flag, error) {
	return scanFlag(s.pool.QueryRow(ctx,
		`SELECT `+flagColumns+` FROM feature_flags WHERE tenant_id = $1 AND feature_id = $2 AND env = $3`,
		tenantID, featureID, string(env)))
}

func (s *PostgresStore) UpdateFlag(ctx context.Context, f *feature.Flag, expectedVersion int) error {
	cfg, err := feature.EncodeConfig(f.StrategyConfig)
	if err != nil {
		return err
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE feature_flags
		SET enabled = $4, strategy_type = $5, strategy_config = $6, updated_at = $7, version = version + 1
		WHERE tenant_id = $1 AND feature_id = $2 AND env = $3 AND ($8 = 0 OR version = $8)
		RETURNING id, version, created_at`,
		f.TenantID, f.FeatureID, string(f.Env), f.Enabled, string(f.StrategyType), []byte(cfg), f.UpdatedAt,
		expectedVersion,
	)
	err = row.Scan(&f.ID, &f.Version, &f.CreatedAt)
	if err == nil {
		return nil
	}
	if !pg.IsNotFoundError(err) {
		return err
	}

	// Nothing matched: either the flag is gone or the version moved on.
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM feature_flags WHERE tenant_id = $1 AND feature_id = $2 AND env = $3)`,
		f.TenantID, f.FeatureID, string(f.Env),
	).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrVersionMismatch
	}
	return ErrNotFound
}

func (s *PostgresStore) DeleteFlag(ctx context.Context, tenantID, featureID uuid.UUID, env feature.Environment) error {
	return affected(s.pool.Exec(ctx,
		`DELETE FROM feature_flags WHERE tenant_id = $1 AND feature_id = $2 AND env = $3`,
		tenantID, featureID, string(env)))
}

const envOrder = `CASE env WHEN 'DEV' THEN 0 WHEN 'STAGING' THEN 1 ELSE 2 END`

func (s *PostgresStore) ListFlagsForFeature(ctx context.Context, tenantID, featureID uuid.UUID) ([]*feature.Flag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+flagColumns+` FROM feature_flags WHERE tenant_id = $1 AND feature_id = $2 ORDER BY `+envOrder,
		tenantID, featureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*feature.Flag{}
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListFeaturesWithFlags(ctx context.Context, tenantID uuid.UUID, envs []feature.Environment, keys []string) ([]*feature.FeatureWithFlags, error) {
	if len(envs) == 0 {
		envs = feature.Environments
	}
	envNames := make([]string, len(envs))
	for i, e := range envs {
		envNames[i] = string(e)
	}
	if keys == nil {
		keys = []string{}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+featureColumns+` FROM features
		WHERE tenant_id = $1 AND (cardinality($2::text[]) = 0 OR key = ANY($2::text[]))
		ORDER BY key`,
		tenantID, keys)
	if err != nil {
		return nil, err
	}
	var (
		out  []*feature.FeatureWithFlags
		byID = map[uuid.UUID]*feature.FeatureWithFlags{}
		ids  []uuid.UUID
	)
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		fw := &feature.FeatureWithFlags{Feature: *f, Flags: []*feature.Flag{}}
		out = append(out, fw)
		byID[f.ID] = fw
		ids = append(ids, f.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	flagRows, err := s.pool.Query(ctx, `
		SELECT `+flagColumns+` FROM feature_flags
		WHERE tenant_id = $1 AND feature_id = ANY($2) AND env = ANY($3::text[])
		ORDER BY feature_id, `+envOrder,
		tenantID, ids, envNames)
	if err != nil {
		return nil, err
	}
	defer flagRows.Close()

	for flagRows.Next() {
		fl, err := scanFlag(flagRows)
		if err != nil {
			return nil, err
		}
		if fw, ok := byID[fl.FeatureID]; ok {
			fw.Flags = append(fw.Flags, fl)
		}
	}
	return out, flagRows.Err()
}
