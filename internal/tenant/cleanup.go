package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/emr-service/internal/cache"
	"github.com/WailSalutem-Health-Care/emr-service/internal/db"
)

// RetentionPeriod defines how long deleted tenants are retained (3 years)
const RetentionPeriod = 3 * 365 * 24 * time.Hour

type expiredTenant struct {
	ID         string
	Subdomain  string
	SchemaName string
}

// CleanupService permanently removes tenants soft deleted longer than the
// retention period, schemas included.
type CleanupService struct {
	handle *db.Handle
	cache  cache.Cache
	log    zerolog.Logger
	now    func() time.Time
}

func NewCleanupService(handle *db.Handle, c cache.Cache, log zerolog.Logger) *CleanupService {
	if c == nil {
		c = cache.Noop{}
	}
	return &CleanupService{handle: handle, cache: c, log: log, now: time.Now}
}

// CleanupExpiredTenants hard deletes expired tenants and drops their schemas.
// A failure on one tenant is logged and the rest are still processed.
func (s *CleanupService) CleanupExpiredTenants(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-RetentionPeriod)
	s.log.Info().Time("cutoff", cutoff).Msg("starting cleanup of deleted tenants")

	conn, err := s.handle.DB(ctx)
	if err != nil {
		return 0, err
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT id, subdomain, schema_name
		FROM emr.tenants
		WHERE deleted_at IS NOT NULL
		AND deleted_at < $1
		ORDER BY deleted_at ASC
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to query expired tenants: %w", err)
	}
	defer rows.Close()

	var expired []expiredTenant
	for rows.Next() {
		var t expiredTenant
		if err := rows.Scan(&t.ID, &t.Subdomain, &t.SchemaName); err != nil {
			return 0, fmt.Errorf("failed to scan tenant: %w", err)
		}
		expired = append(expired, t)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating tenants: %w", err)
	}

	if len(expired) == 0 {
		s.log.Info().Msg("no expired tenants found")
		return 0, nil
	}

	deleted := 0
	for _, t := range expired {
		if err := s.purge(ctx, t); err != nil {
			s.log.Error().Err(err).Str("tenant_id", t.ID).Msg("failed to purge tenant")
			continue
		}
		deleted++
	}

	s.log.Info().Int("deleted", deleted).Int("expired", len(expired)).Msg("tenant cleanup finished")
	return deleted, nil
}

func (s *CleanupService) purge(ctx context.Context, t expiredTenant) error {
	conn, err := s.handle.DB(ctx)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM emr.tenants WHERE id = $1 AND deleted_at IS NOT NULL`, t.ID)
	if err != nil {
		return fmt.Errorf("failed to delete tenant record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrTenantNotFound
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(t.SchemaName))); err != nil {
		return fmt.Errorf("failed to drop schema %s: %w", t.SchemaName, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := s.cache.Delete(ctx, CacheKey(t.Subdomain)); err != nil {
		s.log.Warn().Err(err).Str("subdomain", t.Subdomain).Msg("failed to invalidate tenant cache")
	}

	s.log.Info().Str("tenant_id", t.ID).Str("schema", t.SchemaName).Msg("permanently deleted tenant")
	return nil
}

// ExpiredCount returns how many tenants are eligible for cleanup.
func (s *CleanupService) ExpiredCount(ctx context.Context) (int, error) {
	conn, err := s.handle.DB(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	err = conn.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM emr.tenants
		WHERE deleted_at IS NOT NULL
		AND deleted_at < $1
	`, s.now().Add(-RetentionPeriod)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count expired tenants: %w", err)
	}
	return count, nil
}
