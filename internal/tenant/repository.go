package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/emr-service/internal/db"
)

const uniqueViolation = "23505"

const tenantColumns = `id, name, subdomain, schema_name, contact_email, contact_phone, address, status, created_at, updated_at`

type Repository struct {
	handle *db.Handle
	log    zerolog.Logger
}

func NewRepository(handle *db.Handle, log zerolog.Logger) *Repository {
	return &Repository{handle: handle, log: log}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTenant(row rowScanner) (*Tenant, error) {
	var t Tenant
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Subdomain,
		&t.SchemaName,
		&t.ContactEmail,
		&t.ContactPhone,
		&t.Address,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTenant inserts the tenant and creates its schema in one transaction.
func (r *Repository) CreateTenant(ctx context.Context, req CreateTenantRequest) (*Tenant, error) {
	conn, err := r.handle.DB(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New()
	schemaName := SchemaNameFor(req.Subdomain, id)
	now := time.Now().UTC()

	query := `
		INSERT INTO emr.tenants
		(id, name, subdomain, schema_name, contact_email, contact_phone, address, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', $8, $8)
		RETURNING ` + tenantColumns

	t, err := scanTenant(tx.QueryRowContext(ctx, query,
		id,
		req.Name,
		req.Subdomain,
		schemaName,
		req.ContactEmail,
		req.ContactPhone,
		req.Address,
		now,
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicateSubdomain
		}
		return nil, fmt.Errorf("failed to insert tenant: %w", err)
	}

	// Schema definition lives in the migrations; the function owns it.
	if _, err := tx.ExecContext(ctx, "SELECT emr.create_tenant_schema($1)", schemaName); err != nil {
		return nil, fmt.Errorf("failed to create tenant schema: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.Info().Str("tenant_id", t.ID).Str("schema", schemaName).Msg("created tenant schema")
	return t, nil
}

// ListTenants retrieves tenants with pagination support
func (r *Repository) ListTenants(ctx context.Context, limit, offset int, filter ListFilter) ([]Tenant, int, error) {
	conn, err := r.handle.DB(ctx)
	if err != nil {
		return nil, 0, err
	}

	whereClause := "WHERE deleted_at IS NULL"
	var args []interface{}
	argIndex := 1

	if filter.Search != "" {
		whereClause += fmt.Sprintf(` AND (name ILIKE $%d OR subdomain ILIKE $%d OR contact_email ILIKE $%d)`, argIndex, argIndex, argIndex)
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	if filter.Status != "" && filter.Status != "all" {
		whereClause += fmt.Sprintf(` AND status = $%d`, argIndex)
		args = append(args, filter.Status)
		argIndex++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM emr.tenants ` + whereClause
	if err := conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tenants: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM emr.tenants
		%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d
	`, tenantColumns, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	tenants := []Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating tenants: %w", err)
	}

	return tenants, total, nil
}

func (r *Repository) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTenantNotFound
	}
	return r.getOne(ctx, `WHERE id = $1 AND deleted_at IS NULL`, id)
}

// GetBySubdomain returns the active tenant that owns subdomain.
func (r *Repository) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	return r.getOne(ctx, `WHERE subdomain = $1 AND status = 'active' AND deleted_at IS NULL`, subdomain)
}

// FirstActive returns the oldest active tenant.
func (r *Repository) FirstActive(ctx context.Context) (*Tenant, error) {
	return r.getOne(ctx, `WHERE status = 'active' AND deleted_at IS NULL ORDER BY created_at, id LIMIT 1`)
}

func (r *Repository) getOne(ctx context.Context, where string, args ...interface{}) (*Tenant, error) {
	conn, err := r.handle.DB(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + tenantColumns + ` FROM emr.tenants ` + where
	t, err := scanTenant(conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tenant: %w", err)
	}
	return t, nil
}

func (r *Repository) UpdateTenant(ctx context.Context, id string, req UpdateTenantRequest) (*Tenant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTenantNotFound
	}

	var updates []string
	var args []interface{}
	argIndex := 1

	set := func(column string, value *string) {
		if value == nil {
			return
		}
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, *value)
		argIndex++
	}
	set("name", req.Name)
	set("contact_email", req.ContactEmail)
	set("contact_phone", req.ContactPhone)
	set("address", req.Address)
	set("status", req.Status)

	if len(updates) == 0 {
		return nil, ErrNoFieldsToUpdate
	}

	updates = append(updates, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now().UTC())
	argIndex++
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE emr.tenants
		SET %s
		WHERE id = $%d AND deleted_at IS NULL
		RETURNING %s
	`, strings.Join(updates, ", "), argIndex, tenantColumns)

	conn, err := r.handle.DB(ctx)
	if err != nil {
		return nil, err
	}

	t, err := scanTenant(conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}
	return t, nil
}

// DeleteTenant soft deletes the tenant. The schema and its data are kept
// until the retention cleanup purges them.
func (r *Repository) DeleteTenant(ctx context.Context, id string) (*Tenant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTenantNotFound
	}

	conn, err := r.handle.DB(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE emr.tenants
		SET deleted_at = $1,
		    status = 'inactive',
		    updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
		RETURNING ` + tenantColumns

	t, err := scanTenant(conn.QueryRowContext(ctx, query, time.Now().UTC(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to soft delete tenant: %w", err)
	}
	return t, nil
}
