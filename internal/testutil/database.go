package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/WailSalutem-Health-Care/emr-service/internal/db"
	"github.com/WailSalutem-Health-Care/emr-service/internal/logging"
)

const defaultTestDSN = "host=localhost port=5432 user=emr password=emr dbname=emr_test sslmode=disable"

// SetupTestDB connects to the test database and applies the platform
// migrations. TEST_DATABASE_DSN overrides the local default.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	connStr := os.Getenv("TEST_DATABASE_DSN")
	if connStr == "" {
		connStr = defaultTestDSN
	}

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	if _, err := db.NewMigrator(sqlDB, logging.Nop()).Up(context.Background()); err != nil {
		sqlDB.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return sqlDB
}

// SetupTestHandle is SetupTestDB wrapped in a db.Handle, closed when the
// test ends.
func SetupTestHandle(t *testing.T) (*db.Handle, *sql.DB) {
	t.Helper()

	sqlDB := SetupTestDB(t)
	h := db.Wrap(sqlDB)
	t.Cleanup(func() {
		CleanupTestDB(t, sqlDB)
		h.Close()
	})
	return h, sqlDB
}

// CleanupTestDB removes tenants and drops every tenant schema.
func CleanupTestDB(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	if _, err := sqlDB.Exec("TRUNCATE TABLE emr.tenants"); err != nil {
		t.Logf("Warning: Failed to clean up tenants: %v", err)
	}

	rows, err := sqlDB.Query(`
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name LIKE 'tenant\_%'
	`)
	if err != nil {
		t.Logf("Warning: Failed to query tenant schemas: %v", err)
		return
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var schemaName string
		if err := rows.Scan(&schemaName); err != nil {
			continue
		}
		schemas = append(schemas, schemaName)
	}

	for _, schemaName := range schemas {
		if _, err := sqlDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(schemaName))); err != nil {
			t.Logf("Warning: Failed to drop schema %s: %v", schemaName, err)
		}
	}
}

// CreateTestTenant inserts an active tenant and creates its schema.
func CreateTestTenant(t *testing.T, sqlDB *sql.DB, subdomain string) (tenantID, schemaName string) {
	t.Helper()

	id := uuid.New()
	schemaName = fmt.Sprintf("tenant_test_%s", id.String()[:8])

	_, err := sqlDB.Exec(`
		INSERT INTO emr.tenants (id, name, subdomain, schema_name, status)
		VALUES ($1, $2, $3, $4, 'active')
	`, id, "Test "+subdomain, subdomain, schemaName)
	if err != nil {
		t.Fatalf("Failed to create test tenant: %v", err)
	}

	if _, err := sqlDB.Exec("SELECT emr.create_tenant_schema($1)", schemaName); err != nil {
		t.Fatalf("Failed to create tenant schema: %v", err)
	}

	return id.String(), schemaName
}

// CreateTestPatient inserts a patient into a tenant schema.
func CreateTestPatient(t *testing.T, sqlDB *sql.DB, schemaName, mrn string) string {
	t.Helper()

	id := uuid.NewString()
	query := fmt.Sprintf(`
		INSERT INTO %s.patients (id, mrn, first_name, last_name)
		VALUES ($1, $2, 'Test', 'Patient')
	`, pq.QuoteIdentifier(schemaName))
	if _, err := sqlDB.Exec(query, id, mrn); err != nil {
		t.Fatalf("Failed to create test patient: %v", err)
	}
	return id
}
