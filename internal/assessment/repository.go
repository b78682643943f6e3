package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/emr-service/internal/db"
)

type Repository struct {
	handle *db.Handle
	log    zerolog.Logger
}

func NewRepository(handle *db.Handle, log zerolog.Logger) *Repository {
	return &Repository{handle: handle, log: log}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// lockPatient checks that the patient exists. Inside a transaction it also
// locks the patient row so concurrent saves for one patient run in order.
func lockPatient(ctx context.Context, q queryer, schema, patientID string, forUpdate bool) error {
	if _, err := uuid.Parse(patientID); err != nil {
		return ErrPatientNotFound
	}

	query := fmt.Sprintf(`SELECT id FROM %s.patients WHERE id = $1 AND deleted_at IS NULL`, pq.QuoteIdentifier(schema))
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var id string
	err := q.QueryRowContext(ctx, query, patientID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPatientNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up patient: %w", err)
	}
	return nil
}

// Save applies writes and clears for one patient in a single transaction
// and returns the number of notes written.
func (r *Repository) Save(ctx context.Context, schema, patientID string, writes []Write, clears []string) (int, error) {
	conn, err := r.handle.DB(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockPatient(ctx, tx, schema, patientID, true); err != nil {
		return 0, err
	}

	table := pq.QuoteIdentifier(schema) + ".assessment_notes"
	upsert := fmt.Sprintf(`
		INSERT INTO %s (patient_id, body_part, section, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (patient_id, body_part) WHERE body_part IS NOT NULL
		DO UPDATE SET section = EXCLUDED.section,
		              content = EXCLUDED.content,
		              updated_at = EXCLUDED.updated_at
	`, table)
	deleteStructured := fmt.Sprintf(`DELETE FROM %s WHERE patient_id = $1 AND body_part = $2`, table)

	now := time.Now().UTC()
	touched := make([]string, 0, len(writes)+len(clears))
	for _, w := range writes {
		if _, err := tx.ExecContext(ctx, upsert, patientID, w.BodyPart, w.Section, w.Content, now); err != nil {
			return 0, fmt.Errorf("failed to save %s note: %w", w.BodyPart, err)
		}
		touched = append(touched, w.BodyPart)
	}

	for _, label := range clears {
		if _, err := tx.ExecContext(ctx, deleteStructured, patientID, label); err != nil {
			return 0, fmt.Errorf("failed to clear %s note: %w", label, err)
		}
		touched = append(touched, label)
	}

	if err := r.removeLegacy(ctx, tx, table, patientID, touched); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(writes), nil
}

// removeLegacy deletes the legacy notes of patientID that carry one of the
// given body parts. Prefixes are matched in Go with the same parser the
// read path uses.
func (r *Repository) removeLegacy(ctx context.Context, tx *sql.Tx, table, patientID string, labels []string) error {
	if len(labels) == 0 {
		return nil
	}

	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT id, content FROM %s WHERE patient_id = $1 AND body_part IS NULL`, table), patientID)
	if err != nil {
		return fmt.Errorf("failed to query legacy notes: %w", err)
	}
	var legacy []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Content); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan legacy note: %w", err)
		}
		legacy = append(legacy, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating legacy notes: %w", err)
	}

	ids := legacyNoteIDs(legacy, labels)
	if len(ids) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, table), pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to remove legacy notes: %w", err)
	}
	return nil
}

// ListNotes returns every note for the patient, newest first.
func (r *Repository) ListNotes(ctx context.Context, schema, patientID string) ([]Note, error) {
	conn, err := r.handle.DB(ctx)
	if err != nil {
		return nil, err
	}

	if err := lockPatient(ctx, conn, schema, patientID, false); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, patient_id, COALESCE(body_part, ''), section, content, created_at, updated_at
		FROM %s.assessment_notes
		WHERE patient_id = $1
		ORDER BY created_at DESC, id DESC
	`, pq.QuoteIdentifier(schema))

	rows, err := conn.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessment notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.PatientID, &n.BodyPart, &n.Section, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assessment note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assessment notes: %w", err)
	}
	return notes, nil
}
