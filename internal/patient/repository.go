package patient

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/emr-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/emr-service/internal/db"
)

const uniqueViolation = "23505"

const patientColumns = `id, mrn, first_name, last_name, date_of_birth, gender, phone, email, address,
	emergency_contact_name, emergency_contact_phone, allergies, dnr, clinical_record, is_active, created_at, updated_at`

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

func scanPatient(row rowScanner) (*Patient, error) {
	var p Patient
	var dob sql.NullTime
	var record []byte

	err := row.Scan(
		&p.ID,
		&p.MRN,
		&p.FirstName,
		&p.LastName,
		&dob,
		&p.Gender,
		&p.Phone,
		&p.Email,
		&p.Address,
		&p.EmergencyContactName,
		&p.EmergencyContactPhone,
		&p.Allergies,
		&p.DNR,
		&record,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dob.Valid {
		s := dob.Time.Format(dateLayout)
		p.DateOfBirth = &s
	}
	if len(record) > 0 {
		if err := json.Unmarshal(record, &p.ClinicalRecord); err != nil {
			return nil, fmt.Errorf("failed to decode clinical record: %w", err)
		}
	}
	return &p, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func encodeRecord(r *clinical.Record) ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (r *Repository) CreatePatient(ctx context.Context, schemaName string, req CreatePatientRequest) (*Patient, error) {
	conn, err := r.handle.DB(ctx)
	if err != nil {
		return nil, err
	}

	record, err := encodeRecord(req.ClinicalRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to encode clinical record: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.patients
		(id, mrn, first_name, last_name, date_of_birth, gender, phone, email, address,
		 emergency_contact_name, emergency_contact_phone, allergies, dnr, clinical_record, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, true, $15, $15)
		RETURNING %s
	`, pq.QuoteIdentifier(schemaName), patientColumns)

	p, err := scanPatient(conn.QueryRowContext(ctx, query,
		uuid.New(),
		req.MRN,
		req.FirstName,
		req.LastName,
		nullIfEmpty(req.DateOfBirth),
		req.Gender,
		req.Phone,
		req.Email,
		req.Address,
		req.EmergencyContactName,
		req.EmergencyContactPhone,
		req.Allergies,
		req.DNR,
		record,
		time.Now().UTC(),
	))
	if isUniqueViolation(err) {
		return nil, ErrDuplicateMRN
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert patient: %w", err)
	}
	return p, nil
}

// ListPatients retrieves patients with pagination. search matches names and MRN.
func (r *Repository) ListPatients(ctx context.Context, schemaName string, limit, offset int, search string) ([]Patient, int, error) {
	conn, err := r.handle.DB(ctx)
	if err != nil {
		return nil, 0, err
	}

	table := pq.QuoteIdentifier(schemaName) + ".patients"
	whereClause := "WHERE deleted_at IS NULL"
	var args []interface{}
	argIndex := 1

	if search != "" {
		whereClause += fmt.Sprintf(` AND (first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR mrn ILIKE $%[1]d
			OR (first_name || ' ' || last_name) ILIKE $%[1]d)`, argIndex)
		args = append(args, "%"+search+"%")
		argIndex++
	}

	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		%s
		ORDER BY last_name, first_name, id
		LIMIT $%d OFFSET $%d
	`, patientColumns, table, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	patients := []Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating patients: %w", err)
	}

	return patients, total, nil
}

func (r *Repository) GetPatient(ctx context.Context, schemaName, id string) (*Patient, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPatientNotFound
	}
	return r.getOne(ctx, schemaName, `id = $1`, id)
}

// GetByMRN looks a patient up by medical record number.
func (r *Repository) GetByMRN(ctx context.Context, schemaName, mrn string) (*Patient, error) {
	return r.getOne(ctx, schemaName, `mrn = $1`, mrn)
}

func (r *Repository) getOne(ctx context.Context, schemaName, cond string, arg interface{}) (*Patient, error) {
	conn, err := r.handle.DB(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s.patients WHERE %s AND deleted_at IS NULL`,
		patientColumns, pq.QuoteIdentifier(schemaName), cond)

	p, err := scanPatient(conn.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}
	return p, nil
}

func (r *Repository) UpdatePatient(ctx context.Context, schemaName, id string, req UpdatePatientRequest) (*Patient, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPatientNotFound
	}

	var updates []string
	var args []interface{}
	argIndex := 1

	set := func(column string, value interface{}) {
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}
	setString := func(column string, value *string) {
		if value != nil {
			set(column, *value)
		}
	}

	setString("mrn", req.MRN)
	setString("first_name", req.FirstName)
	setString("last_name", req.LastName)
	if req.DateOfBirth != nil {
		set("date_of_birth", nullIfEmpty(*req.DateOfBirth))
	}
	setString("gender", req.Gender)
	setString("phone", req.Phone)
	setString("email", req.Email)
	setString("address", req.Address)
	setString("emergency_contact_name", req.EmergencyContactName)
	setString("emergency_contact_phone", req.EmergencyContactPhone)
	setString("allergies", req.Allergies)
	if req.DNR != nil {
		set("dnr", *req.DNR)
	}
	if req.IsActive != nil {
		set("is_active", *req.IsActive)
	}
	if req.ClinicalRecord != nil {
		record, err := encodeRecord(req.ClinicalRecord)
		if err != nil {
			return nil, fmt.Errorf("failed to encode clinical record: %w", err)
		}
		set("clinical_record", record)
	}

	if len(updates) == 0 {
		return nil, ErrNoFieldsToUpdate
	}

	set("updated_at", time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE %s.patients
		SET %s
		WHERE id = $%d AND deleted_at IS NULL
		RETURNING %s
	`, pq.QuoteIdentifier(schemaName), strings.Join(updates, ", "), argIndex, patientColumns)

	conn, err := r.handle.DB(ctx)
	if err != nil {
		return nil, err
	}

	p, err := scanPatient(conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if isUniqueViolation(err) {
		return nil, ErrDuplicateMRN
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return p, nil
}

// DeletePatient soft deletes the patient and returns its MRN.
func (r *Repository) DeletePatient(ctx context.Context, schemaName, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrPatientNotFound
	}

	conn, err := r.handle.DB(ctx)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf(`
		UPDATE %s.patients
		SET deleted_at = $1, is_active = false, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
		RETURNING mrn
	`, pq.QuoteIdentifier(schemaName))

	var mrn string
	err = conn.QueryRowContext(ctx, query, time.Now().UTC(), id).Scan(&mrn)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrPatientNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to delete patient: %w", err)
	}
	return mrn, nil
}
