package assessment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WailSalutem-Health-Care/emr-service/internal/apperr"
	"github.com/WailSalutem-Health-Care/emr-service/internal/logging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/tenant"
	"github.com/WailSalutem-Health-Care/emr-service/internal/testutil"
)

const testPatient = "5b1f0c3e-8a47-4d3a-9f5e-0d6b2f0a1c11"

var testTenant = &tenant.Tenant{ID: "tenant-1", SchemaName: "tenant_test_12345678"}

// memoryRepository keeps notes in memory with the same upsert semantics as
// the SQL repository.
type memoryRepository struct {
	mu       sync.Mutex
	patients map[string]bool
	notes    []Note
	nextID   int64
	clock    time.Time
	saveErr  error
}

func newMemoryRepository(patients ...string) *memoryRepository {
	m := &memoryRepository{patients: map[string]bool{}, clock: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	for _, p := range patients {
		m.patients[p] = true
	}
	return m
}

func (m *memoryRepository) addLegacy(patientID, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.clock = m.clock.Add(time.Second)
	m.notes = append(m.notes, Note{ID: m.nextID, PatientID: patientID, Content: content, CreatedAt: m.clock, UpdatedAt: m.clock})
}

func (m *memoryRepository) Save(ctx context.Context, schema, patientID string, writes []Write, clears []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return 0, m.saveErr
	}
	if !m.patients[patientID] {
		return 0, ErrPatientNotFound
	}

	m.clock = m.clock.Add(time.Second)
	for _, w := range writes {
		m.removeLegacy(patientID, w.BodyPart)
		updated := false
		for i := range m.notes {
			if m.notes[i].PatientID == patientID && m.notes[i].BodyPart == w.BodyPart {
				m.notes[i].Content = w.Content
				m.notes[i].Section = w.Section
				m.notes[i].UpdatedAt = m.clock
				updated = true
			}
		}
		if !updated {
			m.nextID++
			m.notes = append(m.notes, Note{ID: m.nextID, PatientID: patientID, BodyPart: w.BodyPart, Section: w.Section, Content: w.Content, CreatedAt: m.clock, UpdatedAt: m.clock})
		}
	}
	for _, label := range clears {
		m.removeLegacy(patientID, label)
		kept := m.notes[:0]
		for _, n := range m.notes {
			if !(n.PatientID == patientID && n.BodyPart == label) {
				kept = append(kept, n)
			}
		}
		m.notes = kept
	}
	return len(writes), nil
}

func (m *memoryRepository) removeLegacy(patientID, label string) {
	var own []Note
	for _, n := range m.notes {
		if n.PatientID == patientID {
			own = append(own, n)
		}
	}
	drop := map[int64]bool{}
	for _, id := range legacyNoteIDs(own, []string{label}) {
		drop[id] = true
	}

	kept := m.notes[:0]
	for _, n := range m.notes {
		if !drop[n.ID] {
			kept = append(kept, n)
		}
	}
	m.notes = kept
}

func (m *memoryRepository) ListNotes(ctx context.Context, schema, patientID string) ([]Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.patients[patientID] {
		return nil, ErrPatientNotFound
	}
	var out []Note
	for i := len(m.notes) - 1; i >= 0; i-- {
		if m.notes[i].PatientID == patientID {
			out = append(out, m.notes[i])
		}
	}
	return out, nil
}

func (m *memoryRepository) count(patientID, label string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, note := range m.notes {
		if note.PatientID == patientID && note.BodyPart == label {
			n++
		}
	}
	return n
}

func newTestService(repo RepositoryInterface) (*Service, *testutil.MockPublisher) {
	pub := testutil.NewMockPublisher()
	return NewService(repo, pub, nil, logging.Nop()), pub
}

func TestSaveFetch_RoundTrip(t *testing.T) {
	repo := newMemoryRepository(testPatient)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	result, err := svc.Save(ctx, testTenant, testPatient, map[string]string{"head": "mild bruising"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	got, err := svc.Fetch(ctx, testTenant, testPatient)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"head": "mild bruising"}, got)

	result, err = svc.Save(ctx, testTenant, testPatient, map[string]string{"head": ""})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, []string{"head"}, result.Cleared)

	got, err = svc.Fetch(ctx, testTenant, testPatient)
	require.NoError(t, err)
	assert.NotContains(t, got, "head")
}

func TestSave_Idempotent(t *testing.T) {
	repo := newMemoryRepository(testPatient)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Save(ctx, testTenant, testPatient, map[string]string{"leftArm": "laceration"})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, repo.count(testPatient, "LEFT ARM"))
	got, err := svc.Fetch(ctx, testTenant, testPatient)
	require.NoError(t, err)
	assert.Equal(t, "laceration", got["leftArm"])
}

func TestSave_ReplacesLegacyNotes(t *testing.T) {
	repo := newMemoryRepository(testPatient)
	repo.addLegacy(testPatient, "HEAD: old bruise")
	repo.addLegacy(testPatient, "[HEART] murmur")
	svc, _ := newTestService(repo)
	ctx := context.Background()

	got, err := svc.Fetch(ctx, testTenant, testPatient)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"head": "old bruise", "heart": "murmur"}, got)

	_, err = svc.Save(ctx, testTenant, testPatient, map[string]string{"head": "healing", "heart": " "})
	require.NoError(t, err)

	got, err = svc.Fetch(ctx, testTenant, testPatient)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"head": "healing"}, got)
}

func TestSave_ClearRemovesLooselyPrefixedLegacyNote(t *testing.T) {
	repo := newMemoryRepository(testPatient)
	repo.addLegacy(testPatient, "leftArm: fracture")
	repo.addLegacy(testPatient, "Left  Arm - older fracture")
	svc, _ := newTestService(repo)
	ctx := context.Background()

	got, err := svc.Fetch(ctx, testTenant, testPatient)
	require.NoError(t, err)
	assert.Equal(t, "fracture", got["leftArm"])

	_, err = svc.Save(ctx, testTenant, testPatient, map[string]string{"leftArm": ""})
	require.NoError(t, err)

	got, err = svc.Fetch(ctx, testTenant, testPatient)
	require.NoError(t, err)
	assert.NotContains(t, got, "leftArm")
}

func TestSave_UnknownKeyRejectsRequest(t *testing.T) {
	repo := newMemoryRepository(testPatient)
	svc, _ := newTestService(repo)

	_, err := svc.Save(context.Background(), testTenant, testPatient, map[string]string{"head": "ok", "tail": "no"})

	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	assert.Equal(t, 0, repo.count(testPatient, "HEAD"))
}

func TestSaveFetch_PatientNotFound(t *testing.T) {
	svc, _ := newTestService(newMemoryRepository())
	ctx := context.Background()

	_, err := svc.Save(ctx, testTenant, testPatient, map[string]string{"head": "x"})
	assert.True(t, errors.Is(err, ErrPatientNotFound))
	assert.Equal(t, 404, apperr.KindOf(err).Status())

	_, err = svc.Fetch(ctx, testTenant, testPatient)
	assert.True(t, errors.Is(err, ErrPatientNotFound))
}

func TestSave_PublishesEvent(t *testing.T) {
	svc, pub := newTestService(newMemoryRepository(testPatient))

	_, err := svc.Save(context.Background(), testTenant, testPatient, map[string]string{"rightShin": "swelling", "head": ""})
	require.NoError(t, err)

	event := pub.WaitForEvent(t, messaging.EventAssessmentSaved, time.Second)
	saved, ok := event.EventData.(messaging.AssessmentSavedEvent)
	require.True(t, ok, "unexpected event type %T", event.EventData)
	assert.Equal(t, "tenant-1", saved.TenantID)
	assert.Equal(t, testPatient, saved.Data.PatientID)
	assert.Equal(t, []string{"rightShin"}, saved.Data.Written)
	assert.Equal(t, []string{"head"}, saved.Data.Cleared)
}

func TestSave_RepositoryError(t *testing.T) {
	repo := newMemoryRepository(testPatient)
	repo.saveErr = errors.New("connection reset")
	svc, pub := newTestService(repo)

	_, err := svc.Save(context.Background(), testTenant, testPatient, map[string]string{"head": "x"})

	require.Error(t, err)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
	time.Sleep(20 * time.Millisecond)
	pub.AssertEventNotPublished(t, messaging.EventAssessmentSaved)
}
