package patient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/WailSalutem-Health-Care/emr-service/internal/logging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/emr-service/internal/tenant"
)

// mockService implements ServiceInterface for testing
type mockService struct {
	createPatientFunc   func(ctx context.Context, tn *tenant.Tenant, req CreatePatientRequest) (*Patient, error)
	listPatientsFunc    func(ctx context.Context, tn *tenant.Tenant, params pagination.Params) (*PaginatedPatientListResponse, error)
	getPatientFunc      func(ctx context.Context, tn *tenant.Tenant, id string) (*Patient, error)
	getPatientByMRNFunc func(ctx context.Context, tn *tenant.Tenant, mrn string) (*Patient, error)
	updatePatientFunc   func(ctx context.Context, tn *tenant.Tenant, id string, req UpdatePatientRequest) (*Patient, error)
	patchPatientFunc    func(ctx context.Context, tn *tenant.Tenant, id string, patch []byte, contentType string) (*Patient, error)
	deletePatientFunc   func(ctx context.Context, tn *tenant.Tenant, id string) error
}

func (m *mockService) CreatePatient(ctx context.Context, tn *tenant.Tenant, req CreatePatientRequest) (*Patient, error) {
	if m.createPatientFunc != nil {
		return m.createPatientFunc(ctx, tn, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) ListPatients(ctx context.Context, tn *tenant.Tenant, params pagination.Params) (*PaginatedPatientListResponse, error) {
	if m.listPatientsFunc != nil {
		return m.listPatientsFunc(ctx, tn, params)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) GetPatient(ctx context.Context, tn *tenant.Tenant, id string) (*Patient, error) {
	if m.getPatientFunc != nil {
		return m.getPatientFunc(ctx, tn, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) GetPatientByMRN(ctx context.Context, tn *tenant.Tenant, mrn string) (*Patient, error) {
	if m.getPatientByMRNFunc != nil {
		return m.getPatientByMRNFunc(ctx, tn, mrn)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) UpdatePatient(ctx context.Context, tn *tenant.Tenant, id string, req UpdatePatientRequest) (*Patient, error) {
	if m.updatePatientFunc != nil {
		return m.updatePatientFunc(ctx, tn, id, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) PatchPatient(ctx context.Context, tn *tenant.Tenant, id string, patch []byte, contentType string) (*Patient, error) {
	if m.patchPatientFunc != nil {
		return m.patchPatientFunc(ctx, tn, id, patch, contentType)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) DeletePatient(ctx context.Context, tn *tenant.Tenant, id string) error {
	if m.deletePatientFunc != nil {
		return m.deletePatientFunc(ctx, tn, id)
	}
	return errors.New("not implemented")
}

func withTenant(req *http.Request) *http.Request {
	return req.WithContext(tenant.WithTenant(req.Context(), testTenant))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	return body
}

// TestHandlerCreatePatient_Success tests successful patient creation
func TestHandlerCreatePatient_Success(t *testing.T) {
	mockSvc := &mockService{
		createPatientFunc: func(ctx context.Context, tn *tenant.Tenant, req CreatePatientRequest) (*Patient, error) {
			if tn.ID != testTenant.ID {
				t.Errorf("Expected tenant %q, got %q", testTenant.ID, tn.ID)
			}
			return &Patient{ID: testPatientID, MRN: req.MRN, FirstName: req.FirstName, LastName: req.LastName, IsActive: true, CreatedAt: time.Now()}, nil
		},
	}

	handler := NewHandler(mockSvc, logging.Nop())

	body, _ := json.Marshal(CreatePatientRequest{MRN: "MRN-1", FirstName: "John", LastName: "Doe"})
	req := withTenant(httptest.NewRequest(http.MethodPost, "/patients", bytes.NewReader(body)))
	rr := httptest.NewRecorder()
	handler.CreatePatient(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rr.Code)
	}

	var response PatientSuccessResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !response.Success {
		t.Error("Expected success to be true")
	}
	if response.Patient.FirstName != "John" {
		t.Errorf("Expected first name John, got %s", response.Patient.FirstName)
	}
}

// TestHandlerCreatePatient_NoTenant tests requests that reached the handler without a tenant
func TestHandlerCreatePatient_NoTenant(t *testing.T) {
	handler := NewHandler(&mockService{}, logging.Nop())

	req := httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	handler.CreatePatient(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

// TestHandlerCreatePatient_InvalidJSON tests malformed bodies
func TestHandlerCreatePatient_InvalidJSON(t *testing.T) {
	handler := NewHandler(&mockService{}, logging.Nop())

	req := withTenant(httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(`{invalid`)))
	rr := httptest.NewRecorder()
	handler.CreatePatient(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body["error"] != "validation_error" {
		t.Errorf("Expected validation_error, got %v", body["error"])
	}
}

// TestHandlerCreatePatient_DuplicateMRN tests the conflict mapping
func TestHandlerCreatePatient_DuplicateMRN(t *testing.T) {
	mockSvc := &mockService{
		createPatientFunc: func(ctx context.Context, tn *tenant.Tenant, req CreatePatientRequest) (*Patient, error) {
			return nil, ErrDuplicateMRN
		},
	}
	handler := NewHandler(mockSvc, logging.Nop())

	req := withTenant(httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(`{"mrn":"MRN-1","first_name":"A","last_name":"B"}`)))
	rr := httptest.NewRecorder()
	handler.CreatePatient(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rr.Code)
	}
}

// TestHandlerListPatients_Success tests the paginated listing
func TestHandlerListPatients_Success(t *testing.T) {
	mockSvc := &mockService{
		listPatientsFunc: func(ctx context.Context, tn *tenant.Tenant, params pagination.Params) (*PaginatedPatientListResponse, error) {
			if params.Page != 2 || params.Limit != 5 || params.Search != "doe" {
				t.Errorf("Unexpected params: %+v", params)
			}
			return &PaginatedPatientListResponse{
				Success:    true,
				Patients:   []Patient{{ID: testPatientID, FirstName: "John", LastName: "Doe"}},
				Pagination: pagination.Meta{CurrentPage: 2, PerPage: 5, TotalPages: 2, TotalRecords: 6},
			}, nil
		},
	}
	handler := NewHandler(mockSvc, logging.Nop())

	req := withTenant(httptest.NewRequest(http.MethodGet, "/patients?page=2&limit=5&search=doe", nil))
	rr := httptest.NewRecorder()
	handler.ListPatients(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var response PaginatedPatientListResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response.Patients) != 1 || response.Pagination.TotalRecords != 6 {
		t.Errorf("Unexpected response: %+v", response)
	}
}

// TestHandlerGetPatient_Success tests fetching a patient by id
func TestHandlerGetPatient_Success(t *testing.T) {
	mockSvc := &mockService{
		getPatientFunc: func(ctx context.Context, tn *tenant.Tenant, id string) (*Patient, error) {
			if id != testPatientID {
				t.Errorf("Expected id %q, got %q", testPatientID, id)
			}
			return storedPatient(), nil
		},
	}
	handler := NewHandler(mockSvc, logging.Nop())

	req := withTenant(httptest.NewRequest(http.MethodGet, "/patients/"+testPatientID, nil))
	req = mux.SetURLVars(req, map[string]string{"id": testPatientID})
	rr := httptest.NewRecorder()
	handler.GetPatient(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

// TestHandlerGetPatient_NotFound tests the not found mapping
func TestHandlerGetPatient_NotFound(t *testing.T) {
	mockSvc := &mockService{
		getPatientFunc: func(ctx context.Context, tn *tenant.Tenant, id string) (*Patient, error) {
			return nil, ErrPatientNotFound
		},
	}
	handler := NewHandler(mockSvc, logging.Nop())

	req := withTenant(httptest.NewRequest(http.MethodGet, "/patients/missing", nil))
	req = mux.SetURLVars(req, map[string]string{"id": "missing"})
	rr := httptest.NewRecorder()
	handler.GetPatient(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body["message"] != "patient not found" {
		t.Errorf("Expected 'patient not found', got %v", body["message"])
	}
}

// TestHandlerGetPatientByMRN_Success tests MRN lookups
func TestHandlerGetPatientByMRN_Success(t *testing.T) {
	mockSvc := &mockService{
		getPatientByMRNFunc: func(ctx context.Context, tn *tenant.Tenant, mrn string) (*Patient, error) {
			if mrn != "MRN-1001" {
				t.Errorf("Expected MRN-1001, got %q", mrn)
			}
			return storedPatient(), nil
		},
	}
	handler := NewHandler(mockSvc, logging.Nop())

	req := withTenant(httptest.NewRequest(http.MethodGet, "/patients/mrn/MRN-1001", nil))
	req = mux.SetURLVars(req, map[string]string{"mrn": "MRN-1001"})
	rr := httptest.NewRecorder()
	handler.GetPatientByMRN(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

// TestHandlerUpdatePatient_Success tests a PUT update
func TestHandlerUpdatePatient_Success(t *testing.T) {
	mockSvc := &mockService{
		updatePatientFunc: func(ctx context.Context, tn *tenant.Tenant, id string, req UpdatePatientRequest) (*Patient, error) {
			if req.Phone == nil || *req.Phone != "555-0101" {
				t.Errorf("Expected phone in request, got %v", req.Phone)
			}
			p := storedPatient()
			p.Phone = *req.Phone
			return p, nil
		},
	}
	handler := NewHandler(mockSvc, logging.Nop())

	req := withTenant(httptest.NewRequest(http.MethodPut, "/patients/"+testPatientID, strings.NewReader(`{"phone":"555-0101"}`)))
	req = mux.SetURLVars(req, map[string]string{"id": testPatientID})
	rr := httptest.NewRecorder()
	handler.UpdatePatient(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

// TestHandlerUpdatePatient_InvalidJSON tests malformed update bodies
func TestHandlerUpdatePatient_InvalidJSON(t *testing.T) {
	handler := NewHandler(&mockService{}, logging.Nop())

	req := withTenant(httptest.NewRequest(http.MethodPut, "/patients/"+testPatientID, strings.NewReader(`not json`)))
	req = mux.SetURLVars(req, map[string]string{"id": testPatientID})
	rr := httptest.NewRecorder()
	handler.UpdatePatient(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

// TestHandlerPatchPatient_PassesContentType tests that the raw patch reaches the service
func TestHandlerPatchPatient_PassesContentType(t *testing.T) {
	mockSvc := &mockService{
		patchPatientFunc: func(ctx context.Context, tn *tenant.Tenant, id string, patch []byte, contentType string) (*Patient, error) {
			if contentType != ContentTypeJSONPatch {
				t.Errorf("Expected content type %q, got %q", ContentTypeJSONPatch, contentType)
			}
			if string(patch) != `[{"op":"remove","path":"/phone"}]` {
				t.Errorf("Unexpected patch body: %s", patch)
			}
			return storedPatient(), nil
		},
	}
	handler := NewHandler(mockSvc, logging.Nop())

	req := withTenant(httptest.NewRequest(http.MethodPatch, "/patients/"+testPatientID, strings.NewReader(`[{"op":"remove","path":"/phone"}]`)))
	req.Header.Set("Content-Type", ContentTypeJSONPatch)
	req = mux.SetURLVars(req, map[string]string{"id": testPatientID})
	rr := httptest.NewRecorder()
	handler.PatchPatient(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

// TestHandlerDeletePatient_Success tests soft deletion
func TestHandlerDeletePatient_Success(t *testing.T) {
	deleted := false
	mockSvc := &mockService{
		deletePatientFunc: func(ctx context.Context, tn *tenant.Tenant, id string) error {
			deleted = id == testPatientID
			return nil
		},
	}
	handler := NewHandler(mockSvc, logging.Nop())

	req := withTenant(httptest.NewRequest(http.MethodDelete, "/patients/"+testPatientID, nil))
	req = mux.SetURLVars(req, map[string]string{"id": testPatientID})
	rr := httptest.NewRecorder()
	handler.DeletePatient(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}
	if !deleted {
		t.Error("Expected service delete to be called with the patient id")
	}
}

// TestHandlerDeletePatient_ServiceError tests that internal errors are hidden
func TestHandlerDeletePatient_ServiceError(t *testing.T) {
	mockSvc := &mockService{
		deletePatientFunc: func(ctx context.Context, tn *tenant.Tenant, id string) error {
			return errors.New("connection reset by peer")
		},
	}
	handler := NewHandler(mockSvc, logging.Nop())

	req := withTenant(httptest.NewRequest(http.MethodDelete, "/patients/"+testPatientID, nil))
	req = mux.SetURLVars(req, map[string]string{"id": testPatientID})
	rr := httptest.NewRecorder()
	handler.DeletePatient(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "connection reset") {
		t.Error("Expected internal error detail to be hidden")
	}
}
