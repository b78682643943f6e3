//go:build integration

package e2e

import (
	"net/http"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/emr-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/testutil"
)

type patientBody struct {
	ID             string                 `json:"id"`
	MRN            string                 `json:"mrn"`
	FirstName      string                 `json:"first_name"`
	LastName       string                 `json:"last_name"`
	DNR            bool                   `json:"dnr"`
	ClinicalRecord map[string]interface{} `json:"clinical_record"`
}

func createPatient(t *testing.T, client *testutil.HTTPTestClient, mrn, first, last string) patientBody {
	t.Helper()

	resp := client.POST(t, "/patients", map[string]interface{}{
		"mrn":           mrn,
		"first_name":    first,
		"last_name":     last,
		"date_of_birth": "1980-04-12",
		"clinical_record": map[string]interface{}{
			"medications": []map[string]string{{"name": "metformin", "dosage": "500mg"}},
		},
	})
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var result struct {
		Patient patientBody `json:"patient"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Patient
}

// TestE2E_PatientLifecycle tests the full patient flow inside one tenant
func TestE2E_PatientLifecycle(t *testing.T) {
	ts := SetupE2ETest(t)
	tn := ts.CreateTenant(t, "Central Hospital", "central")
	client := ts.NewClient(ts.GenerateClinicianToken(t, tn.ID)).ForHost(HostFor("central"))

	p := createPatient(t, client, "MRN-1001", "Ada", "Lovelace")
	if p.ID == "" {
		t.Fatal("Expected patient ID")
	}
	ts.MockPublisher.WaitForEvent(t, messaging.EventPatientCreated, 2*time.Second)

	getResp := client.GET(t, "/patients/"+p.ID)
	testutil.AssertStatusCode(t, getResp, http.StatusOK)
	var got struct {
		Patient patientBody `json:"patient"`
	}
	testutil.DecodeJSON(t, getResp, &got)
	if got.Patient.MRN != "MRN-1001" {
		t.Errorf("Expected MRN MRN-1001, got %s", got.Patient.MRN)
	}
	if _, ok := got.Patient.ClinicalRecord["medications"]; !ok {
		t.Errorf("Expected clinical record to keep medications, got %v", got.Patient.ClinicalRecord)
	}

	byMRN := client.GET(t, "/patients/mrn/MRN-1001")
	testutil.AssertStatusCode(t, byMRN, http.StatusOK)
	byMRN.Body.Close()

	listResp := client.GET(t, "/patients?search=love")
	testutil.AssertStatusCode(t, listResp, http.StatusOK)
	var list struct {
		Patients []patientBody `json:"patients"`
	}
	testutil.DecodeJSON(t, listResp, &list)
	if len(list.Patients) != 1 {
		t.Errorf("Expected 1 patient in search results, got %d", len(list.Patients))
	}

	patchResp := client.PATCH(t, "/patients/"+p.ID, `{"dnr": true}`, "application/merge-patch+json")
	testutil.AssertStatusCode(t, patchResp, http.StatusOK)
	var patched struct {
		Patient patientBody `json:"patient"`
	}
	testutil.DecodeJSON(t, patchResp, &patched)
	if !patched.Patient.DNR {
		t.Error("Expected DNR to be set by merge patch")
	}

	jsonPatch := `[{"op":"replace","path":"/first_name","value":"Augusta"}]`
	patchResp = client.PATCH(t, "/patients/"+p.ID, jsonPatch, "application/json-patch+json")
	testutil.AssertStatusCode(t, patchResp, http.StatusOK)
	testutil.DecodeJSON(t, patchResp, &patched)
	if patched.Patient.FirstName != "Augusta" {
		t.Errorf("Expected first name Augusta, got %s", patched.Patient.FirstName)
	}
	if !patched.Patient.DNR {
		t.Error("Expected earlier patch to be preserved")
	}

	deleteResp := client.DELETE(t, "/patients/"+p.ID)
	testutil.AssertStatusCode(t, deleteResp, http.StatusNoContent)
	ts.MockPublisher.WaitForEvent(t, messaging.EventPatientDeleted, 2*time.Second)

	testutil.AssertStatusCode(t, client.GET(t, "/patients/"+p.ID), http.StatusNotFound)
}

// TestE2E_PatientDuplicateMRN tests that an MRN is unique within a tenant
func TestE2E_PatientDuplicateMRN(t *testing.T) {
	ts := SetupE2ETest(t)
	tn := ts.CreateTenant(t, "Lake Hospital", "lake")
	client := ts.NewClient(ts.GenerateClinicianToken(t, tn.ID)).ForHost(HostFor("lake"))

	createPatient(t, client, "MRN-7", "Grace", "Hopper")

	resp := client.POST(t, "/patients", map[string]interface{}{
		"mrn":        "MRN-7",
		"first_name": "Someone",
		"last_name":  "Else",
	})
	testutil.AssertStatusCode(t, resp, http.StatusConflict)
}

// TestE2E_NurseCannotCreatePatient tests role permissions on the patient routes
func TestE2E_NurseCannotCreatePatient(t *testing.T) {
	ts := SetupE2ETest(t)
	tn := ts.CreateTenant(t, "Hill Hospital", "hill")
	nurse := ts.NewClient(ts.GenerateNurseToken(t, tn.ID)).ForHost(HostFor("hill"))

	resp := nurse.POST(t, "/patients", map[string]interface{}{
		"mrn":        "MRN-9",
		"first_name": "Blocked",
		"last_name":  "Nurse",
	})
	testutil.AssertStatusCode(t, resp, http.StatusForbidden)

	testutil.AssertStatusCode(t, nurse.GET(t, "/patients"), http.StatusOK)
}

// TestE2E_PatientRejectsInvalidPatch tests that a patch producing an invalid patient is refused
func TestE2E_PatientRejectsInvalidPatch(t *testing.T) {
	ts := SetupE2ETest(t)
	tn := ts.CreateTenant(t, "Bay Hospital", "bay")
	client := ts.NewClient(ts.GenerateClinicianToken(t, tn.ID)).ForHost(HostFor("bay"))

	p := createPatient(t, client, "MRN-20", "Alan", "Turing")

	resp := client.PATCH(t, "/patients/"+p.ID, `{"last_name": ""}`, "application/merge-patch+json")
	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)

	resp = client.PATCH(t, "/patients/"+p.ID, `[{"op":"test","path":"/first_name","value":"Nobody"}]`, "application/json-patch+json")
	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)
}
