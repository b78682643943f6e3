//go:build integration

package e2e

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/WailSalutem-Health-Care/emr-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/testutil"
)

// TestE2E_AssessmentSaveAndFetch tests that saved notes come back keyed by body part
func TestE2E_AssessmentSaveAndFetch(t *testing.T) {
	ts := SetupE2ETest(t)
	tn := ts.CreateTenant(t, "River Hospital", "river")
	client := ts.NewClient(ts.GenerateNurseToken(t, tn.ID)).ForHost(HostFor("river"))
	patientID := testutil.CreateTestPatient(t, ts.DB, tn.SchemaName, "MRN-A1")

	path := "/patients/" + patientID + "/assessment"

	resp := client.POST(t, path, map[string]string{
		"head":    "mild bruising",
		"leftArm": "abrasion on forearm",
	})
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var saved struct {
		Created int `json:"created"`
	}
	testutil.DecodeJSON(t, resp, &saved)
	if saved.Created != 2 {
		t.Errorf("Expected 2 created notes, got %d", saved.Created)
	}
	ts.MockPublisher.WaitForEvent(t, messaging.EventAssessmentSaved, 2*time.Second)

	// Overwrite one note and clear the other.
	resp = client.POST(t, path, map[string]string{
		"head":    "bruising resolving",
		"leftArm": "  ",
	})
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	testutil.DecodeJSON(t, resp, &saved)
	if saved.Created != 1 {
		t.Errorf("Expected 1 written note, got %d", saved.Created)
	}

	getResp := client.GET(t, path)
	testutil.AssertStatusCode(t, getResp, http.StatusOK)
	var notes map[string]string
	testutil.DecodeJSON(t, getResp, &notes)

	if len(notes) != 1 || notes["head"] != "bruising resolving" {
		t.Errorf("Expected only the updated head note, got %v", notes)
	}
}

// TestE2E_AssessmentLegacyNotes tests that prefix-formatted notes are read and replaced
func TestE2E_AssessmentLegacyNotes(t *testing.T) {
	ts := SetupE2ETest(t)
	tn := ts.CreateTenant(t, "Old Town Clinic", "oldtown")
	client := ts.NewClient(ts.GenerateClinicianToken(t, tn.ID)).ForHost(HostFor("oldtown"))
	patientID := testutil.CreateTestPatient(t, ts.DB, tn.SchemaName, "MRN-L1")

	insert := fmt.Sprintf(`INSERT INTO %s.assessment_notes (patient_id, content) VALUES ($1, $2)`, pq.QuoteIdentifier(tn.SchemaName))
	for _, content := range []string{"HEAD: old scar", "[LEFT ARM] cast removed"} {
		if _, err := ts.DB.Exec(insert, patientID, content); err != nil {
			t.Fatalf("Failed to insert legacy note: %v", err)
		}
	}

	path := "/patients/" + patientID + "/assessment"

	getResp := client.GET(t, path)
	testutil.AssertStatusCode(t, getResp, http.StatusOK)
	var notes map[string]string
	testutil.DecodeJSON(t, getResp, &notes)
	if notes["head"] != "old scar" || notes["leftArm"] != "cast removed" {
		t.Errorf("Expected legacy notes to be parsed, got %v", notes)
	}

	resp := client.POST(t, path, map[string]string{"head": "scar faded"})
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()

	getResp = client.GET(t, path)
	testutil.AssertStatusCode(t, getResp, http.StatusOK)
	testutil.DecodeJSON(t, getResp, &notes)
	if notes["head"] != "scar faded" {
		t.Errorf("Expected structured note to replace legacy head note, got %q", notes["head"])
	}
	if notes["leftArm"] != "cast removed" {
		t.Errorf("Expected untouched legacy note to remain, got %q", notes["leftArm"])
	}
}

// TestE2E_AssessmentValidation tests unknown body parts and missing patients
func TestE2E_AssessmentValidation(t *testing.T) {
	ts := SetupE2ETest(t)
	tn := ts.CreateTenant(t, "Valley Hospital", "valley")
	client := ts.NewClient(ts.GenerateClinicianToken(t, tn.ID)).ForHost(HostFor("valley"))
	patientID := testutil.CreateTestPatient(t, ts.DB, tn.SchemaName, "MRN-V1")

	resp := client.POST(t, "/patients/"+patientID+"/assessment", map[string]string{"tail": "wagging"})
	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)

	missing := "/patients/00000000-0000-0000-0000-000000000000/assessment"
	testutil.AssertStatusCode(t, client.GET(t, missing), http.StatusNotFound)
	testutil.AssertStatusCode(t, client.POST(t, missing, map[string]string{"head": "x"}), http.StatusNotFound)
}
