//go:build integration

package e2e

import (
	"net/http"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/emr-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/testutil"
)

// TestE2E_TenantLifecycle tests provisioning, listing, updating and deleting a tenant
func TestE2E_TenantLifecycle(t *testing.T) {
	ts := SetupE2ETest(t)
	admin := ts.NewClient(ts.GenerateSuperAdminToken(t))

	created := ts.CreateTenant(t, "General Hospital", "general")
	if created.Subdomain != "general" {
		t.Errorf("Expected subdomain general, got %s", created.Subdomain)
	}
	if created.SchemaName == "" {
		t.Error("Expected a schema name to be assigned")
	}
	ts.MockPublisher.WaitForEvent(t, messaging.EventTenantProvisioned, 2*time.Second)

	listResp := admin.GET(t, "/admin/tenants?search=general")
	testutil.AssertStatusCode(t, listResp, http.StatusOK)
	var list struct {
		Tenants []struct {
			ID string `json:"id"`
		} `json:"tenants"`
	}
	testutil.DecodeJSON(t, listResp, &list)
	if len(list.Tenants) != 1 || list.Tenants[0].ID != created.ID {
		t.Errorf("Expected listing to contain only the new tenant, got %+v", list.Tenants)
	}

	updateResp := admin.PUT(t, "/admin/tenants/"+created.ID, map[string]interface{}{
		"name": "General Hospital East",
	})
	testutil.AssertStatusCode(t, updateResp, http.StatusOK)
	var updated struct {
		Tenant struct {
			Name string `json:"name"`
		} `json:"tenant"`
	}
	testutil.DecodeJSON(t, updateResp, &updated)
	if updated.Tenant.Name != "General Hospital East" {
		t.Errorf("Expected updated name, got %s", updated.Tenant.Name)
	}

	deleteResp := admin.DELETE(t, "/admin/tenants/"+created.ID)
	testutil.AssertStatusCode(t, deleteResp, http.StatusNoContent)
	ts.MockPublisher.WaitForEvent(t, messaging.EventTenantDeleted, 2*time.Second)

	getResp := admin.GET(t, "/admin/tenants/"+created.ID)
	testutil.AssertStatusCode(t, getResp, http.StatusNotFound)
}

// TestE2E_TenantDuplicateSubdomain tests that a subdomain can only be claimed once
func TestE2E_TenantDuplicateSubdomain(t *testing.T) {
	ts := SetupE2ETest(t)
	admin := ts.NewClient(ts.GenerateSuperAdminToken(t))

	ts.CreateTenant(t, "North Clinic", "north")

	resp := admin.POST(t, "/admin/tenants", map[string]interface{}{
		"name":          "North Clinic Again",
		"subdomain":     "north",
		"contact_email": "again@north.example.com",
	})
	testutil.AssertStatusCode(t, resp, http.StatusConflict)
}

// TestE2E_TenantAdminCannotManageTenants tests that tenant administration is reserved for SUPER_ADMIN
func TestE2E_TenantAdminCannotManageTenants(t *testing.T) {
	ts := SetupE2ETest(t)
	created := ts.CreateTenant(t, "South Clinic", "south")

	client := ts.NewClient(ts.GenerateTenantAdminToken(t, created.ID))

	resp := client.GET(t, "/admin/tenants")
	testutil.AssertStatusCode(t, resp, http.StatusForbidden)

	resp = client.POST(t, "/admin/tenants", map[string]interface{}{
		"name":      "Rogue",
		"subdomain": "rogue",
	})
	testutil.AssertStatusCode(t, resp, http.StatusForbidden)
}

// TestE2E_DeletedTenantStopsResolving tests that requests to a deleted tenant's host are rejected
func TestE2E_DeletedTenantStopsResolving(t *testing.T) {
	ts := SetupE2ETest(t)
	created := ts.CreateTenant(t, "West Clinic", "west")

	super := ts.NewClient(ts.GenerateSuperAdminToken(t))
	scoped := super.ForHost(HostFor("west"))

	// Prime the lookup cache.
	testutil.AssertStatusCode(t, scoped.GET(t, "/patients"), http.StatusOK)

	testutil.AssertStatusCode(t, super.DELETE(t, "/admin/tenants/"+created.ID), http.StatusNoContent)

	testutil.AssertStatusCode(t, scoped.GET(t, "/patients"), http.StatusNotFound)
}
