// internal/dns/cloudflare_test.go
//
// Exercises the Cloudflare client against an httptest server: idempotent
// create (list hit short-circuits the POST), status mapping, and the
// delete-absent-is-success rule.

package dns

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yanizio/forge/internal/fault"
)

func newTestServer(t *testing.T, h http.HandlerFunc) (*httptest.Server, *Cloudflare) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, NewCloudflare(srv.URL, "zone1", "token", "sites.forge.test")
}

func TestCreateRecord_New(t *testing.T) {
	var posted bool
	_, cf := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(listResponse{Success: true})
		case http.MethodPost:
			posted = true
			var req createRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Hostname != "shop.example.com" {
				t.Errorf("hostname = %q", req.Hostname)
			}
			json.NewEncoder(w).Encode(singleResponse{
				Success: true,
				Result:  customHostname{ID: "R1", Status: "pending"},
			})
		}
	})

	ref, err := cf.CreateRecord(context.Background(), "shop.example.com", "dom-7")
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if ref != "R1" || !posted {
		t.Fatalf("ref = %q, posted = %v", ref, posted)
	}
}

func TestCreateRecord_Idempotent(t *testing.T) {
	_, cf := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			t.Fatal("POST issued although the hostname already exists")
		}
		json.NewEncoder(w).Encode(listResponse{
			Success: true,
			Result:  []customHostname{{ID: "R1", Hostname: "shop.example.com"}},
		})
	})

	ref, err := cf.CreateRecord(context.Background(), "shop.example.com", "dom-7")
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if ref != "R1" {
		t.Fatalf("ref = %q, want R1", ref)
	}
}

func TestRecordStatus_Mapping(t *testing.T) {
	cases := []struct {
		provider string
		want     RecordStatus
	}{
		{"active", StatusActive},
		{"pending", StatusPending},
		{"pending_deletion", StatusPending},
		{"blocked", StatusRejected},
	}
	for _, tc := range cases {
		_, cf := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/R1") {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			json.NewEncoder(w).Encode(singleResponse{
				Success: true,
				Result:  customHostname{ID: "R1", Status: tc.provider},
			})
		})
		got, err := cf.RecordStatus(context.Background(), "R1")
		if err != nil {
			t.Fatalf("%s: %v", tc.provider, err)
		}
		if got != tc.want {
			t.Errorf("status %q mapped to %q, want %q", tc.provider, got, tc.want)
		}
	}
}

func TestDeleteRecord_AbsentIsSuccess(t *testing.T) {
	_, cf := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if err := cf.DeleteRecord(context.Background(), "gone"); err != nil {
		t.Fatalf("delete of absent record must succeed, got %v", err)
	}
}

func TestPermanentFailureClassification(t *testing.T) {
	_, cf := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := cf.CreateRecord(context.Background(), "shop.example.com", "dom-7")
	if err == nil {
		t.Fatal("expected error")
	}
	if fault.KindOf(err) != fault.Provider || fault.IsRetryable(err) {
		t.Fatalf("403 must be a permanent provider error, got %v", err)
	}
}
