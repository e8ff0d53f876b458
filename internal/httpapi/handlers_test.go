package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/erayaindia/eraya-ops-hub/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	srv := &Server{Store: store.NewMemoryDemo()}
	return srv.Routes()
}

func doForm(t *testing.T, router http.Handler, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) listEnvelope {
	t.Helper()
	var env listEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	return env
}

func TestListClampsParams(t *testing.T) {
	router := newTestRouter(t)

	// Bad page, bad limit, unknown sort and order all fall back to defaults.
	req := httptest.NewRequest("GET", "/api/users/?page=0&limit=37&sort=password_hash&order=sideways", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status %d", rec.Code)
	}
	env := decodePage(t, rec)
	if env.Page != 1 || env.Limit != 10 {
		t.Fatalf("clamp: page=%d limit=%d", env.Page, env.Limit)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("missing no-store header: %q", cc)
	}
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Fatal("missing correlation id header")
	}
}

func TestListSearchAndFilter(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/users/?q=asha", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	env := decodePage(t, rec)
	if env.Total != 1 || env.Items[0]["name"] != "Asha Verma" {
		t.Fatalf("search: %+v", env)
	}

	req = httptest.NewRequest("GET", "/api/users/?role=admin&status=active", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	env = decodePage(t, rec)
	for _, item := range env.Items {
		if item["role"] != "admin" || item["status"] != "active" {
			t.Fatalf("filter leaked row: %v", item)
		}
	}
	if env.Total != 1 {
		t.Fatalf("filter total=%d", env.Total)
	}
}

func TestCreateGetUpdateDelete(t *testing.T) {
	router := newTestRouter(t)

	rec := doForm(t, router, "POST", "/api/users/", url.Values{
		"name":     {"New User"},
		"email":    {"new@erayastyle.com"},
		"password": {"secret123"},
		"role":     {"employee"},
		"status":   {"active"},
	})
	if rec.Code != 200 {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		OK bool   `json:"ok"`
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil || !created.OK || created.ID == "" {
		t.Fatalf("create envelope: %+v err=%v", created, err)
	}

	req := httptest.NewRequest("GET", "/api/users/"+created.ID, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, req)
	var got struct {
		OK   bool           `json:"ok"`
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(getRec.Body).Decode(&got); err != nil || !got.OK {
		t.Fatalf("get envelope: %+v err=%v", got, err)
	}
	if got.Data["name"] != "New User" {
		t.Fatalf("get data: %v", got.Data)
	}
	if _, leaked := got.Data["password_hash"]; leaked {
		t.Fatal("password hash leaked in response")
	}

	rec = doForm(t, router, "PATCH", "/api/users/"+created.ID, url.Values{"role": {"manager"}})
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest("DELETE", "/api/users/"+created.ID, nil)
	delRec := httptest.NewRecorder()
	router.ServeHTTP(delRec, req)
	if delRec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", delRec.Code)
	}

	// Second delete is a 404, clients treat it as already gone.
	delRec = httptest.NewRecorder()
	router.ServeHTTP(delRec, httptest.NewRequest("DELETE", "/api/users/"+created.ID, nil))
	if delRec.Code != http.StatusNotFound {
		t.Fatalf("second delete status %d", delRec.Code)
	}
}

func TestCreateValidation(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"missing name", url.Values{"email": {"x@y.com"}, "password": {"secret1"}}, "Name is required"},
		{"bad email", url.Values{"name": {"X"}, "email": {"not-an-email"}, "password": {"secret1"}}, "Invalid email"},
		{"short password", url.Values{"name": {"X"}, "email": {"x@y.com"}, "password": {"abc"}}, "at least 6"},
		{"bad role", url.Values{"name": {"X"}, "email": {"x@y.com"}, "password": {"secret1"}, "role": {"root"}}, "invalid role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doForm(t, router, "POST", "/api/users/", tt.form)
			if rec.Code != 400 {
				t.Fatalf("status %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Fatalf("body %q missing %q", rec.Body.String(), tt.want)
			}
		})
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	router := newTestRouter(t)

	rec := doForm(t, router, "POST", "/api/users/", url.Values{
		"name":     {"Imposter"},
		"email":    {"asha@erayastyle.com"},
		"password": {"secret123"},
	})
	if rec.Code != 400 {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Email already exists") {
		t.Fatalf("body: %s", rec.Body.String())
	}
}

func TestUpdateUnknownID(t *testing.T) {
	router := newTestRouter(t)
	rec := doForm(t, router, "PATCH", "/api/users/nope", url.Values{"role": {"admin"}})
	if rec.Code != 404 {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/users/stats/statistics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("status %d", rec.Code)
	}
	var env struct {
		OK   bool        `json:"ok"`
		Data store.Stats `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil || !env.OK {
		t.Fatalf("envelope: %+v err=%v", env, err)
	}
	if env.Data.Total == 0 || env.Data.Admins == 0 {
		t.Fatalf("stats empty: %+v", env.Data)
	}
}

func TestTicketRoutes(t *testing.T) {
	router := newTestRouter(t)

	rec := doForm(t, router, "POST", "/api/tickets/", url.Values{
		"full_name": {"Test Caller"},
		"email":     {"caller@example.com"},
		"summary":   {"Broken clasp on pendant"},
		"status":    {"open"},
		"priority":  {"high"},
	})
	if rec.Code != 200 {
		t.Fatalf("create ticket: %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest("GET", "/api/tickets/?status=open&sort=ticket_id&order=asc", nil)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, req)
	env := decodePage(t, listRec)
	if env.Total == 0 {
		t.Fatal("no open tickets listed")
	}
	for _, item := range env.Items {
		if item["ticket_id"] == nil {
			t.Fatalf("ticket missing id: %v", item)
		}
	}
}
