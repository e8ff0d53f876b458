package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erayaindia/eraya-ops-hub/internal/query"
)

func newTestResource(t *testing.T, handler http.HandlerFunc) *Resource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewResource(NewClient(srv.URL), "/api/users")
}

func TestListSendsCacheDefeatingRequest(t *testing.T) {
	var gotCacheControl, gotTS string
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		gotCacheControl = r.Header.Get("Cache-Control")
		gotTS = r.URL.Query().Get("_ts")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[],"total":0,"page":1,"limit":10,"pages":0}`))
	})

	if _, err := res.List(context.Background(), query.New(query.Users())); err != nil {
		t.Fatalf("List: %v", err)
	}
	if gotCacheControl != "no-store, must-revalidate" {
		t.Errorf("Cache-Control = %q", gotCacheControl)
	}
	if gotTS == "" {
		t.Error("missing cache-busting _ts param")
	}
}

func TestListDecodesPage(t *testing.T) {
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":"u1","name":"Aarav"},{"id":"u2","name":"Priya"}],"total":23,"page":1,"limit":10,"pages":3}`))
	})

	page, err := res.List(context.Background(), query.New(query.Users()))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 2 || page.Total != 23 || page.Pages != 3 {
		t.Errorf("page = %+v", page)
	}
	if page.Items[0].ID() != "u1" || page.Items[1].Str("name") != "Priya" {
		t.Errorf("items = %+v", page.Items)
	}
}

func TestListQueryParams(t *testing.T) {
	var got string
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = q.Get("q") + "|" + q.Get("role") + "|" + q.Get("page")
		w.Write([]byte(`{"items":[],"total":0,"page":2,"limit":10,"pages":0}`))
	})

	q := query.New(query.Users())
	q.SetSearch("john")
	q.SetFilter("role", "admin")
	q.SetPage(2)
	if _, err := res.List(context.Background(), q); err != nil {
		t.Fatalf("List: %v", err)
	}
	if got != "john|admin|2" {
		t.Errorf("query params = %q", got)
	}
}

func TestListServerError(t *testing.T) {
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		w.Write([]byte(`{"detail":"Internal server error"}`))
	})

	_, err := res.List(context.Background(), query.New(query.Users()))
	se, ok := err.(ErrServer)
	if !ok {
		t.Fatalf("err = %T %v, want ErrServer", err, err)
	}
	if se.Status != 500 || se.Message != "Internal server error" {
		t.Errorf("ErrServer = %+v", se)
	}
}

func TestGetNotFound(t *testing.T) {
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		w.Write([]byte(`{"detail":"User not found"}`))
	})

	_, err := res.Get(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetDecodesEnvelope(t *testing.T) {
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/u1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"ok":true,"data":{"id":"u1","name":"Aarav","role":"admin"}}`))
	})

	rec, err := res.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ID() != "u1" || rec.Str("role") != "admin" {
		t.Errorf("record = %+v", rec)
	}
}

func TestCreateReturnsID(t *testing.T) {
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if r.PostForm.Get("name") != "Aarav Sharma" {
			t.Errorf("name = %q", r.PostForm.Get("name"))
		}
		w.Write([]byte(`{"ok":true,"id":"new-id"}`))
	})

	fields := map[string][]string{"name": {"Aarav Sharma"}, "email": {"aarav@example.com"}}
	id, err := res.Create(context.Background(), fields)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != "new-id" {
		t.Errorf("id = %q", id)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`{"ok":false,"error":"Email already exists"}`))
	})

	_, err := res.Create(context.Background(), map[string][]string{"email": {"dup@example.com"}})
	conflict, ok := IsConflict(err)
	if !ok {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if conflict.Field != "email" {
		t.Errorf("conflict field = %q, want email", conflict.Field)
	}
}

func TestCreateBodyBeatsStatus(t *testing.T) {
	// A 200 with ok:false is still a failure: the body is authoritative.
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"Invalid role"}`))
	})

	_, err := res.Create(context.Background(), map[string][]string{"role": {"wizard"}})
	if err == nil {
		t.Fatal("expected failure from ok:false body")
	}
	if _, ok := err.(ErrServer); !ok {
		t.Errorf("err = %T, want ErrServer", err)
	}
}

func TestUpdateNotFound(t *testing.T) {
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		w.Write([]byte(`{"detail":"User not found"}`))
	})

	err := res.Update(context.Background(), "gone", map[string][]string{"name": {"x"}})
	if !IsNotFound(err) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateSuccess(t *testing.T) {
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		w.Write([]byte(`{"ok":true}`))
	})

	if err := res.Update(context.Background(), "u1", map[string][]string{"name": {"New Name"}}); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestDeleteStatuses(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   bool
		wantIsNF  bool
		wantIsSrv bool
	}{
		{name: "200 ok", status: 200, body: "", wantErr: false},
		{name: "204 no content", status: 204, body: "", wantErr: false},
		{name: "404 not found", status: 404, body: `{"detail":"User not found"}`, wantErr: true, wantIsNF: true},
		{name: "500 error body", status: 500, body: `{"error":"boom"}`, wantErr: true, wantIsSrv: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			err := res.Delete(context.Background(), "u1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantIsNF && !IsNotFound(err) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
			if tt.wantIsSrv {
				if _, ok := err.(ErrServer); !ok {
					t.Errorf("err = %T, want ErrServer", err)
				}
			}
		})
	}
}

func TestNetworkErrorWraps(t *testing.T) {
	res := NewResource(NewClient("http://127.0.0.1:1"), "/api/users")
	_, err := res.List(context.Background(), query.New(query.Users()))
	if !IsNetwork(err) {
		t.Errorf("err = %v, want network error", err)
	}
}
