package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/erayaindia/eraya-ops-hub/internal/store"
)

var allowedPageSizes = map[int]bool{10: true, 25: true, 50: true, 100: true}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// resourceConfig declares what a resource accepts over the wire. Form
// fields outside FormFields are dropped silently; enum fields outside
// their allowed set are rejected.
type resourceConfig struct {
	res        store.Resource
	formFields []string
	required   []string // on create
	enums      map[string][]string
	emailField string
	hasPass    bool
}

func userConfig() resourceConfig {
	return resourceConfig{
		res: store.Users(),
		formFields: []string{
			"name", "email", "role", "status", "phone", "city", "state", "joining_date",
		},
		required: []string{"name", "email"},
		enums: map[string][]string{
			"role":   {"owner", "admin", "manager", "employee", "packer"},
			"status": {"active", "inactive", "suspended"},
		},
		emailField: "email",
		hasPass:    true,
	}
}

func ticketConfig() resourceConfig {
	return resourceConfig{
		res: store.Tickets(),
		formFields: []string{
			"full_name", "email", "channel", "issue_type", "summary", "status", "priority",
		},
		required: []string{"full_name", "summary"},
		enums: map[string][]string{
			"status":   {"open", "in_progress", "resolved", "closed"},
			"priority": {"low", "medium", "high", "urgent"},
		},
		emailField: "email",
	}
}

type resourceHandler struct {
	store store.Store
	cfg   resourceConfig
}

// listEnvelope is the page payload for list endpoints.
type listEnvelope struct {
	Items []map[string]any `json:"items"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Pages int              `json:"pages"`
}

func (h *resourceHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := store.ListParams{
		Search:  strings.TrimSpace(q.Get("q")),
		Filters: map[string]string{},
		Sort:    h.clampSort(q.Get("sort")),
		Order:   clampOrder(q.Get("order")),
		Page:    clampPage(q.Get("page")),
		Limit:   clampLimit(q.Get("limit")),
	}
	for _, col := range h.cfg.res.FilterColumns {
		if v := q.Get(col); v != "" && v != "all" {
			p.Filters[col] = v
		}
	}

	result, err := h.store.List(r.Context(), h.cfg.res, p)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("list failed")
		writeFail(w, http.StatusInternalServerError, "failed to load records")
		return
	}

	pages := 0
	if result.Total > 0 {
		pages = (result.Total + p.Limit - 1) / p.Limit
	}
	items := result.Items
	if items == nil {
		items = []map[string]any{}
	}
	noStore(w)
	writeJSON(w, http.StatusOK, listEnvelope{
		Items: items,
		Total: result.Total,
		Page:  p.Page,
		Limit: p.Limit,
		Pages: pages,
	})
}

func (h *resourceHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	row, err := h.store.Get(r.Context(), h.cfg.res, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeFail(w, http.StatusNotFound, "record not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("id", id).Msg("get failed")
		writeFail(w, http.StatusInternalServerError, "failed to load record")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": row})
}

func (h *resourceHandler) create(w http.ResponseWriter, r *http.Request) {
	fields, errMsg := h.parseForm(r, true)
	if errMsg != "" {
		writeFail(w, http.StatusBadRequest, errMsg)
		return
	}

	id, err := h.store.Create(r.Context(), h.cfg.res, fields)
	if err != nil {
		if dup, ok := store.IsDuplicate(err); ok {
			writeFail(w, http.StatusBadRequest, duplicateMessage(dup.Column))
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("create failed")
		writeFail(w, http.StatusInternalServerError, "failed to create record")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

func (h *resourceHandler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fields, errMsg := h.parseForm(r, false)
	if errMsg != "" {
		writeFail(w, http.StatusBadRequest, errMsg)
		return
	}
	if len(fields) == 0 {
		writeFail(w, http.StatusBadRequest, "nothing to update")
		return
	}

	if err := h.store.Update(r.Context(), h.cfg.res, id, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeFail(w, http.StatusNotFound, "record not found")
			return
		}
		if dup, ok := store.IsDuplicate(err); ok {
			writeFail(w, http.StatusBadRequest, duplicateMessage(dup.Column))
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("id", id).Msg("update failed")
		writeFail(w, http.StatusInternalServerError, "failed to update record")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *resourceHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), h.cfg.res, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeFail(w, http.StatusNotFound, "record not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("id", id).Msg("delete failed")
		writeFail(w, http.StatusInternalServerError, "failed to delete record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *resourceHandler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Stats(r.Context(), h.cfg.res)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("stats failed")
		writeFail(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}
	noStore(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": st})
}

// parseForm reads the urlencoded body and returns whitelisted, validated
// fields. On create, missing required fields and bad enum values fail
// with a message; on update only present fields are checked.
func (h *resourceHandler) parseForm(r *http.Request, isCreate bool) (map[string]any, string) {
	if err := r.ParseForm(); err != nil {
		return nil, "invalid form body"
	}

	fields := make(map[string]any)
	for _, key := range h.cfg.formFields {
		if !r.PostForm.Has(key) {
			continue
		}
		fields[key] = strings.TrimSpace(r.PostForm.Get(key))
	}

	if isCreate {
		for _, key := range h.cfg.required {
			if v, _ := fields[key].(string); v == "" {
				return nil, fmt.Sprintf("%s is required", fieldLabel(key))
			}
		}
	}
	if v, ok := fields[h.cfg.emailField].(string); ok && v != "" && !emailRe.MatchString(v) {
		return nil, "Invalid email address"
	}
	for key, allowed := range h.cfg.enums {
		v, ok := fields[key].(string)
		if !ok || v == "" {
			continue
		}
		if !contains(allowed, v) {
			return nil, fmt.Sprintf("invalid %s", key)
		}
	}

	if h.cfg.hasPass {
		pass := strings.TrimSpace(r.PostForm.Get("password"))
		if isCreate && pass == "" {
			return nil, "Password is required"
		}
		if pass != "" {
			if len(pass) < 6 {
				return nil, "Password must be at least 6 characters"
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
			if err != nil {
				return nil, "invalid password"
			}
			fields["password_hash"] = string(hash)
		}
	}

	return fields, ""
}

func (h *resourceHandler) clampSort(sort string) string {
	for _, col := range h.cfg.res.SortColumns {
		if col == sort {
			return sort
		}
	}
	return h.cfg.res.SortColumns[0]
}

func clampOrder(order string) string {
	if order == "asc" {
		return "asc"
	}
	return "desc"
}

func clampPage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func clampLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || !allowedPageSizes[n] {
		return 10
	}
	return n
}

func duplicateMessage(column string) string {
	return fieldLabel(column) + " already exists"
}

func fieldLabel(key string) string {
	key = strings.ReplaceAll(key, "_", " ")
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
