package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/erayaindia/eraya-ops-hub/internal/query"
)

// Resource is a CRUD client bound to one collection endpoint, e.g.
// /api/users or /support/api/tickets. Writes are form-encoded and reads are
// JSON, matching the wire contract of the ops-hub API.
//
// HTTP status alone never fully determines an outcome when a body is
// present: a 2xx carrying {"ok":false} is still a failure, and error bodies
// are inspected for the duplicate-field case.
type Resource struct {
	client   *Client
	basePath string // e.g. "/api/users"
}

// NewResource creates a resource client for the given base path.
func NewResource(client *Client, basePath string) *Resource {
	return &Resource{
		client:   client,
		basePath: "/" + strings.Trim(basePath, "/"),
	}
}

// List fetches one page of the collection described by q.
// The request defeats caches (no-store headers plus a timestamp param) so
// the page is always authoritative.
func (r *Resource) List(ctx context.Context, q *query.Query) (*PageResult, error) {
	params := q.Encode()
	params.Set("_ts", strconv.FormatInt(time.Now().UnixMilli(), 10))

	reqURL := fmt.Sprintf("%s%s?%s", r.client.baseURL, r.basePath, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}

	var page PageResult
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, ErrNetwork{Err: fmt.Errorf("failed to decode list response: %w", err)}
	}
	return &page, nil
}

// Get retrieves a single record by id. Returns ErrNotFound if absent.
func (r *Resource) Get(ctx context.Context, id string) (Record, error) {
	reqURL := fmt.Sprintf("%s%s/%s", r.client.baseURL, r.basePath, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound{ID: id}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}

	var envelope struct {
		OK   bool   `json:"ok"`
		Data Record `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, ErrNetwork{Err: fmt.Errorf("failed to decode record: %w", err)}
	}
	if !envelope.OK {
		return nil, ErrServer{Status: resp.StatusCode, Message: "server reported failure"}
	}
	return envelope.Data, nil
}

// Create creates a record from form fields and returns the server-assigned
// id. Duplicate unique fields come back as ErrConflict scoped to the field.
func (r *Resource) Create(ctx context.Context, fields url.Values) (string, error) {
	reqURL := r.client.baseURL + r.basePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(fields.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var envelope struct {
		OK    bool   `json:"ok"`
		ID    string `json:"id"`
		Error string `json:"error"`
	}
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", ErrNetwork{Err: readErr}
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return "", ErrServer{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return "", ErrNetwork{Err: fmt.Errorf("failed to decode create response: %w", err)}
	}

	if !envelope.OK {
		if isConflictMessage(envelope.Error) {
			return "", ErrConflict{Field: conflictField(envelope.Error), Message: envelope.Error}
		}
		return "", ErrServer{Status: resp.StatusCode, Message: envelope.Error}
	}
	return envelope.ID, nil
}

// Update patches a record with form fields. Returns ErrNotFound if the
// record no longer exists and ErrConflict on duplicate unique fields.
func (r *Resource) Update(ctx context.Context, id string, fields url.Values) error {
	reqURL := fmt.Sprintf("%s%s/%s", r.client.baseURL, r.basePath, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, reqURL, strings.NewReader(fields.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound{ID: id}
	}

	var envelope struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return ErrNetwork{Err: readErr}
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return ErrServer{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return ErrNetwork{Err: fmt.Errorf("failed to decode update response: %w", err)}
	}

	if !envelope.OK {
		if isConflictMessage(envelope.Error) {
			return ErrConflict{Field: conflictField(envelope.Error), Message: envelope.Error}
		}
		return ErrServer{Status: resp.StatusCode, Message: envelope.Error}
	}
	return nil
}

// Delete removes a record. A 404 comes back as ErrNotFound; the controller
// treats it as success (someone else already deleted the row).
func (r *Resource) Delete(ctx context.Context, id string) error {
	reqURL := fmt.Sprintf("%s%s/%s", r.client.baseURL, r.basePath, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrNotFound{ID: id}
	default:
		return serverError(resp)
	}
}

// serverError builds an ErrServer from a non-2xx response, pulling the
// message from an {"error": ...} or {"detail": ...} body when one exists.
func serverError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrServer{Status: resp.StatusCode}
	}

	var parsed struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		msg := parsed.Error
		if msg == "" {
			msg = parsed.Detail
		}
		return ErrServer{Status: resp.StatusCode, Message: msg}
	}
	return ErrServer{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}
