package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests and demo mode. All filtering,
// sorting and pagination happen in Go over cloned rows.
type Memory struct {
	mu   sync.Mutex
	rows map[string][]map[string]any // keyed by table
	now  func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rows: make(map[string][]map[string]any),
		now:  time.Now,
	}
}

// NewMemoryDemo returns a store pre-seeded with a small set of users and
// tickets so the console has something to show without a database.
func NewMemoryDemo() *Memory {
	m := NewMemory()
	now := m.now().UTC()
	users := Users()
	seedUsers := []map[string]any{
		{"name": "Asha Verma", "email": "asha@erayastyle.com", "role": "owner", "status": "active", "phone": "9810000001", "city": "Delhi", "state": "DL", "login_count": 214, "last_login": now.Add(-2 * time.Hour)},
		{"name": "Rohan Gupta", "email": "rohan@erayastyle.com", "role": "admin", "status": "active", "phone": "9810000002", "city": "Mumbai", "state": "MH", "login_count": 98, "last_login": now.Add(-26 * time.Hour)},
		{"name": "Priya Nair", "email": "priya@erayastyle.com", "role": "manager", "status": "active", "phone": "9810000003", "city": "Kochi", "state": "KL", "login_count": 61, "last_login": now.Add(-3 * 24 * time.Hour)},
		{"name": "Dev Malhotra", "email": "dev@erayastyle.com", "role": "employee", "status": "inactive", "phone": "9810000004", "city": "Jaipur", "state": "RJ", "login_count": 12, "last_login": now.Add(-20 * 24 * time.Hour)},
		{"name": "Kiran Shah", "email": "kiran@erayastyle.com", "role": "packer", "status": "suspended", "phone": "9810000005", "city": "Surat", "state": "GJ", "login_count": 4, "last_login": nil},
	}
	for i, f := range seedUsers {
		// Spread creation times so the default sort is stable and visible.
		m.seed(users, f, now.Add(-time.Duration(len(seedUsers)-i)*24*time.Hour))
	}
	tickets := Tickets()
	seedTickets := []map[string]any{
		{"full_name": "Meera Joshi", "email": "meera@example.com", "channel": "email", "issue_type": "order", "summary": "Order ORD-1042 not delivered", "status": "open", "priority": "high"},
		{"full_name": "Arjun Rao", "email": "arjun@example.com", "channel": "chat", "issue_type": "refund", "summary": "Refund pending for 12 days", "status": "in_progress", "priority": "urgent"},
		{"full_name": "Sana Khan", "email": "sana@example.com", "channel": "phone", "issue_type": "product", "summary": "Engraving spelling mistake", "status": "resolved", "priority": "medium"},
	}
	for i, f := range seedTickets {
		m.seed(tickets, f, now.Add(-time.Duration(len(seedTickets)-i)*6*time.Hour))
	}
	return m
}

func (m *Memory) seed(res Resource, fields map[string]any, created time.Time) {
	row := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		row[k] = v
	}
	row[res.IDColumn] = uuid.NewString()
	row["created_at"] = created
	row["updated_at"] = created
	m.mu.Lock()
	m.rows[res.Table] = append(m.rows[res.Table], row)
	m.mu.Unlock()
}

func (m *Memory) List(ctx context.Context, res Resource, p ListParams) (*ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]map[string]any, 0, len(m.rows[res.Table]))
	needle := strings.ToLower(strings.TrimSpace(p.Search))
	for _, row := range m.rows[res.Table] {
		if needle != "" && !rowMatches(row, res.SearchColumns, needle) {
			continue
		}
		if !rowFiltered(row, p.Filters) {
			continue
		}
		matched = append(matched, row)
	}

	sortRows(matched, p.Sort, p.Order == "asc")

	total := len(matched)
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	items := make([]map[string]any, 0, end-start)
	for _, row := range matched[start:end] {
		items = append(items, projectRow(row, res.ListColumns))
	}
	return &ListResult{Items: items, Total: total}, nil
}

func (m *Memory) Get(ctx context.Context, res Resource, id string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.find(res, id)
	if row == nil {
		return nil, ErrNotFound
	}
	return projectRow(row, res.ListColumns), nil
}

func (m *Memory) Create(ctx context.Context, res Resource, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if col := m.duplicateOf(res, fields, ""); col != "" {
		return "", ErrDuplicate{Column: col}
	}
	row := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		row[k] = v
	}
	id := uuid.NewString()
	now := m.now().UTC()
	row[res.IDColumn] = id
	row["created_at"] = now
	row["updated_at"] = now
	m.rows[res.Table] = append(m.rows[res.Table], row)
	return id, nil
}

func (m *Memory) Update(ctx context.Context, res Resource, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.find(res, id)
	if row == nil {
		return ErrNotFound
	}
	if col := m.duplicateOf(res, fields, id); col != "" {
		return ErrDuplicate{Column: col}
	}
	for k, v := range fields {
		row[k] = v
	}
	row["updated_at"] = m.now().UTC()
	return nil
}

func (m *Memory) Delete(ctx context.Context, res Resource, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[res.Table]
	for i, row := range rows {
		if fmt.Sprint(row[res.IDColumn]) == id {
			m.rows[res.Table] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Stats(ctx context.Context, res Resource) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().UTC().Add(-7 * 24 * time.Hour)
	st := &Stats{}
	for _, row := range m.rows[res.Table] {
		st.Total++
		if row["status"] == "active" {
			st.Active++
		}
		if role := row["role"]; role == "admin" || role == "owner" {
			st.Admins++
		}
		if t, ok := row["last_login"].(time.Time); ok && t.After(cutoff) {
			st.RecentLogins++
		}
	}
	return st, nil
}

func (m *Memory) find(res Resource, id string) map[string]any {
	for _, row := range m.rows[res.Table] {
		if fmt.Sprint(row[res.IDColumn]) == id {
			return row
		}
	}
	return nil
}

func (m *Memory) duplicateOf(res Resource, fields map[string]any, excludeID string) string {
	for _, col := range res.UniqueColumns {
		val, ok := fields[col]
		if !ok || val == nil || val == "" {
			continue
		}
		for _, row := range m.rows[res.Table] {
			if excludeID != "" && fmt.Sprint(row[res.IDColumn]) == excludeID {
				continue
			}
			if strings.EqualFold(fmt.Sprint(row[col]), fmt.Sprint(val)) {
				return col
			}
		}
	}
	return ""
}

func rowMatches(row map[string]any, cols []string, needle string) bool {
	for _, col := range cols {
		if v, ok := row[col]; ok && v != nil {
			if strings.Contains(strings.ToLower(fmt.Sprint(v)), needle) {
				return true
			}
		}
	}
	return false
}

func rowFiltered(row map[string]any, filters map[string]string) bool {
	for col, want := range filters {
		if want == "" {
			continue
		}
		if fmt.Sprint(row[col]) != want {
			return false
		}
	}
	return true
}

func sortRows(rows []map[string]any, key string, asc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		less, eq := compareValues(rows[i][key], rows[j][key])
		if eq {
			return false
		}
		if asc {
			return less
		}
		return !less
	})
}

// compareValues orders nils last regardless of direction mirroring
// Postgres NULLS LAST for our descending defaults.
func compareValues(a, b any) (less, eq bool) {
	if a == nil && b == nil {
		return false, true
	}
	if a == nil {
		return false, false
	}
	if b == nil {
		return true, false
	}
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		if at.Equal(bt) {
			return false, true
		}
		return at.Before(bt), false
	}
	ai, aok := toInt(a)
	bi, bok := toInt(b)
	if aok && bok {
		return ai < bi, ai == bi
	}
	as, bs := strings.ToLower(fmt.Sprint(a)), strings.ToLower(fmt.Sprint(b))
	return as < bs, as == bs
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func projectRow(row map[string]any, cols []string) map[string]any {
	out := make(map[string]any, len(cols))
	for _, col := range cols {
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	return out
}
