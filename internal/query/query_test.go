package query

import (
	"net/url"
	"testing"
)

func TestEncodeOmitsDefaults(t *testing.T) {
	q := New(Users())
	if got := q.String(); got != "" {
		t.Errorf("default query encoded to %q, want empty", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Query)
	}{
		{name: "default state", setup: func(q *Query) {}},
		{name: "search only", setup: func(q *Query) { q.SetSearch("john") }},
		{name: "role filter", setup: func(q *Query) { q.SetFilter("role", "admin") }},
		{name: "both filters", setup: func(q *Query) {
			q.SetFilter("role", "manager")
			q.SetFilter("status", "suspended")
		}},
		{name: "sort ascending", setup: func(q *Query) { q.SetSort("name") }},
		{name: "sort toggled to desc", setup: func(q *Query) {
			q.SetSort("email")
			q.SetSort("email")
		}},
		{name: "deep page", setup: func(q *Query) { q.SetPage(7) }},
		{name: "large page size", setup: func(q *Query) { q.SetPageSize(100) }},
		{name: "everything at once", setup: func(q *Query) {
			q.SetSearch("priya")
			q.SetFilter("status", "active")
			q.SetSort("last_login")
			q.SetPageSize(25)
			q.SetPage(3)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(Users())
			tt.setup(q)

			decoded := Decode(q.Encode(), Users())
			if !q.Equal(decoded) {
				t.Errorf("round trip changed state:\n encoded %q\n got     %+v\n want    %+v",
					q.String(), decoded, q)
			}
		})
	}
}

func TestSettersResetPage(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Query)
		wantReset bool
	}{
		{"search resets", func(q *Query) { q.SetSearch("x") }, true},
		{"filter resets", func(q *Query) { q.SetFilter("role", "admin") }, true},
		{"sort resets", func(q *Query) { q.SetSort("name") }, true},
		{"page size resets", func(q *Query) { q.SetPageSize(50) }, true},
		{"page change does not reset", func(q *Query) { q.SetPage(2) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(Users())
			q.SetPage(5)
			tt.mutate(q)
			if tt.wantReset && q.Page != 1 {
				t.Errorf("page = %d, want reset to 1", q.Page)
			}
			if !tt.wantReset && q.Page == 5 {
				return
			}
			if !tt.wantReset && q.Page != 2 {
				t.Errorf("page = %d, want 2", q.Page)
			}
		})
	}
}

func TestSetPageLeavesOtherFields(t *testing.T) {
	q := New(Users())
	q.SetSearch("aarav")
	q.SetFilter("role", "packer")
	q.SetSort("email")

	before := q.Clone()
	q.SetPage(4)

	if q.Search != before.Search || q.Sort != before.Sort || q.Order != before.Order ||
		q.Filters["role"] != before.Filters["role"] || q.Limit != before.Limit {
		t.Errorf("SetPage disturbed other fields: %+v", q)
	}
	if q.Page != 4 {
		t.Errorf("page = %d, want 4", q.Page)
	}
}

func TestSetSortToggle(t *testing.T) {
	q := New(Users())

	q.SetSort("name")
	if q.Sort != "name" || q.Order != OrderAsc {
		t.Fatalf("first sort = %s %s, want name asc", q.Sort, q.Order)
	}

	q.SetSort("name")
	if q.Order != OrderDesc {
		t.Errorf("second sort on same key = %s, want desc", q.Order)
	}

	q.SetSort("email")
	if q.Sort != "email" || q.Order != OrderAsc {
		t.Errorf("sort on new key = %s %s, want email asc", q.Sort, q.Order)
	}
}

func TestSetFilterClears(t *testing.T) {
	q := New(Users())
	q.SetFilter("role", "admin")
	q.SetFilter("role", "all")
	if _, ok := q.Filters["role"]; ok {
		t.Error(`filter value "all" should clear the filter`)
	}

	q.SetFilter("role", "admin")
	q.SetFilter("role", "")
	if _, ok := q.Filters["role"]; ok {
		t.Error("empty filter value should clear the filter")
	}
}

func TestSetFilterIgnoresUnknownName(t *testing.T) {
	q := New(Users())
	q.SetFilter("priority", "high") // tickets filter, not a users filter
	if len(q.Filters) != 0 {
		t.Errorf("unknown filter accepted: %v", q.Filters)
	}
}

func TestSetPageSizeCoercesInvalid(t *testing.T) {
	q := New(Users())
	q.SetPageSize(33)
	if q.Limit != DefaultLimit {
		t.Errorf("limit = %d, want %d", q.Limit, DefaultLimit)
	}
}

func TestDecodeDegradesInvalidValues(t *testing.T) {
	v := url.Values{}
	v.Set("page", "-3")
	v.Set("limit", "17")
	v.Set("sort", "password") // not whitelisted
	v.Set("order", "sideways")

	q := Decode(v, Users())
	if q.Page != 1 || q.Limit != DefaultLimit || q.Sort != DefaultSort || q.Order != DefaultOrder {
		t.Errorf("invalid params not defaulted: %+v", q)
	}
}

func TestDecodeUnknownFilterDropped(t *testing.T) {
	v := url.Values{}
	v.Set("channel", "WhatsApp")
	q := Decode(v, Users())
	if len(q.Filters) != 0 {
		t.Errorf("unknown filter decoded: %v", q.Filters)
	}
}
