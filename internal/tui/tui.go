// Package tui renders controller snapshots as a live terminal table. It is
// purely a consumer of the view contract: every gesture becomes an intent
// dispatched to the controller, and everything on screen comes from the
// latest snapshot.
package tui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/erayaindia/eraya-ops-hub/internal/gateway"
	"github.com/erayaindia/eraya-ops-hub/internal/query"
	"github.com/erayaindia/eraya-ops-hub/internal/sync"
	"github.com/erayaindia/eraya-ops-hub/internal/view"
)

// Column maps a record attribute to a table column.
type Column struct {
	Key   string
	Title string
	Width int
}

// UserColumns is the user-directory table layout.
func UserColumns() []Column {
	return []Column{
		{Key: "name", Title: "Name", Width: 22},
		{Key: "email", Title: "Email", Width: 28},
		{Key: "role", Title: "Role", Width: 10},
		{Key: "status", Title: "Status", Width: 10},
		{Key: "last_login", Title: "Last Login", Width: 16},
		{Key: "created_at", Title: "Created", Width: 16},
	}
}

// TicketColumns is the support-board table layout.
func TicketColumns() []Column {
	return []Column{
		{Key: "ticket_id", Title: "Ticket", Width: 8},
		{Key: "full_name", Title: "Customer", Width: 20},
		{Key: "channel", Title: "Channel", Width: 14},
		{Key: "issue_type", Title: "Issue", Width: 14},
		{Key: "summary", Title: "Summary", Width: 30},
		{Key: "priority", Title: "Priority", Width: 8},
		{Key: "status", Title: "Status", Width: 18},
	}
}

// UserFormFields is the create/edit form layout for users.
func UserFormFields() []string {
	return []string{"name", "email", "role", "status", "phone", "city", "password", "password_confirm"}
}

// TicketFormFields is the create/edit form layout for tickets.
func TicketFormFields() []string {
	return []string{"full_name", "email", "channel", "issue_type", "summary", "priority", "status"}
}

type mode int

const (
	modeList mode = iota
	modeConfirmDelete
	modeForm
)

// snapshotMsg carries a controller snapshot into the bubbletea loop.
type snapshotMsg view.Snapshot

// Renderer feeds snapshots into a running program. It implements
// view.Renderer.
type Renderer struct {
	prog *tea.Program
}

// NewRenderer wraps a program as the controller's renderer.
func NewRenderer(prog *tea.Program) *Renderer {
	return &Renderer{prog: prog}
}

func (r *Renderer) Render(s view.Snapshot) {
	r.prog.Send(snapshotMsg(s))
}

// timeNow is swappable so view tests can pin the clock.
var timeNow = time.Now

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	staleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	fieldStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// Model is the bubbletea model for one collection view.
type Model struct {
	ctrl    *sync.Controller
	title   string
	columns []Column
	form    []string

	table  table.Model
	search textinput.Model

	snap      view.Snapshot
	mode      mode
	deleteID  string
	editID    string // empty while creating
	inputs    []textinput.Model
	focusIdx  int
	searching bool
}

// NewModel builds the view for a resource.
func NewModel(ctrl *sync.Controller, title string, columns []Column, formFields []string) Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}
	tbl := table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(12))

	search := textinput.New()
	search.Placeholder = "search"
	search.CharLimit = 120
	search.Width = 32

	return Model{
		ctrl:    ctrl,
		title:   title,
		columns: columns,
		form:    formFields,
		table:   tbl,
		search:  search,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = view.Snapshot(msg)
		m.table.SetRows(m.rows())
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		case modeForm:
			return m.updateForm(msg)
		default:
			return m.updateList(msg)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			return m, nil
		case "enter":
			m.searching = false
			m.search.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			m.ctrl.Dispatch(sync.Intent{Kind: sync.SearchChanged, Text: m.search.Value()})
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "/":
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink

	case "r":
		m.ctrl.Dispatch(sync.Intent{Kind: sync.RefreshRequested})
		return m, nil

	case "left", "h":
		if m.snap.Page > 1 {
			m.ctrl.Dispatch(sync.Intent{Kind: sync.PageChanged, Page: m.snap.Page - 1})
		}
		return m, nil

	case "right", "l":
		if m.snap.Page < m.snap.Pages {
			m.ctrl.Dispatch(sync.Intent{Kind: sync.PageChanged, Page: m.snap.Page + 1})
		}
		return m, nil

	case "+":
		m.ctrl.Dispatch(sync.Intent{Kind: sync.PageSizeChanged, Size: nextPageSize(m.snap.Limit)})
		return m, nil

	case "1", "2", "3", "4", "5", "6", "7":
		idx := int(msg.String()[0] - '1')
		if idx < len(m.columns) {
			m.ctrl.Dispatch(sync.Intent{Kind: sync.SortToggled, Sort: m.columns[idx].Key})
		}
		return m, nil

	case "a":
		m.editID = ""
		m.openForm(nil)
		return m, textinput.Blink

	case "e", "enter":
		if rec, ok := m.selected(); ok {
			m.editID = rec.ID()
			m.openForm(rec)
			return m, textinput.Blink
		}
		return m, nil

	case "d":
		if rec, ok := m.selected(); ok {
			m.deleteID = rec.ID()
			m.mode = modeConfirmDelete
		}
		return m, nil

	case "esc":
		m.ctrl.Dispatch(sync.Intent{Kind: sync.NoticeDismissed})
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.ctrl.Dispatch(sync.Intent{Kind: sync.DeleteConfirmed, ID: m.deleteID})
		m.deleteID = ""
		m.mode = modeList
	case "n", "esc":
		m.deleteID = ""
		m.mode = modeList
	}
	return m, nil
}

func (m *Model) openForm(rec gateway.Record) {
	m.inputs = make([]textinput.Model, len(m.form))
	for i, field := range m.form {
		ti := textinput.New()
		ti.Placeholder = field
		ti.CharLimit = 200
		ti.Width = 36
		if strings.HasPrefix(field, "password") {
			ti.EchoMode = textinput.EchoPassword
		}
		if rec != nil {
			ti.SetValue(rec.Str(field))
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
	m.inputs[0].Focus()
	m.mode = modeForm
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.ctrl.Dispatch(sync.Intent{Kind: sync.NoticeDismissed})
		return m, nil

	case "tab", "down":
		m.inputs[m.focusIdx].Blur()
		m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
		m.inputs[m.focusIdx].Focus()
		return m, textinput.Blink

	case "shift+tab", "up":
		m.inputs[m.focusIdx].Blur()
		m.focusIdx = (m.focusIdx - 1 + len(m.inputs)) % len(m.inputs)
		m.inputs[m.focusIdx].Focus()
		return m, textinput.Blink

	case "enter":
		fields := url.Values{}
		for i, field := range m.form {
			if v := m.inputs[i].Value(); v != "" {
				fields.Set(field, v)
			}
		}
		if m.editID == "" {
			m.ctrl.Dispatch(sync.Intent{Kind: sync.CreateSubmitted, Fields: fields})
		} else {
			m.ctrl.Dispatch(sync.Intent{Kind: sync.UpdateSubmitted, ID: m.editID, Fields: fields})
		}
		// The edit affordance closes immediately; the optimistic patch
		// is already visible in the table behind it.
		m.mode = modeList
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focusIdx], cmd = m.inputs[m.focusIdx].Update(msg)
	return m, cmd
}

func (m Model) selected() (gateway.Record, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.snap.Items) {
		return nil, false
	}
	return m.snap.Items[idx], true
}

func (m Model) rows() []table.Row {
	rows := make([]table.Row, len(m.snap.Items))
	for i, rec := range m.snap.Items {
		row := make(table.Row, len(m.columns))
		for j, col := range m.columns {
			row[j] = cellValue(rec, col.Key)
		}
		rows[i] = row
	}
	return rows
}

func cellValue(rec gateway.Record, key string) string {
	switch key {
	case "last_login", "created_at", "updated_at":
		t := rec.Time(key)
		if t.IsZero() {
			return "—"
		}
		return t.Format("2006-01-02 15:04")
	default:
		return rec.Str(key)
	}
}

func nextPageSize(current int) int {
	for i, size := range query.PageSizes {
		if size == current {
			return query.PageSizes[(i+1)%len(query.PageSizes)]
		}
	}
	return query.PageSizes[0]
}

func (m Model) View() string {
	var b strings.Builder

	header := titleStyle.Render(m.title)
	if m.snap.Stale {
		header += "  " + staleStyle.Render("⚠ data may be stale")
	}
	if m.snap.State == view.Fetching {
		header += "  " + faintStyle.Render("fetching…")
	}
	b.WriteString(header + "\n")

	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View() + "\n")
	}

	switch m.mode {
	case modeForm:
		b.WriteString(m.formView())
	case modeConfirmDelete:
		b.WriteString(m.table.View() + "\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("delete %s? (y/n)", m.deleteID)) + "\n")
	default:
		b.WriteString(m.table.View() + "\n")
	}

	if m.snap.Err != "" {
		b.WriteString(errorStyle.Render("✗ "+m.snap.Err) + faintStyle.Render("  (esc to dismiss)") + "\n")
	}

	stats := view.ComputeStats(m.snap.Items, timeNow())
	info := m.snap.PageInfo()
	prev, next := "←", "→"
	if info.PrevDisabled {
		prev = " "
	}
	if info.NextDisabled {
		next = " "
	}
	b.WriteString(statusStyle.Render(fmt.Sprintf(
		"%s page %d/%d %s · %d total · %d shown (%d active, %d admins) · / search · a add · e edit · d delete · r refresh · q quit",
		prev, m.snap.Page, max(m.snap.Pages, 1), next,
		m.snap.Total, stats.PageCount, stats.Active, stats.Admins,
	)))

	return b.String()
}

func (m Model) formView() string {
	var b strings.Builder
	action := "New record"
	if m.editID != "" {
		action = "Edit " + m.editID
	}
	b.WriteString(titleStyle.Render(action) + "\n\n")

	for i, field := range m.form {
		label := fieldStyle.Render(fmt.Sprintf("%-18s", field))
		b.WriteString(label + m.inputs[i].View())
		if msg, ok := m.snap.FieldErrors[field]; ok {
			b.WriteString("  " + errorStyle.Render(msg))
		}
		b.WriteString("\n")
	}
	b.WriteString(faintStyle.Render("\nenter submit · tab next field · esc cancel\n"))
	return b.String()
}
