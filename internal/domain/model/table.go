package model

import (
	"fmt"
)

const (
	TableUsers    = "users"
	TableFeedback = "feedback"
)

// Column describes one column of a listing table.
type Column struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Sortable bool   `json:"sortable"`
}

type Table struct {
	Name    string
	Columns []Column
	// DefaultSort is used when a listing names no sort column.
	DefaultSort string
	DefaultDesc bool
}

var UsersTable = &Table{
	Name: TableUsers,
	Columns: []Column{
		{ID: "id", Title: "ID", Sortable: false},
		{ID: "email", Title: "Email", Sortable: true},
		{ID: "name", Title: "Name", Sortable: true},
		{ID: "handle", Title: "Handle", Sortable: true},
		{ID: "role", Title: "Role", Sortable: true},
		{ID: "status", Title: "Status", Sortable: true},
		{ID: "created_at", Title: "Created", Sortable: true},
	},
	DefaultSort: "created_at",
}

var FeedbackTable = &Table{
	Name: TableFeedback,
	Columns: []Column{
		{ID: "id", Title: "ID", Sortable: false},
		{ID: "author", Title: "Author", Sortable: true},
		{ID: "email", Title: "Email", Sortable: true},
		{ID: "rating", Title: "Rating", Sortable: true},
		{ID: "message", Title: "Message", Sortable: false},
		{ID: "date", Title: "Date", Sortable: true},
	},
	DefaultSort: "date",
	DefaultDesc: true,
}

// LookupTable returns the table named name.
func LookupTable(name string) (*Table, bool) {
	switch name {
	case TableUsers:
		return UsersTable, true
	case TableFeedback:
		return FeedbackTable, true
	}
	return nil, false
}

func (t *Table) DefaultOrder() []string {
	order := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		order[i] = c.ID
	}
	return order
}

func (t *Table) Column(id string) (Column, bool) {
	for _, c := range t.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// IsPermutation reports whether order names every column exactly once.
func (t *Table) IsPermutation(order []string) bool {
	if len(order) != len(t.Columns) {
		return false
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if _, ok := t.Column(id); !ok || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

// MoveColumn returns a copy of order with the column at from moved to index to,
// shifting the columns in between. This is the drag-and-drop reorder.
func MoveColumn(order []string, from, to int) ([]string, error) {
	if from < 0 || from >= len(order) || to < 0 || to >= len(order) {
		return nil, fmt.Errorf("column index out of range: from=%d to=%d len=%d", from, to, len(order))
	}
	out := make([]string, 0, len(order))
	moved := order[from]
	for i, id := range order {
		if i != from {
			out = append(out, id)
		}
	}
	out = append(out[:to], append([]string{moved}, out[to:]...)...)
	return out, nil
}
