// Package export renders lab tables as CSV in a caller-chosen column order.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"labdesk/internal/common"
	"labdesk/internal/domain/model"
	"labdesk/internal/domain/repository"
)

// Record maps a column id to its rendered cell.
type Record map[string]string

func UserRecord(u model.User) Record {
	return Record{
		"id":         u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"handle":     u.Handle,
		"role":       u.Role,
		"status":     u.Status,
		"created_at": u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func FeedbackRecord(f model.Feedback) Record {
	return Record{
		"id":      f.ID,
		"author":  f.Author,
		"email":   f.Email,
		"rating":  strconv.Itoa(f.Rating),
		"message": f.Message,
		"date":    f.Date,
	}
}

// RenderCSV writes a header of column titles followed by one line per record.
// columns must be a permutation of table's columns.
func RenderCSV(w io.Writer, table *model.Table, columns []string, records []Record) error {
	if !table.IsPermutation(columns) {
		return common.NewFieldError("columns", "must list every column of "+table.Name+" exactly once")
	}
	cw := csv.NewWriter(w)
	header := make([]string, len(columns))
	for i, id := range columns {
		col, _ := table.Column(id)
		header[i] = col.Title
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	line := make([]string, len(columns))
	for _, rec := range records {
		for i, id := range columns {
			line[i] = rec[id]
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("failed to write csv line: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Exporter loads every row matching an export's parameters and renders it.
type Exporter struct {
	users    repository.UserRepository
	feedback repository.FeedbackRepository
}

func NewExporter(users repository.UserRepository, feedback repository.FeedbackRepository) *Exporter {
	return &Exporter{users: users, feedback: feedback}
}

func (e *Exporter) Render(ctx context.Context, w io.Writer, resource string, params model.ExportParams) error {
	table, ok := model.LookupTable(resource)
	if !ok {
		return fmt.Errorf("unknown export resource %q: %w", resource, common.ErrBadRequest)
	}
	columns := params.Columns
	if len(columns) == 0 {
		columns = table.DefaultOrder()
	}
	q := model.ListQuery{Search: params.Search, SortBy: params.SortBy, Order: params.Order, All: true}

	var records []Record
	switch table.Name {
	case model.TableUsers:
		users, _, err := e.users.List(ctx, q)
		if err != nil {
			return err
		}
		for _, u := range users {
			records = append(records, UserRecord(u))
		}
	case model.TableFeedback:
		items, _, err := e.feedback.List(ctx, q)
		if err != nil {
			return err
		}
		for _, f := range items {
			records = append(records, FeedbackRecord(f))
		}
	}
	return RenderCSV(w, table, columns, records)
}
