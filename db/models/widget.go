package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.hackfix.me/strata/crud"
	"go.hackfix.me/strata/db/types"
)

// Widget is the demo resource served by the API.
type Widget struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
}

// BindWidget copies and validates the form fields into w. The name is
// required for new widgets.
func BindWidget(form *crud.Form, w *Widget) error {
	verr := crud.ValidationError{}

	if form.Has("name") || w.ID == 0 {
		name := strings.TrimSpace(form.String("name"))
		switch {
		case name == "":
			verr.Add("name", "this field is required")
		case len(name) > 100:
			verr.Add("name", "must be at most 100 characters")
		default:
			w.Name = name
		}
	}

	if form.Has("quantity") {
		q, err := form.Int("quantity")
		switch {
		case err != nil:
			verr.Add("quantity", err.Error())
		case q < 0:
			verr.Add("quantity", "must not be negative")
		default:
			w.Quantity = q
		}
	}

	return verr.Err()
}

// WidgetStore stores widgets in the database.
type WidgetStore struct {
	d types.Querier
}

var _ crud.Store[Widget] = (*WidgetStore)(nil)

// NewWidgetStore returns a new WidgetStore.
func NewWidgetStore(d types.Querier) *WidgetStore {
	return &WidgetStore{d: d}
}

// Find returns the widgets matching q.
func (s *WidgetStore) Find(ctx context.Context, q *crud.Query) (widgets []*Widget, rerr error) {
	where, args := whereClause(q)
	query := fmt.Sprintf(`SELECT id, created_at, updated_at, name, quantity
		FROM widgets %s
		ORDER BY id ASC %s`, where, pageClause(q))

	rows, err := s.d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.LoadError{ModelName: "widgets", Err: err}
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing widgets rows: %w", err)
		}
	}()

	widgets = make([]*Widget, 0)
	for rows.Next() {
		var w Widget
		if err = rows.Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt, &w.Name, &w.Quantity); err != nil {
			return nil, types.ScanError{ModelName: "widget", Err: err}
		}
		widgets = append(widgets, &w)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating over widgets rows: %w", err)
	}

	return widgets, nil
}

// Count returns the number of widgets matching q.
func (s *WidgetStore) Count(ctx context.Context, q *crud.Query) (int, error) {
	return filterCount(ctx, s.d, "widgets", q)
}

// Save inserts or updates the widget.
func (s *WidgetStore) Save(ctx context.Context, w *Widget, update bool) error {
	timeNow := s.d.TimeNow().UTC()
	if update {
		filterStr := fmt.Sprintf("ID %d", w.ID)
		res, err := s.d.ExecContext(ctx, `UPDATE widgets
			SET updated_at = ?,
			    name = ?,
			    quantity = ?
			WHERE id = ?`, timeNow, w.Name, w.Quantity, w.ID)
		if err != nil {
			return types.Err("widget", fmt.Sprintf("name '%s'", w.Name), err)
		}
		if err = checkAffected(res, "widget", filterStr); err != nil {
			return err
		}
		w.UpdatedAt = timeNow

		return nil
	}

	res, err := s.d.ExecContext(ctx, `INSERT INTO widgets
		(id, created_at, updated_at, name, quantity)
		VALUES (NULL, ?, ?, ?, ?)`, timeNow, timeNow, w.Name, w.Quantity)
	if err != nil {
		return types.Err("widget", fmt.Sprintf("name '%s'", w.Name), err)
	}

	if w.ID, err = lastInsertID(res); err != nil {
		return err
	}
	w.CreatedAt = timeNow
	w.UpdatedAt = timeNow

	return nil
}

// Delete removes the widget.
func (s *WidgetStore) Delete(ctx context.Context, w *Widget) error {
	filterStr := fmt.Sprintf("ID %d", w.ID)
	res, err := s.d.ExecContext(ctx, `DELETE FROM widgets WHERE id = ?`, w.ID)
	if err != nil {
		return types.Err("widget", filterStr, err)
	}

	return checkAffected(res, "widget", filterStr)
}
