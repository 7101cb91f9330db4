package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"companion-backend/internal/platform"
)

// Func is an in-process stand-in for a database function. read runs a query
// against the current tables; the store lock is already held.
type Func func(params map[string]any, read func(platform.Query) []platform.Row) (any, error)

// Records implements platform.Records over in-process tables.
type Records struct {
	mu     sync.Mutex
	tables map[string][]platform.Row
	unique map[string][]string
	funcs  map[string]Func
	fail   map[string]error
	now    func() time.Time
	last   time.Time
}

// NewRecords returns an empty store with the companion schema installed.
func NewRecords() *Records {
	r := &Records{
		tables: make(map[string][]platform.Row),
		unique: make(map[string][]string),
		funcs:  make(map[string]Func),
		fail:   make(map[string]error),
		now:    time.Now,
	}
	installSchema(r)
	return r
}

// Unique declares the conflict key of a table.
func (r *Records) Unique(table string, columns ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unique[table] = append([]string(nil), columns...)
}

// Handle registers fn under name for Call.
func (r *Records) Handle(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// FailOn makes op ("select", "insert", "update", "upsert", "delete", "call")
// on target (table or function name) return err. A nil err clears it.
func (r *Records) FailOn(op, target string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := op + ":" + target
	if err == nil {
		delete(r.fail, key)
		return
	}
	r.fail[key] = err
}

// SetClock replaces the time source used for generated timestamps.
func (r *Records) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Rows returns a copy of every row in table.
func (r *Records) Rows(table string) []platform.Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]platform.Row, 0, len(r.tables[table]))
	for _, row := range r.tables[table] {
		out = append(out, copyRow(row))
	}
	return out
}

func (r *Records) Select(ctx context.Context, q platform.Query) ([]platform.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("select", q.Table); err != nil {
		return nil, err
	}
	return r.selectLocked(q), nil
}

func (r *Records) SelectOne(ctx context.Context, q platform.Query) (platform.Row, error) {
	rows, err := r.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, platform.NotFound(q.Table)
	}
	return rows[0], nil
}

func (r *Records) Insert(ctx context.Context, table string, row platform.Row) (platform.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("insert", table); err != nil {
		return nil, err
	}
	return r.insertLocked(table, row)
}

func (r *Records) Update(ctx context.Context, table string, set platform.Row, filters ...platform.Filter) ([]platform.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("update", table); err != nil {
		return nil, err
	}
	var out []platform.Row
	for _, row := range r.tables[table] {
		if !matches(row, filters) {
			continue
		}
		for k, v := range set {
			row[k] = v
		}
		out = append(out, copyRow(row))
	}
	return out, nil
}

func (r *Records) Upsert(ctx context.Context, table string, row platform.Row, onConflict ...string) (platform.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("upsert", table); err != nil {
		return nil, err
	}
	if len(onConflict) == 0 {
		onConflict = r.unique[table]
	}
	if len(onConflict) == 0 {
		onConflict = []string{"id"}
	}
	filters := make([]platform.Filter, 0, len(onConflict))
	for _, col := range onConflict {
		v, ok := row[col]
		if !ok {
			return nil, platform.NewError(platform.KindOther, "42P10", "there is no unique or exclusion constraint matching the ON CONFLICT specification")
		}
		filters = append(filters, platform.Eq(col, v))
	}
	for _, existing := range r.tables[table] {
		if matches(existing, filters) {
			for k, v := range row {
				existing[k] = v
			}
			existing["updated_at"] = r.tick()
			return copyRow(existing), nil
		}
	}
	return r.insertLocked(table, row)
}

func (r *Records) Delete(ctx context.Context, table string, filters ...platform.Filter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("delete", table); err != nil {
		return err
	}
	kept := r.tables[table][:0]
	for _, row := range r.tables[table] {
		if !matches(row, filters) {
			kept = append(kept, row)
		}
	}
	r.tables[table] = kept
	return nil
}

func (r *Records) Call(ctx context.Context, fn string, params map[string]any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("call", fn); err != nil {
		return nil, err
	}
	handler, ok := r.funcs[fn]
	if !ok {
		return nil, platform.NewError(platform.KindOther, "PGRST202",
			"Could not find the function public.%s without parameters in the schema cache", fn)
	}
	out, err := handler(params, r.selectLocked)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", fn, err)
	}
	return data, nil
}

func (r *Records) failure(op, target string) error {
	return r.fail[op+":"+target]
}

// tick returns a strictly increasing timestamp so creation order is total.
func (r *Records) tick() time.Time {
	now := r.now().UTC()
	if !now.After(r.last) {
		now = r.last.Add(time.Microsecond)
	}
	r.last = now
	return now
}

func (r *Records) insertLocked(table string, row platform.Row) (platform.Row, error) {
	stored := copyRow(row)
	if _, ok := stored["id"]; !ok {
		stored["id"] = uuid.NewString()
	}
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = r.tick()
	}
	keys := [][]string{{"id"}}
	if cols := r.unique[table]; len(cols) > 0 {
		keys = append(keys, cols)
	}
	for _, cols := range keys {
		filters := make([]platform.Filter, 0, len(cols))
		for _, col := range cols {
			filters = append(filters, platform.Eq(col, stored[col]))
		}
		for _, existing := range r.tables[table] {
			if matches(existing, filters) {
				return nil, platform.NewError(platform.KindConflict, "23505",
					"duplicate key value violates unique constraint \"%s_%s_key\"", table, strings.Join(cols, "_"))
			}
		}
	}
	r.tables[table] = append(r.tables[table], stored)
	return copyRow(stored), nil
}

func (r *Records) selectLocked(q platform.Query) []platform.Row {
	var rows []platform.Row
	for _, row := range r.tables[q.Table] {
		if matches(row, q.Filters) {
			rows = append(rows, row)
		}
	}
	sortRows(rows, q.Order)

	out := make([]platform.Row, 0, len(rows))
	for _, row := range rows {
		projected := project(row, q.Columns)
		keep := true
		for _, e := range q.Embeds {
			related, ok := r.embedLocked(row, e)
			if !ok {
				keep = false
				break
			}
			projected[e.Name()] = related
		}
		if keep {
			out = append(out, projected)
		}
	}
	return window(out, q.Offset, q.Limit)
}

func (r *Records) embedLocked(parent platform.Row, e platform.Embed) (any, bool) {
	if !e.Many {
		fk, ok := parent[e.ForeignKey]
		if !ok || fk == nil {
			return nil, !e.Inner
		}
		for _, child := range r.tables[e.Table] {
			if valuesEqual(child["id"], fk) {
				return project(child, e.Columns), true
			}
		}
		return nil, !e.Inner
	}

	var children []platform.Row
	for _, child := range r.tables[e.Table] {
		if valuesEqual(child[e.ForeignKey], parent["id"]) {
			children = append(children, child)
		}
	}
	sortRows(children, e.Order)
	children = window(children, 0, e.Limit)
	if e.Inner && len(children) == 0 {
		return nil, false
	}
	out := make([]platform.Row, 0, len(children))
	for _, child := range children {
		out = append(out, project(child, e.Columns))
	}
	return out, true
}

func matches(row platform.Row, filters []platform.Filter) bool {
	for _, f := range filters {
		if !valuesEqual(row[f.Column], f.Value) {
			return false
		}
	}
	return true
}

func sortRows(rows []platform.Row, order []platform.Order) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			a, b := rows[i][o.Column], rows[j][o.Column]
			if valuesEqual(a, b) {
				continue
			}
			if o.Desc {
				return lessValue(b, a)
			}
			return lessValue(a, b)
		}
		return false
	})
}

func window(rows []platform.Row, offset, limit int) []platform.Row {
	if offset > 0 {
		if offset >= len(rows) {
			return []platform.Row{}
		}
		rows = rows[offset:]
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func project(row platform.Row, columns []string) platform.Row {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		return copyRow(row)
	}
	out := make(platform.Row, len(columns))
	for _, col := range columns {
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	return out
}

func copyRow(row platform.Row) platform.Row {
	out := make(platform.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return fa == fb
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func lessValue(a, b any) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Before(tb)
		}
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return fa < fb
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
