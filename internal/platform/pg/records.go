// Package pg implements platform.Records directly on PostgreSQL. Every read and
// write is wrapped so the database renders rows as JSON, which keeps row values
// identical in shape to what the hosted records API returns.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"companion-backend/internal/platform"
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Records runs queries on a shared *sql.DB.
type Records struct {
	db *sql.DB
}

// New wraps db. The pool is owned by the caller.
func New(db *sql.DB) *Records {
	return &Records{db: db}
}

func (r *Records) Select(ctx context.Context, q platform.Query) ([]platform.Row, error) {
	inner, err := selectBuilder(q)
	if err != nil {
		return nil, err
	}
	query, args, err := aggregate(inner).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", q.Table, err)
	}
	return r.queryRows(ctx, query, args)
}

func (r *Records) SelectOne(ctx context.Context, q platform.Query) (platform.Row, error) {
	if q.Limit == 0 || q.Limit > 2 {
		q.Limit = 2
	}
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
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	cols, vals, err := columnsAndValues(row)
	if err != nil {
		return nil, err
	}
	b := sq.Insert(table).Columns(cols...).Values(vals...).Suffix("RETURNING *")
	rows, err := r.write(ctx, b)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, platform.NotFound(table)
	}
	return rows[0], nil
}

func (r *Records) Update(ctx context.Context, table string, set platform.Row, filters ...platform.Filter) ([]platform.Row, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return nil, fmt.Errorf("update %s requires a filter", table)
	}
	cols, vals, err := columnsAndValues(set)
	if err != nil {
		return nil, err
	}
	b := sq.Update(table)
	for i, c := range cols {
		b = b.Set(c, vals[i])
	}
	where, err := filterEq("", filters)
	if err != nil {
		return nil, err
	}
	return r.write(ctx, b.Where(where).Suffix("RETURNING *"))
}

func (r *Records) Upsert(ctx context.Context, table string, row platform.Row, onConflict ...string) (platform.Row, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	if len(onConflict) == 0 {
		onConflict = []string{"id"}
	}
	for _, c := range onConflict {
		if err := checkIdent(c); err != nil {
			return nil, err
		}
	}
	cols, vals, err := columnsAndValues(row)
	if err != nil {
		return nil, err
	}

	updates := make([]string, 0, len(cols))
	for _, c := range cols {
		if contains(onConflict, c) {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	action := "DO NOTHING"
	if len(updates) > 0 {
		action = "DO UPDATE SET " + strings.Join(updates, ", ")
	}
	suffix := fmt.Sprintf("ON CONFLICT (%s) %s RETURNING *", strings.Join(onConflict, ", "), action)

	rows, err := r.write(ctx, sq.Insert(table).Columns(cols...).Values(vals...).Suffix(suffix))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return platform.Row{}, nil
	}
	return rows[0], nil
}

func (r *Records) Delete(ctx context.Context, table string, filters ...platform.Filter) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	if len(filters) == 0 {
		return fmt.Errorf("delete from %s requires a filter", table)
	}
	where, err := filterEq("", filters)
	if err != nil {
		return err
	}
	_, err = r.write(ctx, sq.Delete(table).Where(where).Suffix("RETURNING *"))
	return err
}

// Call invokes a set-returning or scalar function with named arguments.
func (r *Records) Call(ctx context.Context, fn string, params map[string]any) (json.RawMessage, error) {
	if err := checkIdent(fn); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(params))
	for k := range params {
		if err := checkIdent(k); err != nil {
			return nil, err
		}
		names = append(names, k)
	}
	sort.Strings(names)

	args := make([]any, 0, len(names))
	named := make([]string, 0, len(names))
	for _, n := range names {
		v, err := encodeValue(params[n])
		if err != nil {
			return nil, err
		}
		named = append(named, n+" => ?")
		args = append(args, v)
	}

	call := sq.Expr(fmt.Sprintf("%s(%s)", fn, strings.Join(named, ", ")), args...)
	raw, qargs, err := sq.ConcatExpr("SELECT coalesce(json_agg(t), '[]'::json) FROM ", call, " AS t").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build call %s: %w", fn, err)
	}
	stmt, err := sq.Dollar.ReplacePlaceholders(raw)
	if err != nil {
		return nil, fmt.Errorf("build call %s: %w", fn, err)
	}

	var out []byte
	if err := r.db.QueryRowContext(ctx, stmt, qargs...).Scan(&out); err != nil {
		return nil, classify(err)
	}
	var single []json.RawMessage
	if err := json.Unmarshal(out, &single); err == nil && len(single) == 1 && isScalar(single[0]) {
		return single[0], nil
	}
	return json.RawMessage(out), nil
}

func (r *Records) write(ctx context.Context, b sq.Sqlizer) ([]platform.Row, error) {
	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	stmt, err = sq.Dollar.ReplacePlaceholders(stmt)
	if err != nil {
		return nil, err
	}
	wrapped := "WITH w AS (" + stmt + ") SELECT coalesce(json_agg(w), '[]'::json) FROM w"
	return r.queryRows(ctx, wrapped, args)
}

func (r *Records) queryRows(ctx context.Context, query string, args []any) ([]platform.Row, error) {
	var out []byte
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&out); err != nil {
		return nil, classify(err)
	}
	var rows []platform.Row
	if err := json.Unmarshal(out, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	if rows == nil {
		rows = []platform.Row{}
	}
	return rows, nil
}

// selectBuilder renders q against the parent alias p. Embeds become
// correlated subqueries that return JSON.
func selectBuilder(q platform.Query) (sq.SelectBuilder, error) {
	if err := checkIdent(q.Table); err != nil {
		return sq.SelectBuilder{}, err
	}
	cols, err := qualify("p", q.Columns)
	if err != nil {
		return sq.SelectBuilder{}, err
	}
	b := sq.Select(cols...).From(q.Table + " AS p")

	for _, e := range q.Embeds {
		sub, exists, err := embedBuilder(e)
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		b = b.Column(sq.Alias(sub, e.Name()))
		if e.Inner {
			b = b.Where(sq.ConcatExpr("EXISTS (", exists, ")"))
		}
	}

	if len(q.Filters) > 0 {
		where, err := filterEq("p.", q.Filters)
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		b = b.Where(where)
	}
	orders, err := orderBy("p.", q.Order)
	if err != nil {
		return sq.SelectBuilder{}, err
	}
	b = b.OrderBy(orders...)
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		b = b.Offset(uint64(q.Offset))
	}
	return b, nil
}

func embedBuilder(e platform.Embed) (sq.SelectBuilder, sq.SelectBuilder, error) {
	for _, id := range []string{e.Table, e.Name(), e.ForeignKey} {
		if err := checkIdent(id); err != nil {
			return sq.SelectBuilder{}, sq.SelectBuilder{}, err
		}
	}
	cols, err := qualify("c", e.Columns)
	if err != nil {
		return sq.SelectBuilder{}, sq.SelectBuilder{}, err
	}

	join := fmt.Sprintf("c.id = p.%s", e.ForeignKey)
	if e.Many {
		join = fmt.Sprintf("c.%s = p.id", e.ForeignKey)
	}
	exists := sq.Select("1").From(e.Table + " AS c").Where(join)

	inner := sq.Select(cols...).From(e.Table + " AS c").Where(join)
	if !e.Many {
		return sq.Select("row_to_json(e)").FromSelect(inner.Limit(1), "e"), exists, nil
	}
	orders, err := orderBy("c.", e.Order)
	if err != nil {
		return sq.SelectBuilder{}, sq.SelectBuilder{}, err
	}
	inner = inner.OrderBy(orders...)
	if e.Limit > 0 {
		inner = inner.Limit(uint64(e.Limit))
	}
	return sq.Select("coalesce(json_agg(e), '[]'::json)").FromSelect(inner, "e"), exists, nil
}

func aggregate(inner sq.SelectBuilder) sq.SelectBuilder {
	return sq.Select("coalesce(json_agg(t), '[]'::json)").
		FromSelect(inner, "t").
		PlaceholderFormat(sq.Dollar)
}

func filterEq(prefix string, filters []platform.Filter) (sq.And, error) {
	where := sq.And{}
	for _, f := range filters {
		if err := checkIdent(f.Column); err != nil {
			return nil, err
		}
		v, err := encodeValue(f.Value)
		if err != nil {
			return nil, err
		}
		where = append(where, sq.Eq{prefix + f.Column: v})
	}
	return where, nil
}

func orderBy(prefix string, orders []platform.Order) ([]string, error) {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		if err := checkIdent(o.Column); err != nil {
			return nil, err
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		out = append(out, prefix+o.Column+" "+dir)
	}
	return out, nil
}

func qualify(alias string, cols []string) ([]string, error) {
	if len(cols) == 0 {
		return []string{alias + ".*"}, nil
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == "*" {
			out = append(out, alias+".*")
			continue
		}
		if err := checkIdent(c); err != nil {
			return nil, err
		}
		out = append(out, alias+"."+c)
	}
	return out, nil
}

// columnsAndValues returns the row's columns in sorted order so statements are deterministic.
func columnsAndValues(row platform.Row) ([]string, []any, error) {
	cols := make([]string, 0, len(row))
	for c := range row {
		if err := checkIdent(c); err != nil {
			return nil, nil, err
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	vals := make([]any, 0, len(cols))
	for _, c := range cols {
		v, err := encodeValue(row[c])
		if err != nil {
			return nil, nil, err
		}
		vals = append(vals, v)
	}
	return cols, vals, nil
}

// encodeValue sends maps and slices as JSON text for jsonb columns.
func encodeValue(v any) (any, error) {
	switch v.(type) {
	case map[string]any, []any, []string, platform.Row:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode value: %w", err)
		}
		return string(b), nil
	default:
		return v, nil
	}
}

func checkIdent(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isScalar(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed[0] != '{' && trimmed[0] != '['
}

var _ platform.Records = (*Records)(nil)
