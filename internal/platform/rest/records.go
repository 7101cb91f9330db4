package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"companion-backend/internal/platform"
)

const objectAccept = "application/vnd.pgrst.object+json"

// Records implements platform.Records against /rest/v1 with the service key.
type Records struct {
	c *Client
}

func (r *Records) Select(ctx context.Context, q platform.Query) ([]platform.Row, error) {
	resp, err := r.c.service().
		SetContext(ctx).
		SetQueryParamsFromValues(queryValues(q)).
		Get("/rest/v1/" + q.Table)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	return decodeRows(resp.Body())
}

func (r *Records) SelectOne(ctx context.Context, q platform.Query) (platform.Row, error) {
	resp, err := r.c.service().
		SetContext(ctx).
		SetHeader("Accept", objectAccept).
		SetQueryParamsFromValues(queryValues(q)).
		Get("/rest/v1/" + q.Table)
	if err != nil {
		return nil, fmt.Errorf("select one %s: %w", q.Table, err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	var row platform.Row
	if err := json.Unmarshal(resp.Body(), &row); err != nil {
		return nil, fmt.Errorf("decode %s row: %w", q.Table, err)
	}
	return row, nil
}

func (r *Records) Insert(ctx context.Context, table string, row platform.Row) (platform.Row, error) {
	resp, err := r.c.service().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetHeader("Accept", objectAccept).
		SetHeader("Content-Type", "application/json").
		SetBody(row).
		Post("/rest/v1/" + table)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	var out platform.Row
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode %s row: %w", table, err)
	}
	return out, nil
}

func (r *Records) Update(ctx context.Context, table string, set platform.Row, filters ...platform.Filter) ([]platform.Row, error) {
	values := url.Values{}
	addFilters(values, filters)
	resp, err := r.c.service().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetHeader("Content-Type", "application/json").
		SetQueryParamsFromValues(values).
		SetBody(set).
		Patch("/rest/v1/" + table)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	return decodeRows(resp.Body())
}

func (r *Records) Upsert(ctx context.Context, table string, row platform.Row, onConflict ...string) (platform.Row, error) {
	req := r.c.service().
		SetContext(ctx).
		SetHeader("Prefer", "resolution=merge-duplicates,return=representation").
		SetHeader("Content-Type", "application/json").
		SetBody([]platform.Row{row})
	if len(onConflict) > 0 {
		req.SetQueryParam("on_conflict", strings.Join(onConflict, ","))
	}
	resp, err := req.Post("/rest/v1/" + table)
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", table, err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	rows, err := decodeRows(resp.Body())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return platform.Row{}, nil
	}
	return rows[0], nil
}

func (r *Records) Delete(ctx context.Context, table string, filters ...platform.Filter) error {
	values := url.Values{}
	addFilters(values, filters)
	resp, err := r.c.service().
		SetContext(ctx).
		SetQueryParamsFromValues(values).
		Delete("/rest/v1/" + table)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return mapHTTPError(resp)
}

func (r *Records) Call(ctx context.Context, fn string, params map[string]any) (json.RawMessage, error) {
	if params == nil {
		params = map[string]any{}
	}
	resp, err := r.c.service().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(params).
		Post("/rest/v1/rpc/" + fn)
	if err != nil {
		return nil, fmt.Errorf("rpc %s: %w", fn, err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body()), nil
}

func decodeRows(body []byte) ([]platform.Row, error) {
	var rows []platform.Row
	if len(body) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

// queryValues renders q in the records API query grammar.
func queryValues(q platform.Query) url.Values {
	values := url.Values{}
	values.Set("select", selectClause(q))
	addFilters(values, q.Filters)
	if len(q.Order) > 0 {
		values.Set("order", orderClause(q.Order))
	}
	for _, e := range q.Embeds {
		if len(e.Order) > 0 {
			values.Set(e.Name()+".order", orderClause(e.Order))
		}
		if e.Limit > 0 {
			values.Set(e.Name()+".limit", strconv.Itoa(e.Limit))
		}
	}
	if q.Offset > 0 {
		values.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return values
}

func selectClause(q platform.Query) string {
	parts := []string{columnList(q.Columns)}
	for _, e := range q.Embeds {
		frag := e.Table
		if e.Alias != "" && e.Alias != e.Table {
			frag = e.Alias + ":" + e.Table
		}
		if e.Inner {
			frag += "!inner"
		}
		parts = append(parts, frag+"("+columnList(e.Columns)+")")
	}
	return strings.Join(parts, ",")
}

func columnList(cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	return strings.Join(cols, ",")
}

func orderClause(orders []platform.Order) string {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		dir := "asc"
		if o.Desc {
			dir = "desc"
		}
		parts = append(parts, o.Column+"."+dir)
	}
	return strings.Join(parts, ",")
}

func addFilters(values url.Values, filters []platform.Filter) {
	for _, f := range filters {
		if f.Value == nil {
			values.Add(f.Column, "is.null")
			continue
		}
		values.Add(f.Column, "eq."+formatValue(f.Value))
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}

var _ platform.Records = (*Records)(nil)
