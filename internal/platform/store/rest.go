package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Rest is the Client backend for the hosted store's REST interface
// (PostgREST dialect under /rest/v1). Requests carry the project API key;
// when a token provider is attached, the current session's access token is
// sent as the bearer so the store applies per-user row policies.
type Rest struct {
	http   *resty.Client
	apiKey string
	token  func() string
	logger zerolog.Logger
}

func NewRest(baseURL, apiKey string, logger zerolog.Logger) *Rest {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Rest{
		http:   client,
		apiKey: apiKey,
		logger: logger,
	}
}

// SetTokenProvider attaches a source for the per-request bearer token,
// normally the session manager's current access token. Without one the API
// key is used as the bearer.
func (r *Rest) SetTokenProvider(fn func() string) {
	r.token = fn
}

func (r *Rest) request(ctx context.Context) *resty.Request {
	bearer := r.apiKey
	if r.token != nil {
		if t := r.token(); t != "" {
			bearer = t
		}
	}
	return r.http.R().
		SetContext(ctx).
		SetHeader("apikey", r.apiKey).
		SetHeader("Authorization", "Bearer "+bearer)
}

func queryParams(q Query) map[string]string {
	params := map[string]string{}
	for _, f := range q.filters {
		params[f.Field] = fmt.Sprintf("eq.%v", f.Value)
	}
	if q.orderBy != "" {
		dir := "asc"
		if q.orderDesc {
			dir = "desc"
		}
		params["order"] = q.orderBy + "." + dir
	}
	if q.limit > 0 {
		params["limit"] = fmt.Sprint(q.limit)
	}
	return params
}

func (r *Rest) Select(ctx context.Context, q Query, dest interface{}) error {
	req := r.request(ctx).SetQueryParams(queryParams(q))
	if q.single {
		// Exactly-one-row representation; the store answers 406 otherwise.
		req.SetHeader("Accept", "application/vnd.pgrst.object+json")
	}

	resp, err := req.Get("/rest/v1/" + q.table)
	if err != nil {
		return fmt.Errorf("select %s: %w", q.table, err)
	}
	if q.single && (resp.StatusCode() == http.StatusNotAcceptable || resp.StatusCode() == http.StatusNotFound) {
		return ErrNotFound
	}
	if resp.IsError() {
		return fmt.Errorf("select %s: store returned status %d: %s", q.table, resp.StatusCode(), resp.String())
	}
	return unmarshalBody(resp.Body(), dest)
}

func (r *Rest) Insert(ctx context.Context, table string, row interface{}, dest interface{}) error {
	resp, err := r.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody([]interface{}{row}).
		Post("/rest/v1/" + table)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	if resp.IsError() {
		return fmt.Errorf("insert %s: store returned status %d: %s", table, resp.StatusCode(), resp.String())
	}
	return firstOf(resp.Body(), dest)
}

func (r *Rest) Update(ctx context.Context, q Query, fields interface{}, dest interface{}) error {
	resp, err := r.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParams(queryParams(q)).
		SetBody(fields).
		Patch("/rest/v1/" + q.table)
	if err != nil {
		return fmt.Errorf("update %s: %w", q.table, err)
	}
	if resp.IsError() {
		return fmt.Errorf("update %s: store returned status %d: %s", q.table, resp.StatusCode(), resp.String())
	}
	return firstOf(resp.Body(), dest)
}

func (r *Rest) Delete(ctx context.Context, q Query) error {
	resp, err := r.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParams(queryParams(q)).
		Delete("/rest/v1/" + q.table)
	if err != nil {
		return fmt.Errorf("delete %s: %w", q.table, err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete %s: store returned status %d: %s", q.table, resp.StatusCode(), resp.String())
	}
	var deleted []json.RawMessage
	if err := json.Unmarshal(resp.Body(), &deleted); err != nil {
		return fmt.Errorf("delete %s: decode response: %w", q.table, err)
	}
	if len(deleted) == 0 {
		return ErrNotFound
	}
	return nil
}

func unmarshalBody(body []byte, dest interface{}) error {
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// firstOf decodes the first element of a representation array into dest.
// An empty array means the mutation matched nothing.
func firstOf(body []byte, dest interface{}) error {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(rows[0], dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
