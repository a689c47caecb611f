// Package client talks to console-api on behalf of the operator console.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
)

// ErrTransient marks failures worth retrying on the next refresh: the API
// was unreachable or answered with a 5xx.
var ErrTransient = errors.New("api temporarily unavailable")

// APIError is a non-2xx answer. Detail is the server's human-readable message.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
}

func (e *APIError) Is(target error) bool {
	return target == ErrTransient && e.Status >= http.StatusInternalServerError
}

type Option func(*Client)

// WithNetworkObserver reports after every call whether the network path to
// the API worked, independent of the HTTP status.
func WithNetworkObserver(fn func(online bool)) Option {
	return func(c *Client) {
		c.observe = fn
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

type Client struct {
	log     *slog.Logger
	base    *url.URL
	token   string
	http    *http.Client
	observe func(online bool)
}

func New(log *slog.Logger, baseURL string, timeout time.Duration, token string, opts ...Option) (*Client, error) {
	const op = "console.client.New"

	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", op, baseURL)
	}

	c := &Client{
		log:   log.With(slog.String("component", "console/client")),
		base:  base,
		token: token,
		http:  &http.Client{Timeout: timeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) Dashboard(ctx context.Context, startDate, endDate string) (models.MetricsSnapshot, error) {
	q := url.Values{}
	if startDate != "" {
		q.Set("start_date", startDate)
	}
	if endDate != "" {
		q.Set("end_date", endDate)
	}

	var snap models.MetricsSnapshot
	err := c.do(ctx, http.MethodGet, "/admin/dashboard", q, nil, &snap)

	return snap, err
}

func (c *Client) Searches(ctx context.Context, q url.Values) (models.Page[models.SearchEvent], error) {
	return list[models.SearchEvent](ctx, c, models.KindSearches, q)
}

func (c *Client) Clicks(ctx context.Context, q url.Values) (models.Page[models.ClickEvent], error) {
	q = without(q, "group_by_user")
	return list[models.ClickEvent](ctx, c, models.KindClicks, q)
}

// ClickSummaries lists clicks aggregated per user.
func (c *Client) ClickSummaries(ctx context.Context, q url.Values) (models.Page[models.UserClickSummary], error) {
	q = without(q, "group_by_user")
	q.Set("group_by_user", "true")
	return list[models.UserClickSummary](ctx, c, models.KindClicks, q)
}

func (c *Client) Users(ctx context.Context, q url.Values) (models.Page[models.AnonymousUser], error) {
	return list[models.AnonymousUser](ctx, c, models.KindUsers, q)
}

func (c *Client) Tickets(ctx context.Context, q url.Values) (models.Page[models.Ticket], error) {
	return list[models.Ticket](ctx, c, models.KindTickets, q)
}

// TicketUpdate is the saved ticket plus the server's partial-success warning.
type TicketUpdate struct {
	models.Ticket
	Warning string `json:"warning,omitempty"`
}

// UpdateTicket submits the given form fields to PUT /admin/tickets/{id}.
func (c *Client) UpdateTicket(ctx context.Context, id int64, fields url.Values) (TicketUpdate, error) {
	var out TicketUpdate
	err := c.do(ctx, http.MethodPut, "/admin/tickets/"+strconv.FormatInt(id, 10), nil, fields, &out)
	return out, err
}

// Probe checks the API's liveness endpoint.
func (c *Client) Probe(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

type listBody struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	TotalCount int `json:"total_count"`
}

func list[T any](ctx context.Context, c *Client, kind models.EntityKind, q url.Values) (models.Page[T], error) {
	const op = "console.client.list"

	var raw map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/admin/"+string(kind), q, nil, &raw); err != nil {
		return models.Page[T]{}, err
	}

	var meta listBody
	items := []T{}

	for key, v := range raw {
		var err error
		switch key {
		case string(kind):
			err = json.Unmarshal(v, &items)
		case "page":
			err = json.Unmarshal(v, &meta.Page)
		case "per_page":
			err = json.Unmarshal(v, &meta.PerPage)
		case "total_pages":
			err = json.Unmarshal(v, &meta.TotalPages)
		case "total_count":
			err = json.Unmarshal(v, &meta.TotalCount)
		}
		if err != nil {
			return models.Page[T]{}, fmt.Errorf("%s: decode %s: %w", op, key, err)
		}
	}

	return models.Page[T]{
		Items:      items,
		Page:       meta.Page,
		PerPage:    meta.PerPage,
		TotalPages: meta.TotalPages,
		TotalCount: meta.TotalCount,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, q, form url.Values, out any) error {
	const op = "console.client.do"

	u := *c.base
	u.Path += path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			c.network(false)
		}
		return fmt.Errorf("%s: %s %s: %w: %w", op, method, path, ErrTransient, err)
	}
	defer res.Body.Close()

	c.network(true)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return decodeError(res)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode %s: %w", op, path, err)
	}

	return nil
}

func decodeError(res *http.Response) error {
	var body struct {
		Detail string `json:"detail"`
	}

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Detail == "" {
		body.Detail = http.StatusText(res.StatusCode)
	}

	return &APIError{Status: res.StatusCode, Detail: body.Detail}
}

func (c *Client) network(online bool) {
	if c.observe != nil {
		c.observe(online)
	}
}

func without(q url.Values, key string) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		if k != key {
			out[k] = append([]string(nil), v...)
		}
	}
	return out
}
