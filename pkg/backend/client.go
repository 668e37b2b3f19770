package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "go-maintenance-dashboard"

// Config configures the REST client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// RateLimit caps outbound requests per second. Zero disables limiting.
	RateLimit float64
	Burst     int
	UserAgent string
}

// Client talks to the maintenance REST backend on behalf of a session.
// The bearer token travels in the request context (see WithToken).
type Client struct {
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewClient builds a client for the backend rooted at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("backend: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("backend: invalid base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	c := &Client{
		baseURL:   base,
		client:    httpClient,
		userAgent: cfg.UserAgent,
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// List fetches one page of a resource.
func (c *Client) List(ctx context.Context, resource string, query ListQuery) (Page, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, resourcePath(resource), query.Values(), nil, &raw); err != nil {
		return Page{}, err
	}
	return decodePage(raw)
}

// Get fetches a single record.
func (c *Client) Get(ctx context.Context, resource, id string) (Record, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, recordPath(resource, id), nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

// Create posts a new record and returns the stored version.
func (c *Client) Create(ctx context.Context, resource string, record Record) (Record, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, resourcePath(resource), nil, record, &raw); err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

// Update replaces a record.
func (c *Client) Update(ctx context.Context, resource, id string, record Record) (Record, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, recordPath(resource, id), nil, record, &raw); err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, resource, id string) error {
	return c.do(ctx, http.MethodDelete, recordPath(resource, id), nil, nil, nil)
}

// Stats fetches a pre-aggregated statistics document.
func (c *Client) Stats(ctx context.Context, path string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, resourcePath(path), nil, nil, &raw); err != nil {
		return nil, err
	}
	return unwrapData(raw), nil
}

// Catalog fetches a full reference list (ciudades, departamentos, marcas).
func (c *Client) Catalog(ctx context.Context, name string) ([]Record, error) {
	page, err := c.List(ctx, "generales/"+strings.Trim(name, "/"), ListQuery{})
	if err != nil {
		return nil, err
	}
	return page.Rows, nil
}

// Export asks the backend to generate a file and returns its reference.
func (c *Client) Export(ctx context.Context, resource, format string, query ListQuery) (ExportRef, error) {
	values := query.Values()
	values.Set("format", format)
	var ref ExportRef
	if err := c.do(ctx, http.MethodPost, resourcePath(resource)+"/export", values, nil, &ref); err != nil {
		return ExportRef{}, err
	}
	if ref.URL == "" {
		return ExportRef{}, goerrors.New("backend: export returned no file reference", goerrors.CategoryExternal).
			WithTextCode("EXPORT_EMPTY")
	}
	return ref, nil
}

// Login exchanges credentials for a bearer token and user profile.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	payload := map[string]string{"username": username, "password": password}
	var result LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, payload, &result); err != nil {
		return LoginResult{}, err
	}
	if result.Token == "" {
		return LoginResult{}, goerrors.New("backend: login returned no token", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode("TOKEN_MISSING")
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, target any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryRateLimit, "backend: rate limit wait").
				WithTextCode("RATE_LIMITED")
		}
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "backend: encode payload")
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "backend: build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "backend: http request").
			WithTextCode(TextCodeUnavailable).
			WithMetadata(map[string]any{"method": method, "path": path})
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return remoteError(method, path, resp)
	}
	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(target); err != nil {
		if err == io.EOF {
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryExternal, "backend: decode response").
			WithTextCode("DECODE_FAILED")
	}
	return nil
}

func resourcePath(resource string) string {
	return "/" + strings.Trim(resource, "/")
}

func recordPath(resource, id string) string {
	return resourcePath(resource) + "/" + url.PathEscape(id)
}

func decodePage(raw json.RawMessage) (Page, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Page{Rows: []Record{}}, nil
	}
	if trimmed[0] == '[' {
		var rows []Record
		if err := unmarshalNumbers(trimmed, &rows); err != nil {
			return Page{}, goerrors.Wrap(err, goerrors.CategoryExternal, "backend: decode list").
				WithTextCode("DECODE_FAILED")
		}
		return Page{Rows: rows, Total: len(rows)}, nil
	}
	var page Page
	if err := unmarshalNumbers(trimmed, &page); err != nil {
		return Page{}, goerrors.Wrap(err, goerrors.CategoryExternal, "backend: decode list").
			WithTextCode("DECODE_FAILED")
	}
	if page.Rows == nil {
		page.Rows = []Record{}
	}
	if page.Total < len(page.Rows) {
		page.Total = len(page.Rows)
	}
	return page, nil
}

func decodeRecord(raw json.RawMessage) (Record, error) {
	var record Record
	if err := unmarshalNumbers(unwrapData(raw), &record); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "backend: decode record").
			WithTextCode("DECODE_FAILED")
	}
	return record, nil
}

// unwrapData strips a {"data": ...} envelope when it is the only key.
func unwrapData(raw json.RawMessage) json.RawMessage {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope) != 1 {
		return raw
	}
	if data, ok := envelope["data"]; ok {
		return data
	}
	return raw
}

func unmarshalNumbers(data []byte, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	return decoder.Decode(target)
}
