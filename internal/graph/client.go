package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/officepulse/officepulse/internal/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrPermissionDenied marks a 403 from Graph. Expected-possible while tenant
// application permissions are still being configured; callers degrade to a
// warning instead of failing the run.
var ErrPermissionDenied = errors.New("graph: permission denied")

// StatusError is a non-2xx Graph response other than 403.
type StatusError struct {
	Status int
	URL    string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graph: %s returned %d: %s", e.URL, e.Status, e.Body)
}

// IsNotFound reports whether err is a Graph 404. Metadata loaders treat it
// as a typed empty result (content deleted or never existed).
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// IsConflict reports whether err is a Graph 409, e.g. an app that is
// already installed for the user.
func IsConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusConflict
}

// Client is a thin paged-JSON client over the Graph REST API, authenticated
// with the client-credential flow.
type Client struct {
	httpClient *http.Client
	tokens     *clientcredentials.Config
	base       string
	log        *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	cc := &clientcredentials.Config{
		ClientID:     cfg.Graph.ClientID,
		ClientSecret: cfg.Graph.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.Graph.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	return &Client{
		httpClient: cc.Client(context.Background()),
		tokens:     cc,
		base:       cfg.Graph.BaseURL,
		log:        log.Named("graph.client"),
	}
}

// NewClientWithHTTP builds a client over a caller-supplied transport. Used by
// tests and anywhere token handling is external.
func NewClientWithHTTP(base string, httpClient *http.Client, log *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		base:       base,
		log:        log.Named("graph.client"),
	}
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string { return c.base }

// Authenticate forces a token fetch so a bad credential fails the run before
// any loader starts.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.tokens == nil {
		return nil
	}
	if _, err := c.tokens.TokenSource(ctx).Token(); err != nil {
		return fmt.Errorf("graph auth: %w", err)
	}
	return nil
}

type oDataPage struct {
	NextLink string            `json:"@odata.nextLink"`
	Value    []json.RawMessage `json:"value"`
}

// GetPages fetches url and follows @odata.nextLink until exhausted, returning
// the concatenated value items.
func (c *Client) GetPages(ctx context.Context, url string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	next := url
	for next != "" {
		var page oDataPage
		if err := c.GetJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Value...)
		next = page.NextLink
	}
	return items, nil
}

// GetJSON performs a single GET and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: GET %s", ErrPermissionDenied, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Status: resp.StatusCode, URL: url, Body: string(body)}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// PostJSON performs a single POST with a JSON body. A nil out discards the
// response body.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: POST %s", ErrPermissionDenied, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Status: resp.StatusCode, URL: url, Body: string(snippet)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
