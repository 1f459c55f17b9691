package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// Client is the shared HTTP plumbing for the lookups: one limiter, one
// timeout, JSON decoding.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

type ClientOptions struct {
	Timeout       time.Duration
	RatePerSecond float64
	// Optional OAuth2 client credentials. When ClientID is set every request
	// carries a bearer token from TokenURL.
	ClientID     string
	ClientSecret string
	TokenURL     string
}

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	httpClient := &http.Client{Timeout: opts.Timeout}
	if opts.ClientID != "" && opts.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = cc.Client(ctx)
		httpClient.Timeout = opts.Timeout
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// getJSON issues a GET and decodes the body into out whatever the status
// code; both upstream APIs describe failures in the JSON body.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", req.URL.Host, err)
	}
	return resp.StatusCode, nil
}
