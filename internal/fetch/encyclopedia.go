package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"voice-command-backend/internal/metrics"
)

const (
	NoInformationText = "My data banks lack specific information on that from Wikipedia."
	UnstableText      = "Connectivity to Wikipedia servers appears unstable."

	DefaultEncyclopediaURL = "https://en.wikipedia.org/api/rest_v1"
)

// Encyclopedia looks up page summaries on the Wikipedia REST API.
type Encyclopedia struct {
	client  *Client
	baseAPI string
	logger  *slog.Logger
}

func NewEncyclopedia(client *Client, baseAPI string, logger *slog.Logger) *Encyclopedia {
	if baseAPI == "" {
		baseAPI = DefaultEncyclopediaURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Encyclopedia{client: client, baseAPI: strings.TrimRight(baseAPI, "/"), logger: logger}
}

type pageSummary struct {
	Extract string `json:"extract"`
}

// Summary returns the page extract for query, or one of the fixed
// fallback sentences. It never fails.
func (e *Encyclopedia) Summary(ctx context.Context, query string) string {
	var page pageSummary
	path := "/page/summary/" + url.PathEscape(query)
	if _, err := e.client.getJSON(ctx, e.baseAPI+path, &page); err != nil {
		e.logger.Error("encyclopedia_fetch_failed", "query", query, "error", err)
		metrics.FetchOutcomes.WithLabelValues("encyclopedia", "error").Inc()
		return UnstableText
	}
	if strings.TrimSpace(page.Extract) == "" {
		metrics.FetchOutcomes.WithLabelValues("encyclopedia", "no_extract").Inc()
		return NoInformationText
	}
	metrics.FetchOutcomes.WithLabelValues("encyclopedia", "ok").Inc()
	return page.Extract
}
