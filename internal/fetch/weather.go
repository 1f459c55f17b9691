package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"voice-command-backend/internal/command"
	"voice-command-backend/internal/metrics"
)

const (
	DefaultWeatherURL = "https://api.openweathermap.org/data/2.5/weather"
	// PlaceholderAPIKey is treated the same as an empty key.
	PlaceholderAPIKey = "YOUR_OPENWEATHER_API_KEY"

	MissingKeySpeech  = "Sir, I require an API key to access weather data."
	MissingKeyDisplay = "Weather data unavailable: API key missing."
	InvalidKeySpeech  = "Sir, the provided API key for weather data appears to be invalid."
	InvalidKeyDisplay = "Weather data unavailable: Invalid API key."
	NetworkSpeech     = "Unable to retrieve current atmospheric data."
	NetworkDisplay    = "Weather data unavailable due to a network issue."
)

// Weather reports current conditions for one configured city via OpenWeather.
type Weather struct {
	client  *Client
	baseAPI string
	apiKey  string
	city    string
	logger  *slog.Logger
}

type WeatherOptions struct {
	BaseAPI string
	APIKey  string
	City    string
	Logger  *slog.Logger
}

func NewWeather(client *Client, opts WeatherOptions) *Weather {
	if opts.BaseAPI == "" {
		opts.BaseAPI = DefaultWeatherURL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Weather{
		client:  client,
		baseAPI: opts.BaseAPI,
		apiKey:  strings.TrimSpace(opts.APIKey),
		city:    opts.City,
		logger:  opts.Logger,
	}
}

type weatherResponse struct {
	Cod     json.RawMessage `json:"cod"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
}

// Report speaks and displays the outcome of a lookup. Every path ends in a
// message; nothing is returned.
func (w *Weather) Report(ctx context.Context, out command.Announcer) {
	if w.apiKey == "" || w.apiKey == PlaceholderAPIKey {
		metrics.FetchOutcomes.WithLabelValues("weather", "missing_key").Inc()
		out.Speak(MissingKeySpeech)
		out.Show(MissingKeyDisplay)
		return
	}

	q := url.Values{}
	q.Set("q", w.city)
	q.Set("appid", w.apiKey)
	q.Set("units", "metric")

	var resp weatherResponse
	status, err := w.client.getJSON(ctx, w.baseAPI+"?"+q.Encode(), &resp)
	if err != nil {
		w.networkFailure(out, err)
		return
	}
	code, ok := parseCod(resp.Cod)
	if !ok {
		code = status
	}
	switch {
	case code == 401:
		metrics.FetchOutcomes.WithLabelValues("weather", "invalid_key").Inc()
		out.Speak(InvalidKeySpeech)
		out.Show(InvalidKeyDisplay)
		return
	case code != 200:
		w.logger.Warn("weather_lookup_rejected", "city", w.city, "code", code)
		metrics.FetchOutcomes.WithLabelValues("weather", "rejected").Inc()
		out.Speak(fmt.Sprintf("My sensors indicate a problem retrieving weather data for %s.", w.city))
		out.Show(fmt.Sprintf("Weather data unavailable for %s.", w.city))
		return
	}
	if len(resp.Weather) == 0 || resp.Main.Temp == nil {
		w.networkFailure(out, fmt.Errorf("incomplete weather payload"))
		return
	}

	text := fmt.Sprintf("Atmospheric analysis for %s: %s, temperature %s°Celsius.",
		w.city, resp.Weather[0].Description, strconv.FormatFloat(*resp.Main.Temp, 'f', -1, 64))
	metrics.FetchOutcomes.WithLabelValues("weather", "ok").Inc()
	out.Speak(text)
	out.Show(text)
}

func (w *Weather) networkFailure(out command.Announcer, err error) {
	w.logger.Error("weather_fetch_failed", "city", w.city, "error", err)
	metrics.FetchOutcomes.WithLabelValues("weather", "error").Inc()
	out.Speak(NetworkSpeech)
	out.Show(NetworkDisplay)
}

// parseCod reads OpenWeather's status field, which arrives either as a
// number (200) or a string ("401").
func parseCod(raw json.RawMessage) (int, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
