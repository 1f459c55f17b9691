package command

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Speaker performs speech synthesis for a line of text. Fire-and-forget.
type Speaker interface {
	Speak(text string)
}

// Display is the single status/result text region.
type Display interface {
	Show(text string)
}

// Navigator opens a URL in a new browsing context. Fire-and-forget.
type Navigator interface {
	Open(url string)
}

// Announcer speaks and displays; the weather reporter only needs this much.
type Announcer interface {
	Speaker
	Display
}

// Surface is everything a dispatch can touch.
type Surface interface {
	Speaker
	Display
	Navigator
}

// Runner schedules the asynchronous part of a dispatch.
// *pool.Pool from sourcegraph/conc satisfies it.
type Runner interface {
	Go(f func())
}

// EncyclopediaFetcher resolves a query to a summary sentence. It always
// returns text, substituting a fallback sentence on failure.
type EncyclopediaFetcher interface {
	Summary(ctx context.Context, query string) string
}

// WeatherReporter looks up the configured city and announces the outcome itself.
type WeatherReporter interface {
	Report(ctx context.Context, out Announcer)
}

const DefaultSearchURL = "https://www.google.com/search"

type Options struct {
	Phrases      *PhraseBank
	Picker       Picker
	Now          func() time.Time
	Encyclopedia EncyclopediaFetcher
	Weather      WeatherReporter
	SearchURL    string
	Logger       *slog.Logger
}

type Dispatcher struct {
	phrases      *PhraseBank
	picker       Picker
	now          func() time.Time
	encyclopedia EncyclopediaFetcher
	weather      WeatherReporter
	searchURL    string
	logger       *slog.Logger
}

func NewDispatcher(opts Options) *Dispatcher {
	d := &Dispatcher{
		phrases:      opts.Phrases,
		picker:       opts.Picker,
		now:          opts.Now,
		encyclopedia: opts.Encyclopedia,
		weather:      opts.Weather,
		searchURL:    strings.TrimSpace(opts.SearchURL),
		logger:       opts.Logger,
	}
	if d.phrases == nil {
		d.phrases = DefaultPhraseBank()
	}
	if d.picker == nil {
		d.picker = DefaultPicker()
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.searchURL == "" {
		d.searchURL = DefaultSearchURL
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Dispatch performs the side effects for cmd. Work after a fetch boundary is
// handed to run; callers wait on run to observe the complete turn.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command, out Surface, run Runner) {
	switch cmd.Intent {
	case IntentOpenSite:
		if cmd.Argument == "" {
			// nothing to open; acknowledge the whole utterance instead
			d.logger.Debug("open_site_without_target", "utterance", cmd.Utterance)
			out.Speak(d.phrases.Pick(d.picker, IntentDefault, cmd.Utterance))
			return
		}
		out.Speak(d.phrases.Pick(d.picker, IntentOpenSite, cmd.Argument))
		out.Open(SiteURL(cmd.Argument))
	case IntentSearchEncyclopedia:
		out.Speak(d.phrases.Pick(d.picker, IntentSearchEncyclopedia, cmd.Argument))
		if d.encyclopedia == nil {
			d.logger.Warn("encyclopedia_fetcher_missing")
			return
		}
		query := cmd.Argument
		run.Go(func() {
			summary := d.encyclopedia.Summary(ctx, query)
			out.Show(summary)
			out.Speak(summary)
		})
	case IntentWeather:
		out.Speak(d.phrases.Pick(d.picker, IntentWeather, ""))
		if d.weather == nil {
			d.logger.Warn("weather_reporter_missing")
			return
		}
		run.Go(func() {
			d.weather.Report(ctx, out)
		})
	case IntentTime:
		now := d.now()
		if loc := LocationFrom(ctx); loc != nil {
			now = now.In(loc)
		}
		out.Speak(d.phrases.Pick(d.picker, IntentTime, ClockTime(now)))
	case IntentQuestionSearch:
		out.Speak(d.phrases.Pick(d.picker, IntentQuestionSearch, cmd.Utterance))
		out.Open(d.SearchURL(cmd.Utterance))
	default:
		out.Speak(d.phrases.Pick(d.picker, IntentDefault, cmd.Utterance))
	}
}

// SiteURL prefixes target with http:// unless it already carries an http(s) scheme.
func SiteURL(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return "http://" + target
}

// SearchURL builds the web search URL for query. The query is percent-encoded.
func (d *Dispatcher) SearchURL(query string) string {
	sep := "?"
	if strings.Contains(d.searchURL, "?") {
		sep = "&"
	}
	return d.searchURL + sep + "q=" + url.QueryEscape(query)
}
