package command

import "strings"

type IntentKind string

const (
	IntentOpenSite           IntentKind = "open_site"
	IntentSearchEncyclopedia IntentKind = "search_encyclopedia"
	IntentWeather            IntentKind = "weather"
	IntentTime               IntentKind = "time"
	IntentQuestionSearch     IntentKind = "question_search"
	IntentDefault            IntentKind = "default"
)

// Trigger tables. Order is significant: the first matching prefix wins.
var (
	OpenSiteTriggers = []string{"open", "go to", "visit", "launch"}
	QuestionWords    = []string{"who", "what", "why", "when", "how", "where", "is", "are"}
)

const (
	EncyclopediaTrigger = "search wikipedia for"
	WeatherTrigger      = "what is the weather"
	TimeTrigger         = "what is the time"
)

// Command is a classified utterance.
type Command struct {
	Intent    IntentKind
	Argument  string
	Utterance string
}

// Classify maps a lowercased utterance to exactly one intent.
// It never fails: anything unmatched is IntentDefault.
func Classify(utterance string) Command {
	cmd := Command{Utterance: utterance}
	if trigger, ok := firstPrefix(utterance, OpenSiteTriggers); ok {
		cmd.Intent = IntentOpenSite
		cmd.Argument = strings.TrimSpace(utterance[len(trigger):])
		return cmd
	}
	switch {
	case strings.HasPrefix(utterance, EncyclopediaTrigger):
		cmd.Intent = IntentSearchEncyclopedia
		cmd.Argument = strings.TrimSpace(utterance[len(EncyclopediaTrigger):])
	case strings.HasPrefix(utterance, WeatherTrigger):
		cmd.Intent = IntentWeather
	case strings.HasPrefix(utterance, TimeTrigger):
		cmd.Intent = IntentTime
	default:
		// "isabella" matches "is"; prefix match, not word match
		if _, ok := firstPrefix(utterance, QuestionWords); ok {
			cmd.Intent = IntentQuestionSearch
		} else {
			cmd.Intent = IntentDefault
		}
		cmd.Argument = utterance
	}
	return cmd
}

func firstPrefix(s string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return p, true
		}
	}
	return "", false
}
