package command

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ArgPlaceholder is replaced with the intent argument when a phrase is rendered.
const ArgPlaceholder = "{arg}"

// MinPoolSize is the smallest pool accepted for a spoken intent.
const MinPoolSize = 2

// Picker returns a uniformly distributed index in [0, n).
// *rand.Rand from math/rand/v2 satisfies it.
type Picker interface {
	IntN(n int) int
}

type globalPicker struct{}

func (globalPicker) IntN(n int) int { return rand.IntN(n) }

// DefaultPicker draws from the process-wide random source.
func DefaultPicker() Picker { return globalPicker{} }

// PhraseBank holds the response pools keyed by intent.
type PhraseBank struct {
	pools map[IntentKind][]string
}

func defaultPools() map[IntentKind][]string {
	return map[IntentKind][]string{
		IntentOpenSite: {
			"As you wish, accessing {arg}.",
			"Initiating direct link to {arg}. Stand by.",
			"Connecting to {arg}.",
			"Affirmative. Opening {arg}.",
		},
		IntentSearchEncyclopedia: {
			`Querying Wikipedia archives for "{arg}".`,
			`Accessing relevant data on "{arg}" from Wikipedia.`,
			`Searching the digital scrolls of Wikipedia for "{arg}".`,
			`Fetching information on "{arg}" from the Wikipedia database.`,
		},
		IntentWeather: {
			"Analyzing atmospheric conditions.",
			"Checking the current weather report.",
			"Accessing meteorological data.",
			"Stand by for weather analysis.",
		},
		IntentTime: {
			"The current time is {arg}.",
			"Temporal coordinates indicate {arg}.",
			"The chronometer reads {arg}.",
			"Current time: {arg}.",
		},
		IntentQuestionSearch: {
			`Searching the web for: "{arg}" to find relevant information.`,
			`Initiating a web query for: "{arg}".`,
			`Looking up "{arg}" on the internet.`,
			"Commencing a web search for an answer to your question.",
		},
		IntentDefault: {
			`Acknowledged. Processing request: "{arg}".`,
			`Understood. Evaluating command: "{arg}".`,
			`Request received: "{arg}".`,
			`Affirmative. Command noted: "{arg}".`,
		},
	}
}

// DefaultPhraseBank returns the built-in pools.
func DefaultPhraseBank() *PhraseBank {
	return &PhraseBank{pools: defaultPools()}
}

// NewPhraseBank builds a bank from explicit pools. Intents missing from
// pools keep their built-in phrasing.
func NewPhraseBank(pools map[IntentKind][]string) (*PhraseBank, error) {
	merged := defaultPools()
	for kind, pool := range pools {
		if _, known := merged[kind]; !known {
			return nil, fmt.Errorf("unknown intent %q in phrase bank", kind)
		}
		cleaned := make([]string, 0, len(pool))
		for _, p := range pool {
			if s := strings.TrimSpace(p); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		if len(cleaned) < MinPoolSize {
			return nil, fmt.Errorf("phrase pool %q needs at least %d entries, got %d", kind, MinPoolSize, len(cleaned))
		}
		merged[kind] = cleaned
	}
	return &PhraseBank{pools: merged}, nil
}

// LoadPhraseBank reads pool overrides from a YAML file of the form
//
//	open_site:
//	  - "Opening {arg}."
//	  - "Connecting to {arg}."
func LoadPhraseBank(path string) (*PhraseBank, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pools map[IntentKind][]string
	if err := yaml.Unmarshal(b, &pools); err != nil {
		return nil, fmt.Errorf("parse phrase file %s: %w", path, err)
	}
	return NewPhraseBank(pools)
}

// Pool returns a copy of the pool for kind.
func (b *PhraseBank) Pool(kind IntentKind) []string {
	return append([]string(nil), b.pools[kind]...)
}

// Pick chooses one template uniformly and substitutes arg.
func (b *PhraseBank) Pick(p Picker, kind IntentKind, arg string) string {
	pool := b.pools[kind]
	if len(pool) == 0 {
		return arg
	}
	tmpl := pool[p.IntN(len(pool))]
	return strings.ReplaceAll(tmpl, ArgPlaceholder, arg)
}
