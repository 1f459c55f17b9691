package server

import (
	"sync"

	"voice-command-backend/internal/command"
	"voice-command-backend/internal/types"
)

// turn is the surface for a single request: it records what the dispatcher
// speaks, opens and displays so the client can perform it.
type turn struct {
	lang string

	mu      sync.Mutex
	speech  []types.Speech
	open    []string
	display string
}

var _ command.Surface = (*turn)(nil)

func newTurn(lang string) *turn {
	return &turn{lang: lang}
}

func (t *turn) Speak(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.speech = append(t.speech, types.Speech{Text: text, Lang: t.lang})
}

func (t *turn) Show(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.display = text
}

func (t *turn) Open(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = append(t.open, url)
}

func (t *turn) response(sessionID string) types.CommandResponse {
	t.mu.Lock()
	defer t.mu.Unlock()
	return types.CommandResponse{
		SessionID: sessionID,
		Speech:    append([]types.Speech{}, t.speech...),
		Open:      append([]string(nil), t.open...),
		Display:   t.display,
	}
}
