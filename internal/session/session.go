package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"voice-command-backend/internal/command"
	"voice-command-backend/internal/metrics"
)

const (
	ListeningText = "Listening..."
	ReadyText     = "Ready."
)

// Dispatcher runs the side effects of a classified command.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command, out command.Surface, run command.Runner)
}

// Session is one client's recognition lifecycle. It replaces a process-wide
// recognizer handle: callers hold it explicitly and pass it a surface per turn.
type Session struct {
	ID string

	mu        sync.Mutex
	listening bool
	busy      bool
	status    string
	lastSeen  time.Time
}

func New(id string) *Session {
	return &Session{ID: id, status: ReadyText, lastSeen: time.Now()}
}

// State is a snapshot for status endpoints.
type State struct {
	ID        string `json:"sessionId"`
	Listening bool   `json:"listening"`
	Busy      bool   `json:"busy"`
	Status    string `json:"status"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{ID: s.ID, Listening: s.listening, Busy: s.busy, Status: s.status}
}

// LastSeen reports when the session last received an event.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Start marks the session as listening.
func (s *Session) Start(out command.Display) {
	s.mu.Lock()
	s.listening = true
	s.lastSeen = time.Now()
	s.mu.Unlock()
	s.track(out).Show(ListeningText)
}

// End handles the end of speech: listening stops until Start is called again.
func (s *Session) End(out command.Display) {
	s.mu.Lock()
	s.listening = false
	s.lastSeen = time.Now()
	s.mu.Unlock()
	s.track(out).Show(ReadyText)
}

// Fail reports a recognition error. The message is displayed and spoken;
// the session stays usable.
func (s *Session) Fail(cause string, out command.Announcer) string {
	msg := ErrorMessage(cause)
	s.mu.Lock()
	s.listening = false
	s.lastSeen = time.Now()
	s.mu.Unlock()
	metrics.RecognitionErrors.WithLabelValues(causeLabel(cause)).Inc()
	tracked := s.track(out)
	tracked.Show(msg)
	out.Speak(msg)
	return msg
}

// Handle runs one turn: case-fold, classify, dispatch, and wait for any
// fetch chains to settle. A second utterance during a turn gets ErrBusy.
func (s *Session) Handle(ctx context.Context, transcript string, d Dispatcher, out command.Surface) (command.Command, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return command.Command{}, ErrBusy
	}
	s.busy = true
	s.listening = false
	s.lastSeen = time.Now()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.lastSeen = time.Now()
		s.mu.Unlock()
	}()

	utterance := strings.ToLower(transcript)
	surface := s.trackSurface(out)
	surface.Show(fmt.Sprintf(`Analyzing: "%s"`, utterance))

	cmd := command.Classify(utterance)
	metrics.Intents.WithLabelValues(string(cmd.Intent)).Inc()

	p := pool.New()
	d.Dispatch(ctx, cmd, surface, p)
	p.Wait()
	return cmd, nil
}

func causeLabel(cause string) string {
	switch cause {
	case CauseNoSpeech, CauseAudioCapture, CauseNotAllowed:
		return cause
	default:
		return "other"
	}
}

// statusDisplay remembers the last text written to the display.
type statusDisplay struct {
	command.Display
	s *Session
}

func (d statusDisplay) Show(text string) {
	d.s.mu.Lock()
	d.s.status = text
	d.s.mu.Unlock()
	d.Display.Show(text)
}

func (s *Session) track(out command.Display) command.Display {
	return statusDisplay{Display: out, s: s}
}

type statusSurface struct {
	command.Surface
	display command.Display
}

func (t statusSurface) Show(text string) { t.display.Show(text) }

func (s *Session) trackSurface(out command.Surface) command.Surface {
	return statusSurface{Surface: out, display: s.track(out)}
}
