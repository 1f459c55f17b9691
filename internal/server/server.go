package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	openai "github.com/sashabaranov/go-openai"

	"voice-command-backend/internal/command"
	"voice-command-backend/internal/config"
	"voice-command-backend/internal/fetch"
	"voice-command-backend/internal/session"
	"voice-command-backend/internal/speech"
	"voice-command-backend/internal/store"
	"voice-command-backend/internal/types"
)

// Transcriber is the speech input used by /api/voice.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Synthesizer is the server-side speech output used by /api/tts.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}

// Deps are the collaborators a Server runs with. Transcriber and
// Synthesizer may be nil; their endpoints then report that they are
// unavailable.
type Deps struct {
	Dispatcher  session.Dispatcher
	Sessions    *store.MemoryStore
	Transcriber Transcriber
	Synthesizer Synthesizer
	Logger      *slog.Logger
}

type Server struct {
	router      *chi.Mux
	cfg         config.Config
	dispatcher  session.Dispatcher
	sessions    *store.MemoryStore
	transcriber Transcriber
	synthesizer Synthesizer
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewServer wires the production collaborators from cfg.
func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	phrases := command.DefaultPhraseBank()
	if cfg.PhrasesFile != "" {
		var err error
		phrases, err = command.LoadPhraseBank(cfg.PhrasesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load phrase bank: %w", err)
		}
		logger.Info("phrase_bank_loaded", "path", cfg.PhrasesFile)
	}

	plain := fetch.NewClient(fetch.ClientOptions{
		Timeout:       cfg.FetchTimeout,
		RatePerSecond: cfg.FetchRatePerSecond,
	})
	wiki := plain
	if cfg.WikimediaClientID != "" {
		wiki = fetch.NewClient(fetch.ClientOptions{
			Timeout:       cfg.FetchTimeout,
			RatePerSecond: cfg.FetchRatePerSecond,
			ClientID:      cfg.WikimediaClientID,
			ClientSecret:  cfg.WikimediaSecret,
			TokenURL:      cfg.WikimediaTokenURL,
		})
		logger.Info("wikimedia_oauth_enabled")
	}

	dispatcher := command.NewDispatcher(command.Options{
		Phrases:      phrases,
		Encyclopedia: fetch.NewEncyclopedia(wiki, cfg.EncyclopediaURL, logger),
		Weather: fetch.NewWeather(plain, fetch.WeatherOptions{
			BaseAPI: cfg.WeatherURL,
			APIKey:  cfg.WeatherAPIKey,
			City:    cfg.WeatherCity,
			Logger:  logger,
		}),
		SearchURL: cfg.SearchURL,
		Logger:    logger,
	})

	deps := Deps{
		Dispatcher: dispatcher,
		Sessions:   store.NewMemoryStore(cfg.SessionTTL),
		Logger:     logger,
	}
	if cfg.OpenAIAPIKey != "" {
		client := openai.NewClient(cfg.OpenAIAPIKey)
		deps.Transcriber = speech.NewTranscriber(client, cfg.STTModel, cfg.SpeechLang)
		deps.Synthesizer = speech.NewSynthesizer(client, cfg.TTSModel, cfg.TTSVoice)
	}
	return New(cfg, deps), nil
}

func New(cfg config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Sessions == nil {
		deps.Sessions = store.NewMemoryStore(cfg.SessionTTL)
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:      r,
		cfg:         cfg,
		dispatcher:  deps.Dispatcher,
		sessions:    deps.Sessions,
		transcriber: deps.Transcriber,
		synthesizer: deps.Synthesizer,
		validate:    validator.New(),
		logger:      deps.Logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
	// Recognition session lifecycle
	s.router.Get("/api/session", s.handleSessionState)
	s.router.Delete("/api/session", s.handleSessionDelete)
	s.router.Post("/api/session/start", s.handleSessionStart)
	s.router.Post("/api/session/end", s.handleSessionEnd)
	s.router.Post("/api/session/error", s.handleSessionError)
	// Utterances
	s.router.Post("/api/command", s.handleCommand)
	s.router.Post("/api/voice", s.handleVoice)
	s.router.Post("/api/tts", s.handleTTS)
}

func (s *Server) Router() http.Handler { return s.router }

// SweepSessions drops idle sessions every interval until ctx is done.
func (s *Server) SweepSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(); n > 0 {
				s.logger.Debug("sessions_swept", "count", n)
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(getSessionID(r, ""))
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if sid := getSessionID(r, ""); sid != "" {
		s.sessions.Delete(sid)
	}
	ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	sess := s.getOrCreateSession(w, r, "")
	t := newTurn(s.cfg.SpeechLang)
	sess.Start(t)
	s.writeJSON(w, http.StatusOK, t.response(sess.ID))
}

func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	sess := s.getOrCreateSession(w, r, "")
	t := newTurn(s.cfg.SpeechLang)
	sess.End(t)
	s.writeJSON(w, http.StatusOK, t.response(sess.ID))
}

func (s *Server) handleSessionError(w http.ResponseWriter, r *http.Request) {
	var req types.RecognitionErrorRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess := s.getOrCreateSession(w, r, req.SessionID)
	s.logger.Warn("speech_recognition_error", "session", sess.ID, "cause", req.Error)
	t := newTurn(s.cfg.SpeechLang)
	sess.Fail(req.Error, t)
	s.writeJSON(w, http.StatusOK, t.response(sess.ID))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req types.CommandRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	sess := s.getOrCreateSession(w, r, req.SessionID)
	s.runTurn(s.callerContext(r, req.TimeZone), w, sess, req.Text)
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		s.speakFailure(w, http.StatusServiceUnavailable, s.getOrCreateSession(w, r, ""), session.UnsupportedText, "speech input not configured")
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	sess := s.getOrCreateSession(w, r, r.FormValue("sessionId"))
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "audio file is required (field 'file')")
		return
	}
	defer file.Close()

	transcript, err := s.transcriber.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		s.logger.Error("transcription_failed", "session", sess.ID, "error", err)
		s.speakFailure(w, http.StatusBadGateway, sess, session.InitFailedText, "transcription failed")
		return
	}
	if transcript == "" {
		t := newTurn(s.cfg.SpeechLang)
		sess.Fail(session.CauseNoSpeech, t)
		s.writeJSON(w, http.StatusOK, t.response(sess.ID))
		return
	}
	s.runTurn(s.callerContext(r, r.FormValue("timeZone")), w, sess, transcript)
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req types.TTSRequest
	if !s.decode(w, r, &req) {
		return
	}
	if s.synthesizer == nil {
		s.writeError(w, http.StatusBadRequest, "speech synthesis not configured")
		return
	}
	audio, err := s.synthesizer.Synthesize(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("tts_failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "tts error")
		return
	}
	defer audio.Close()
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, audio)
}

// runTurn classifies and dispatches transcript on sess and writes every
// effect of the turn once its fetches have settled.
func (s *Server) runTurn(ctx context.Context, w http.ResponseWriter, sess *session.Session, transcript string) {
	t := newTurn(s.cfg.SpeechLang)
	cmd, err := sess.Handle(ctx, transcript, s.dispatcher, t)
	if errors.Is(err, session.ErrBusy) {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("command_failed", "session", sess.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "command failed")
		return
	}
	s.logger.Info("command_handled", "session", sess.ID, "intent", cmd.Intent, "argument", cmd.Argument)
	resp := t.response(sess.ID)
	resp.Transcript = transcript
	resp.Intent = string(cmd.Intent)
	resp.Argument = cmd.Argument
	s.writeJSON(w, http.StatusOK, resp)
}

// callerContext carries the caller's time zone into the turn. An empty or
// unknown zone leaves the server zone in effect.
func (s *Server) callerContext(r *http.Request, zone string) context.Context {
	ctx := r.Context()
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return ctx
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		s.logger.Debug("caller_time_zone_ignored", "zone", zone, "error", err)
		return ctx
	}
	return command.WithLocation(ctx, loc)
}

func (s *Server) speakFailure(w http.ResponseWriter, code int, sess *session.Session, text, reason string) {
	t := newTurn(s.cfg.SpeechLang)
	t.Show(text)
	t.Speak(text)
	resp := t.response(sess.ID)
	resp.Error = reason
	s.writeJSON(w, code, resp)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(out); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}

// getSessionID retrieves the session ID from cookie, header, body or query parameter
func getSessionID(r *http.Request, fromBody string) string {
	if cookie, err := GetSessionCookie(r); err == nil && cookie != "" {
		return cookie
	}
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	if fromBody != "" {
		return fromBody
	}
	return r.URL.Query().Get("sessionId")
}

// getOrCreateSession resolves the caller's session, creating one and
// setting the cookie when none is live.
func (s *Server) getOrCreateSession(w http.ResponseWriter, r *http.Request, fromBody string) *session.Session {
	sess, created := s.sessions.GetOrCreate(getSessionID(r, fromBody))
	if created {
		s.logger.Debug("session_created", "session", sess.ID, "path", r.URL.Path)
	}
	SetSessionCookie(w, sess.ID, s.cfg.SessionTTL)
	w.Header().Set("X-Session-Id", sess.ID)
	return sess
}
