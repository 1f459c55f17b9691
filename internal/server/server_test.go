package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-command-backend/internal/command"
	"voice-command-backend/internal/config"
	"voice-command-backend/internal/session"
	"voice-command-backend/internal/store"
	"voice-command-backend/internal/types"
)

type firstPicker struct{}

func (firstPicker) IntN(int) int { return 0 }

type stubSummary string

func (s stubSummary) Summary(context.Context, string) string { return string(s) }

type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(_ context.Context, audio io.Reader, _ string) (string, error) {
	_, _ = io.ReadAll(audio)
	return s.text, s.err
}

type stubSynthesizer struct{}

func (stubSynthesizer) Synthesize(_ context.Context, text string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("mp3:" + text)), nil
}

func testConfig() config.Config {
	return config.Config{
		AllowedOrigin: "*",
		SpeechLang:    "en-US",
		SessionTTL:    time.Minute,
	}
}

func newTestServer(t *testing.T, deps Deps) *httptest.Server {
	t.Helper()
	if deps.Dispatcher == nil {
		deps.Dispatcher = command.NewDispatcher(command.Options{
			Picker:       firstPicker{},
			Now:          func() time.Time { return time.Date(2024, 5, 1, 14, 5, 0, 0, time.UTC) },
			Encyclopedia: stubSummary("Alan Turing was a mathematician."),
			SearchURL:    "https://search.example/search",
		})
	}
	srv := httptest.NewServer(New(testConfig(), deps).Router())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeCommand(t *testing.T, resp *http.Response) types.CommandResponse {
	t.Helper()
	var out types.CommandResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Deps{})
	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCommand_OpenSite(t *testing.T) {
	srv := newTestServer(t, Deps{})
	resp := postJSON(t, srv.URL+"/api/command", types.CommandRequest{Text: "Open example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeCommand(t, resp)
	assert.NotEmpty(t, out.SessionID)
	assert.Equal(t, out.SessionID, resp.Header.Get("X-Session-Id"))
	assert.Equal(t, "open_site", out.Intent)
	assert.Equal(t, "example.com", out.Argument)
	assert.Equal(t, []types.Speech{{Text: "As you wish, accessing example.com.", Lang: "en-US"}}, out.Speech)
	assert.Equal(t, []string{"http://example.com"}, out.Open)
	assert.Equal(t, `Analyzing: "open example.com"`, out.Display)
}

func TestCommand_Encyclopedia(t *testing.T) {
	srv := newTestServer(t, Deps{})
	out := decodeCommand(t, postJSON(t, srv.URL+"/api/command", types.CommandRequest{Text: "search wikipedia for alan turing"}))

	require.Len(t, out.Speech, 2)
	assert.Equal(t, `Querying Wikipedia archives for "alan turing".`, out.Speech[0].Text)
	assert.Equal(t, "Alan Turing was a mathematician.", out.Speech[1].Text)
	assert.Equal(t, "Alan Turing was a mathematician.", out.Display)
}

func TestCommand_TimeAndQuestion(t *testing.T) {
	srv := newTestServer(t, Deps{})

	out := decodeCommand(t, postJSON(t, srv.URL+"/api/command", types.CommandRequest{Text: "what is the time"}))
	require.Len(t, out.Speech, 1)
	assert.Contains(t, out.Speech[0].Text, "2:05 PM")

	out = decodeCommand(t, postJSON(t, srv.URL+"/api/command", types.CommandRequest{Text: "is the sky blue"}))
	assert.Equal(t, "question_search", out.Intent)
	assert.Equal(t, []string{"https://search.example/search?q=is+the+sky+blue"}, out.Open)
}

func TestCommand_TimeInCallerZone(t *testing.T) {
	srv := newTestServer(t, Deps{})
	cases := map[string]string{
		"Asia/Kolkata": "The current time is 7:35 PM.",
		"UTC":          "The current time is 2:05 PM.",
		"Mars/Olympus": "The current time is 2:05 PM.",
		"":             "The current time is 2:05 PM.",
	}
	for zone, want := range cases {
		out := decodeCommand(t, postJSON(t, srv.URL+"/api/command",
			types.CommandRequest{Text: "what is the time", TimeZone: zone}))
		require.Len(t, out.Speech, 1, zone)
		assert.Equal(t, want, out.Speech[0].Text, zone)
	}
}

func TestCommand_RejectsEmptyText(t *testing.T) {
	srv := newTestServer(t, Deps{})
	resp := postJSON(t, srv.URL+"/api/command", types.CommandRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/command", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCommand_ReusesSession(t *testing.T) {
	sessions := store.NewMemoryStore(time.Minute)
	srv := newTestServer(t, Deps{Sessions: sessions})

	first := decodeCommand(t, postJSON(t, srv.URL+"/api/command", types.CommandRequest{Text: "hello"}))
	second := decodeCommand(t, postJSON(t, srv.URL+"/api/command", types.CommandRequest{Text: "hello", SessionID: first.SessionID}))
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 1, sessions.Len())
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	srv := newTestServer(t, Deps{})

	start := decodeCommand(t, postJSON(t, srv.URL+"/api/session/start", struct{}{}))
	assert.Equal(t, session.ListeningText, start.Display)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/session", nil)
	require.NoError(t, err)
	req.Header.Set("X-Session-Id", start.SessionID)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var state session.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.True(t, state.Listening)

	failed := decodeCommand(t, postJSON(t, srv.URL+"/api/session/error",
		types.RecognitionErrorRequest{SessionID: start.SessionID, Error: "not-allowed"}))
	assert.Equal(t, start.SessionID, failed.SessionID)
	assert.Equal(t, session.NotAllowedText, failed.Display)
	assert.Equal(t, []types.Speech{{Text: session.NotAllowedText, Lang: "en-US"}}, failed.Speech)
}

func TestSessionState_Unknown(t *testing.T) {
	srv := newTestServer(t, Deps{})
	resp, err := http.Get(srv.URL + "/api/session?sessionId=nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func postAudio(t *testing.T, url string, fields ...string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for i := 0; i+1 < len(fields); i += 2 {
		require.NoError(t, mw.WriteField(fields[i], fields[i+1]))
	}
	fw, err := mw.CreateFormFile("file", "clip.webm")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("fake audio"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestVoice(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		srv := newTestServer(t, Deps{})
		resp := postAudio(t, srv.URL+"/api/voice")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		out := decodeCommand(t, resp)
		assert.Equal(t, session.UnsupportedText, out.Display)
	})

	t.Run("transcribed", func(t *testing.T) {
		srv := newTestServer(t, Deps{Transcriber: stubTranscriber{text: "Hello There"}})
		resp := postAudio(t, srv.URL+"/api/voice")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		out := decodeCommand(t, resp)
		assert.Equal(t, "Hello There", out.Transcript)
		assert.Equal(t, "default", out.Intent)
		assert.Equal(t, "hello there", out.Argument)
	})

	t.Run("caller time zone", func(t *testing.T) {
		srv := newTestServer(t, Deps{Transcriber: stubTranscriber{text: "What is the time"}})
		resp := postAudio(t, srv.URL+"/api/voice", "timeZone", "Asia/Kolkata")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		out := decodeCommand(t, resp)
		require.Len(t, out.Speech, 1)
		assert.Equal(t, "The current time is 7:35 PM.", out.Speech[0].Text)
	})

	t.Run("empty transcript", func(t *testing.T) {
		srv := newTestServer(t, Deps{Transcriber: stubTranscriber{}})
		out := decodeCommand(t, postAudio(t, srv.URL+"/api/voice"))
		assert.Equal(t, session.NoSpeechText, out.Display)
	})

	t.Run("transcription error", func(t *testing.T) {
		srv := newTestServer(t, Deps{Transcriber: stubTranscriber{err: errors.New("boom")}})
		resp := postAudio(t, srv.URL+"/api/voice")
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, session.InitFailedText, decodeCommand(t, resp).Display)
	})
}

func TestTTS(t *testing.T) {
	srv := newTestServer(t, Deps{})
	resp := postJSON(t, srv.URL+"/api/tts", types.TTSRequest{Text: "Ready."})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	srv = newTestServer(t, Deps{Synthesizer: stubSynthesizer{}})
	resp = postJSON(t, srv.URL+"/api/tts", types.TTSRequest{Text: "Ready."})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "mp3:Ready.", string(b))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, Deps{})
	postJSON(t, srv.URL+"/api/command", types.CommandRequest{Text: "hello"})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), `voice_intents_total{intent="default"}`)
}

func TestCORSPreflightAllowsDelete(t *testing.T) {
	srv := newTestServer(t, Deps{})
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/session", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.MethodDelete, resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestSessionDelete(t *testing.T) {
	sessions := store.NewMemoryStore(time.Minute)
	srv := newTestServer(t, Deps{Sessions: sessions})
	start := decodeCommand(t, postJSON(t, srv.URL+"/api/session/start", struct{}{}))
	require.Equal(t, 1, sessions.Len())

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/session?sessionId="+start.SessionID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, sessions.Len())
}
