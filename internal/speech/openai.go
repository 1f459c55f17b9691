package speech

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"
)

// Transcriber turns recorded audio into text with OpenAI Whisper.
type Transcriber struct {
	client   *openai.Client
	model    string
	language string
}

// NewTranscriber derives the Whisper language hint (ISO 639-1) from the
// configured BCP 47 speech tag, e.g. "en-US" -> "en".
func NewTranscriber(client *openai.Client, model, speechLang string) *Transcriber {
	return &Transcriber{client: client, model: model, language: baseLanguage(speechLang)}
}

func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 180*time.Second)
	defer cancel()
	tr, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   audio,
		FilePath: filename,
		Language: t.language,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return strings.TrimSpace(tr.Text), nil
}

// Synthesizer renders text to MP3 with the OpenAI speech API.
type Synthesizer struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

func NewSynthesizer(client *openai.Client, model, voice string) *Synthesizer {
	return &Synthesizer{client: client, model: openai.SpeechModel(model), voice: openai.SpeechVoice(voice)}
}

// Synthesize returns the audio stream; the caller closes it.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	audio, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	return audio, nil
}

func baseLanguage(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	base, conf := t.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}
