package session

import "errors"

// Recognition error causes as reported by the speech input.
const (
	CauseNoSpeech     = "no-speech"
	CauseAudioCapture = "audio-capture"
	CauseNotAllowed   = "not-allowed"
)

const (
	NoSpeechText     = "No speech was detected. Please try speaking again."
	AudioCaptureText = "Could not capture audio. Ensure your microphone is working."
	NotAllowedText   = "Permission to use the microphone was denied. Please grant access in your browser settings."
	HiccupText       = "My systems encountered a slight hiccup. Please try again."

	UnsupportedText = "Apologies, sir. Voice command functionality is not supported in this environment."
	InitFailedText  = "Error initializing voice command. Please try again later."
)

// ErrBusy is returned when an utterance arrives while the previous turn is
// still in flight.
var ErrBusy = errors.New("session is still handling the previous utterance")

// ErrorMessage maps a recognition error cause to its user-facing message.
func ErrorMessage(cause string) string {
	switch cause {
	case CauseNoSpeech:
		return NoSpeechText
	case CauseAudioCapture:
		return AudioCaptureText
	case CauseNotAllowed:
		return NotAllowedText
	default:
		return HiccupText
	}
}
