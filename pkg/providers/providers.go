// Package providers defines the three narrow Backend Adapter interfaces —
// Transcribe, Translate, Synthesize — and the shared helpers (silence
// detection, translation-output cleanup, voice table) that every concrete
// provider shim in pkg/providers/{stt,mt,tts} builds on.
package providers

import (
	"context"
	"math"
	"strings"

	"golang.org/x/text/cases"
)

// foldCase performs locale-independent Unicode case folding, used in place
// of strings.ToLower for the filler gate since filler words span several
// scripts (Hangul, Kana, Han, Latin).
var foldCase = cases.Fold()

// Transcriber turns normalized PCM audio into text. Implementations must
// return empty text for silence without making a remote call, and must
// default Confidence to 0.95 when the backend does not report one.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPCM []float32, sourceLanguage string) (text string, confidence float64, err error)
	Name() string
}

// Translator turns source-language text into target-language text.
// Implementations must return the input unchanged when sourceLang ==
// targetLang, and must clean LLM-style prefixes/quoting from the output.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	Name() string
}

// Synthesizer turns target-language text into MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, targetLang string) (audioMP3 []byte, durationMs int, err error)
	Name() string
}

// SilenceRMSThreshold is the normalized-float32 silence cutoff (10^-3 of
// full scale).
const SilenceRMSThreshold = 1e-3

// DefaultConfidence is used when a backend does not report its own.
const DefaultConfidence = 0.95

// IsSilence reports whether normalized PCM is silence: RMS below
// SilenceRMSThreshold.
func IsSilence(audioPCM []float32) bool {
	if len(audioPCM) == 0 {
		return true
	}
	var sum float64
	for _, s := range audioPCM {
		f := float64(s)
		sum += f * f
	}
	rms := math.Sqrt(sum / float64(len(audioPCM)))
	return rms < SilenceRMSThreshold
}

// PCM16ToFloat32 converts little-endian signed 16-bit PCM to normalized
// float32 samples in [-1, 1].
func PCM16ToFloat32(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		s := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		out[i] = float32(s) / 32768.0
	}
	return out
}

var translationPrefixes = []string{
	"translation:",
	"here is the translation:",
	"here's the translation:",
	"translated text:",
	"translated:",
}

// CleanTranslation strips common LLM preambles, surrounding matching quotes,
// and trailing lines, returning only the first non-trivial line of output.
func CleanTranslation(raw string) string {
	text := strings.TrimSpace(raw)

	lower := strings.ToLower(text)
	for _, prefix := range translationPrefixes {
		if strings.HasPrefix(lower, prefix) {
			text = strings.TrimSpace(text[len(prefix):])
			lower = strings.ToLower(text)
			break
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			text = trimmed
			break
		}
	}

	text = stripMatchingQuotes(text)
	return text
}

func stripMatchingQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	quotes := []byte{'"', '\''}
	for _, q := range quotes {
		if s[0] == q && s[len(s)-1] == q {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// VoiceTable maps language code to a fixed voice id, one per language. It is
// pure data, compiled in; adding a language is a one-line edit.
var VoiceTable = map[string]string{
	"en": "voice-en-neural-01",
	"ko": "voice-ko-neural-01",
	"ja": "voice-ja-neural-01",
	"zh": "voice-zh-neural-01",
	"es": "voice-es-neural-01",
	"fr": "voice-fr-neural-01",
	"de": "voice-de-neural-01",
	"pt": "voice-pt-neural-01",
	"ru": "voice-ru-neural-01",
	"it": "voice-it-neural-01",
	"ar": "voice-ar-standard-01",
	"he": "voice-he-standard-01",
	"tr": "voice-tr-standard-01",
	"hi": "voice-hi-standard-01",
	"bn": "voice-bn-standard-01",
}

// VoiceFor returns the configured voice for a language, or a generic
// fallback voice if the language has no table entry.
func VoiceFor(lang string) string {
	if v, ok := VoiceTable[lang]; ok {
		return v
	}
	return "voice-generic-standard-01"
}

// EstimateDurationMs estimates MP3 playback duration from byte count when a
// backend does not report one, assuming a conservative 24kbps bitrate.
func EstimateDurationMs(mp3Bytes int) int {
	const bitrateBytesPerSec = 24000 / 8
	return mp3Bytes * 1000 / bitrateBytesPerSec
}

// FillerSet is the fixed multilingual set of interjections carrying no
// translatable content, compiled in per language.
var FillerSet = map[string]struct{}{
	"um": {}, "uh": {}, "uhh": {}, "umm": {}, "hmm": {}, "mm": {}, "mhm": {}, "ok": {}, "okay": {},
	"네": {}, "예": {}, "응": {}, "아": {}, "음": {},
	"はい": {}, "うん": {}, "えっと": {}, "あの": {},
	"嗯": {}, "啊": {}, "对": {}, "哦": {},
}

// IsFiller reports whether trimmed, case-folded text is a configured filler
// interjection.
func IsFiller(text string) bool {
	folded := foldCase.String(strings.TrimSpace(text))
	_, ok := FillerSet[folded]
	return ok
}
