package providers

import "testing"

func TestIsSilenceTrueForZeroAmplitude(t *testing.T) {
	pcm := make([]float32, 480)
	if !IsSilence(pcm) {
		t.Fatal("expected all-zero audio to be silence")
	}
}

func TestIsSilenceFalseForLoudAudio(t *testing.T) {
	pcm := make([]float32, 480)
	for i := range pcm {
		if i%2 == 0 {
			pcm[i] = 0.5
		} else {
			pcm[i] = -0.5
		}
	}
	if IsSilence(pcm) {
		t.Fatal("expected loud audio to not be silence")
	}
}

func TestCleanTranslationStripsPrefix(t *testing.T) {
	got := CleanTranslation("Translation: Hello there")
	if got != "Hello there" {
		t.Fatalf("expected prefix stripped, got %q", got)
	}
}

func TestCleanTranslationStripsQuotes(t *testing.T) {
	got := CleanTranslation(`"Hello there"`)
	if got != "Hello there" {
		t.Fatalf("expected quotes stripped, got %q", got)
	}
}

func TestCleanTranslationFirstNonTrivialLine(t *testing.T) {
	got := CleanTranslation("\n\nHello there\nSecond line")
	if got != "Hello there" {
		t.Fatalf("expected first non-blank line, got %q", got)
	}
}

func TestCleanTranslationPrefixThenQuotes(t *testing.T) {
	got := CleanTranslation(`Here is the translation: "Bonjour"`)
	if got != "Bonjour" {
		t.Fatalf("expected prefix and quotes both stripped, got %q", got)
	}
}

func TestIsFillerCaseFolded(t *testing.T) {
	if !IsFiller("  UM  ") {
		t.Fatal("expected case-folded, trimmed filler to match")
	}
	if !IsFiller("네") {
		t.Fatal("expected Korean filler to match")
	}
	if IsFiller("hello") {
		t.Fatal("expected non-filler text to not match")
	}
}

func TestVoiceForFallsBackForUnknownLanguage(t *testing.T) {
	if VoiceFor("xx") != "voice-generic-standard-01" {
		t.Fatal("expected fallback voice for unknown language")
	}
	if VoiceFor("en") == "voice-generic-standard-01" {
		t.Fatal("expected a specific voice for a known language")
	}
}

func TestPCM16ToFloat32MapsFullScale(t *testing.T) {
	pcm := []byte{0x00, 0x80} // int16 min, little endian
	out := PCM16ToFloat32(pcm)
	if len(out) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(out))
	}
	if out[0] > -0.99 {
		t.Fatalf("expected near -1.0 for int16 min, got %f", out[0])
	}
}
