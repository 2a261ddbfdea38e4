package session

import (
	"testing"

	"github.com/lokutor-ai/lokutor-interpreter/pkg/topology"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/vad"
)

func newTestVAD() *vad.Detector {
	return vad.New(2, 30, 350)
}

func TestNewComputesChunkBasedForSharedFamily(t *testing.T) {
	s := New("s1", "room1", Speaker{ID: "spk", SourceLang: "ko"}, []Participant{
		{ID: "p1", TargetLanguage: "ja", TranslationEnabled: true},
	}, newTestVAD())

	if s.Strategy() != topology.ChunkBased {
		t.Fatalf("expected CHUNK_BASED, got %v", s.Strategy())
	}
}

func TestNewComputesSentenceBasedWhenAnyTargetDiverges(t *testing.T) {
	s := New("s2", "room1", Speaker{ID: "spk", SourceLang: "ko"}, []Participant{
		{ID: "p1", TargetLanguage: "ja", TranslationEnabled: true},
		{ID: "p2", TargetLanguage: "en", TranslationEnabled: true},
	}, newTestVAD())

	if s.Strategy() != topology.SentenceBased {
		t.Fatalf("expected SENTENCE_BASED, got %v", s.Strategy())
	}
}

func TestTargetLanguagesExcludesDisabledAndSameAsSource(t *testing.T) {
	s := New("s3", "room1", Speaker{ID: "spk", SourceLang: "en"}, []Participant{
		{ID: "p1", TargetLanguage: "en", TranslationEnabled: true},
		{ID: "p2", TargetLanguage: "fr", TranslationEnabled: false},
		{ID: "p3", TargetLanguage: "es", TranslationEnabled: true},
	}, newTestVAD())

	targets := s.TargetLanguages()
	if len(targets) != 1 || targets[0] != "es" {
		t.Fatalf("expected only [es], got %v", targets)
	}
}

func TestUpdateParticipantSettingsIdempotent(t *testing.T) {
	s := New("s4", "room1", Speaker{ID: "spk", SourceLang: "ko"}, []Participant{
		{ID: "p1", TargetLanguage: "ja", TranslationEnabled: true},
	}, newTestVAD())

	s.UpdateParticipant("p1", "en", true)
	strategyAfterFirst := s.Strategy()
	targetsAfterFirst := s.TargetLanguages()

	s.UpdateParticipant("p1", "en", true)
	if s.Strategy() != strategyAfterFirst {
		t.Fatal("expected idempotent strategy after repeated identical update")
	}
	targetsAfterSecond := s.TargetLanguages()
	if len(targetsAfterFirst) != len(targetsAfterSecond) {
		t.Fatal("expected idempotent target set after repeated identical update")
	}
}

func TestUpdateSpeakerPreservesBuffer(t *testing.T) {
	s := New("s5", "room1", Speaker{ID: "spk", SourceLang: "ko"}, nil, newTestVAD())
	s.AppendAudio([]byte{1, 2, 3, 4})

	s.UpdateSpeaker(Speaker{ID: "spk2", SourceLang: "ko"})

	if s.BufferedBytes() != 4 {
		t.Fatalf("expected buffer preserved across speaker update, got %d bytes", s.BufferedBytes())
	}
}

func TestDrainClearsBuffer(t *testing.T) {
	s := New("s6", "room1", Speaker{ID: "spk", SourceLang: "ko"}, nil, newTestVAD())
	s.AppendAudio([]byte{1, 2, 3, 4})

	buf := s.Drain()
	if len(buf) != 4 {
		t.Fatalf("expected 4 drained bytes, got %d", len(buf))
	}
	if s.BufferedBytes() != 0 {
		t.Fatal("expected buffer to be empty after drain")
	}
}

func TestRegistryUnregisterReportsLastInRoom(t *testing.T) {
	r := NewRegistry()
	s1 := New("s1", "room1", Speaker{ID: "a", SourceLang: "ko"}, nil, newTestVAD())
	s2 := New("s2", "room1", Speaker{ID: "b", SourceLang: "ko"}, nil, newTestVAD())
	r.Register(s1)
	r.Register(s2)

	_, last := r.Unregister("s1")
	if last {
		t.Fatal("expected not-last when a sibling session remains")
	}
	_, last = r.Unregister("s2")
	if !last {
		t.Fatal("expected last when no sessions remain in the room")
	}
}
