package roomcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGetOrCreateSTTSingleFlight(t *testing.T) {
	c := New()
	var calls int32
	var wg sync.WaitGroup
	results := make([]STTResult, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, _, err := c.GetOrCreateSTT(context.Background(), "room1", "speakerA", "hash123", func(ctx context.Context) (STTResult, error) {
				atomic.AddInt32(&calls, 1)
				return STTResult{Text: "hello", Confidence: 0.95}, nil
			})
			if err != nil {
				t.Error(err)
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected produce invoked exactly once, got %d", calls)
	}
	for _, r := range results {
		if r.Text != "hello" {
			t.Fatalf("expected all callers to observe same result, got %+v", r)
		}
	}
}

func TestFailedProduceIsNotCached(t *testing.T) {
	c := New()
	_, _, err := c.GetOrCreateSTT(context.Background(), "room1", "speakerA", "hashX", func(ctx context.Context) (STTResult, error) {
		return STTResult{}, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error to propagate")
	}

	res, cached, err := c.GetOrCreateSTT(context.Background(), "room1", "speakerA", "hashX", func(ctx context.Context) (STTResult, error) {
		return STTResult{Text: "recovered"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if cached {
		t.Fatal("expected cache miss after a prior failure")
	}
	if res.Text != "recovered" {
		t.Fatalf("expected recovered result, got %+v", res)
	}
}

func TestGetOrCreateMTKeyIncludesLanguagesAndText(t *testing.T) {
	c := New()
	calls := 0
	produce := func(ctx context.Context) (string, error) {
		calls++
		return "hola", nil
	}
	_, _, _ = c.GetOrCreateMT(context.Background(), "room1", "hello", "en", "es", produce)
	_, cached, _ := c.GetOrCreateMT(context.Background(), "room1", "hello", "en", "es", produce)
	if !cached {
		t.Fatal("expected second identical lookup to be cached")
	}
	_, cached, _ = c.GetOrCreateMT(context.Background(), "room1", "hello", "en", "fr", produce)
	if cached {
		t.Fatal("expected different target language to miss the cache")
	}
	if calls != 2 {
		t.Fatalf("expected 2 produce calls (es once, fr once), got %d", calls)
	}
}

func TestEvictRoomClearsAllKinds(t *testing.T) {
	c := New()
	calls := 0
	produce := func(ctx context.Context) (TTSResult, error) {
		calls++
		return TTSResult{Audio: []byte("mp3"), DurationMs: 100}, nil
	}
	_, _, _ = c.GetOrCreateTTS(context.Background(), "room1", "hello", "es", produce)
	c.EvictRoom("room1")
	_, cached, _ := c.GetOrCreateTTS(context.Background(), "room1", "hello", "es", produce)
	if cached {
		t.Fatal("expected eviction to clear the cached entry")
	}
	if calls != 2 {
		t.Fatalf("expected produce to run again after eviction, got %d calls", calls)
	}
}

func TestHashAudioIsDeterministic(t *testing.T) {
	a := HashAudio([]byte{1, 2, 3})
	b := HashAudio([]byte{1, 2, 3})
	c := HashAudio([]byte{1, 2, 4})
	if a != b {
		t.Fatal("expected identical input to hash identically")
	}
	if a == c {
		t.Fatal("expected different input to hash differently")
	}
}
