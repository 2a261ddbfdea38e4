// Package roomcache implements the process-wide, room-scoped memoization of
// STT, MT, and TTS results described by the Room Cache component: at-most-one
// concurrent producer per key, failed producers not cached, LRU-bounded,
// evicted wholesale when a room's last session unregisters.
package roomcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// STTResult is the memoized value of a transcription.
type STTResult struct {
	Text       string
	Confidence float64
}

// TTSResult is the memoized value of a synthesis call.
type TTSResult struct {
	Audio      []byte
	DurationMs int
}

const perKindBound = 256

// kindCache bundles one LRU + one singleflight.Group for a single (room,
// kind) keyspace. The LRU's own lock serializes reads/writes to the
// underlying map; the singleflight.Group serializes concurrent producers.
type kindCache[V any] struct {
	lru   *lru.Cache[string, V]
	group singleflight.Group
}

func newKindCache[V any]() *kindCache[V] {
	c, err := lru.New[string, V](perKindBound)
	if err != nil {
		// Only returns an error for a non-positive size, which perKindBound
		// never is.
		panic(err)
	}
	return &kindCache[V]{lru: c}
}

func (kc *kindCache[V]) getOrCreate(ctx context.Context, key string, produce func(context.Context) (V, error)) (V, bool, error) {
	if v, ok := kc.lru.Get(key); ok {
		return v, true, nil
	}
	v, err, _ := kc.group.Do(key, func() (any, error) {
		if v, ok := kc.lru.Get(key); ok {
			return v, nil
		}
		result, err := produce(ctx)
		if err != nil {
			var zero V
			return zero, err
		}
		kc.lru.Add(key, result)
		return result, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return v.(V), false, nil
}

// Cache is the room-partitioned, three-kind memoization table. One instance
// is shared process-wide.
type Cache struct {
	mu   sync.Mutex
	stt  map[string]*kindCache[STTResult]
	mt   map[string]*kindCache[string]
	tts  map[string]*kindCache[TTSResult]
}

// New constructs an empty Cache.
func New() *Cache {
	return &Cache{
		stt: make(map[string]*kindCache[STTResult]),
		mt:  make(map[string]*kindCache[string]),
		tts: make(map[string]*kindCache[TTSResult]),
	}
}

func sttFor[V any](m map[string]*kindCache[V], mu *sync.Mutex, room string) *kindCache[V] {
	mu.Lock()
	defer mu.Unlock()
	c, ok := m[room]
	if !ok {
		c = newKindCache[V]()
		m[room] = c
	}
	return c
}

// HashAudio returns the content digest used in the STT key, over raw PCM
// bytes.
func HashAudio(pcm []byte) string {
	sum := sha256.Sum256(pcm)
	return hex.EncodeToString(sum[:])
}

// GetOrCreateSTT implements the STT single-flight lookup keyed by
// (room, speaker, audio hash). produce is invoked at most once per key even
// under concurrent callers; its error is not cached.
func (c *Cache) GetOrCreateSTT(ctx context.Context, room, speaker, audioHash string, produce func(context.Context) (STTResult, error)) (STTResult, bool, error) {
	kc := sttFor(c.stt, &c.mu, room)
	key := speaker + "\x00" + audioHash
	return kc.getOrCreate(ctx, key, produce)
}

// GetOrCreateMT implements the MT single-flight lookup keyed by
// (room, source text exact, source lang, target lang).
func (c *Cache) GetOrCreateMT(ctx context.Context, room, sourceText, sourceLang, targetLang string, produce func(context.Context) (string, error)) (string, bool, error) {
	kc := sttFor(c.mt, &c.mu, room)
	key := sourceLang + "\x00" + targetLang + "\x00" + sourceText
	return kc.getOrCreate(ctx, key, produce)
}

// GetOrCreateTTS implements the TTS single-flight lookup keyed by
// (room, text exact, target lang).
func (c *Cache) GetOrCreateTTS(ctx context.Context, room, text, targetLang string, produce func(context.Context) (TTSResult, error)) (TTSResult, bool, error) {
	kc := sttFor(c.tts, &c.mu, room)
	key := targetLang + "\x00" + text
	return kc.getOrCreate(ctx, key, produce)
}

// EvictRoom drops all cached state for a room. Callers invoke this when the
// registry reports a room's last session has unregistered.
func (c *Cache) EvictRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stt, room)
	delete(c.mt, room)
	delete(c.tts, room)
}
