// Package topology classifies language pairs into word-order families and
// selects the buffering strategy the session state machine should use for a
// given source/target pair. It is pure and side-effect-free.
package topology

// Family is a word-order classification used purely to decide buffering
// strategy; it carries no linguistic claim beyond that.
type Family string

const (
	SOV Family = "SOV"
	SVO Family = "SVO"
	VSO Family = "VSO"
)

// Strategy selects how much audio the session should accumulate before
// handing an utterance to the pipeline.
type Strategy string

const (
	ChunkBased    Strategy = "CHUNK_BASED"
	SentenceBased Strategy = "SENTENCE_BASED"
)

const (
	chunkMaxBufferMs    = 1500
	sentenceMaxBufferMs = 2500
)

var familyTable = map[string]Family{
	"ko": SOV, "ja": SOV, "tr": SOV, "hi": SOV, "bn": SOV,
	"en": SVO, "zh": SVO, "es": SVO, "fr": SVO, "de": SVO, "pt": SVO, "ru": SVO, "it": SVO,
	"ar": VSO, "he": VSO,
}

// FamilyOf returns the word-order family for a language code. Unknown codes
// default to SVO, per the spec.
func FamilyOf(lang string) Family {
	if f, ok := familyTable[lang]; ok {
		return f
	}
	return SVO
}

// StrategyFor returns CHUNK_BASED when source and target share a word-order
// family, SENTENCE_BASED otherwise.
func StrategyFor(source, target string) Strategy {
	if FamilyOf(source) == FamilyOf(target) {
		return ChunkBased
	}
	return SentenceBased
}

// MaxBufferMs returns the maximum buffering window, in milliseconds, for the
// strategy implied by source and target.
func MaxBufferMs(source, target string) int {
	return MaxBufferMsForStrategy(StrategyFor(source, target))
}

// MaxBufferMsForStrategy returns the maximum buffering window, in
// milliseconds, for an already-determined strategy. Callers holding a
// session's stored primary strategy (computed across every target, not just
// one) should use this instead of re-deriving it from a single source/target
// pair.
func MaxBufferMsForStrategy(strategy Strategy) int {
	if strategy == ChunkBased {
		return chunkMaxBufferMs
	}
	return sentenceMaxBufferMs
}
