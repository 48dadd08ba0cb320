// Package tokenizer implements a byte-level byte-pair-encoding
// tokenizer compatible with GPT-style models: text is segmented with
// the standard byte-level pretokenizer, re-expressed as byte glyphs,
// and reduced by a ranked merge table. Special chat sentinels bypass
// the whole pipeline and map to fixed reserved ids.
package tokenizer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/bpekit/bpekit/envconfig"
	"github.com/bpekit/bpekit/logutil"
)

var (
	// ErrUnknownToken reports a merged token with no vocabulary id.
	ErrUnknownToken = errors.New("unknown token")
	// ErrUnknownID reports a decode input id this vocabulary never produced.
	ErrUnknownID = errors.New("unknown token id")
	// ErrMalformedGlyph reports a rune outside the byte-level codec.
	ErrMalformedGlyph = errors.New("malformed glyph")
)

// Tokenizer pairs an immutable Vocabulary with the pretokenizer and an
// optional memoization cache. Encode, Decode and Tokenize are pure
// functions of (vocabulary, input) and safe for concurrent use.
type Tokenizer struct {
	vocab  *Vocabulary
	pre    *pretokenizer
	cache  *chunkCache
	strict bool
}

type Option func(*Tokenizer)

// WithStrict makes Encode fail on unknown tokens instead of
// substituting the <|endoftext|> id.
func WithStrict(strict bool) Option {
	return func(t *Tokenizer) {
		t.strict = strict
	}
}

// WithCacheSize bounds the chunk memoization cache. Zero disables
// caching entirely, which is useful for determinism tests.
func WithCacheSize(size int) Option {
	return func(t *Tokenizer) {
		t.cache = newChunkCache(size)
	}
}

// WithPretokenizers overrides the default byte-level split patterns.
func WithPretokenizers(patterns ...string) Option {
	return func(t *Tokenizer) {
		t.pre = newPretokenizer(patterns...)
	}
}

func New(vocab *Vocabulary, opts ...Option) *Tokenizer {
	t := &Tokenizer{
		vocab:  vocab,
		pre:    newPretokenizer(),
		cache:  newChunkCache(envconfig.CacheSize),
		strict: envconfig.Strict,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Tokenizer) Vocabulary() *Vocabulary {
	return t.vocab
}

func (t *Tokenizer) IsSpecialToken(s string) bool {
	return t.vocab.Specials.Contains(s)
}

// mergeChunk runs one pre-tokenization chunk through the merge engine,
// consulting the cache first. Chunks that are already whole vocabulary
// entries short-circuit.
func (t *Tokenizer) mergeChunk(chunk string) []string {
	if tokens, ok := t.cache.get(chunk); ok {
		return tokens
	}

	encoded := glyphEncode(chunk)

	var tokens []string
	if id := t.vocab.Encode(encoded); id >= 0 {
		tokens = []string{encoded}
	} else {
		tokens = applyMerges(encoded, t.vocab)
	}

	t.cache.add(chunk, tokens)
	return tokens
}

// Encode converts text to token ids. Special-token literals map to
// their reserved ids; everything else is segmented, glyph-encoded and
// merged. In lenient mode an unknown merged token degrades to the
// <|endoftext|> id with a warning; in strict mode it fails the call.
func (t *Tokenizer) Encode(s string) ([]int32, error) {
	var ids []int32
	for _, frag := range splitSpecials(s, t.vocab.Specials) {
		if len(frag.ids) > 0 {
			ids = append(ids, frag.ids...)
			continue
		}

		for chunk := range t.pre.split(frag.value) {
			for _, token := range t.mergeChunk(chunk) {
				id := t.vocab.Encode(token)
				if id < 0 {
					if t.strict {
						return nil, fmt.Errorf("%w: %q", ErrUnknownToken, token)
					}

					eot, ok := t.vocab.Specials.ID(EndOfText)
					if !ok {
						return nil, fmt.Errorf("%w: %q", ErrUnknownToken, token)
					}

					slog.Warn("substituting end-of-text for unknown token", "token", token)
					id = eot
				}

				ids = append(ids, id)
			}
		}
	}

	logutil.Trace("encoded", "text", s, "ids", ids)
	return ids, nil
}

// Tokenize is the encode pipeline stopped before the id lookup: it
// returns the merged token strings, with special-token literals kept
// whole. Non-special tokens are in glyph form.
func (t *Tokenizer) Tokenize(s string) ([]string, error) {
	var tokens []string
	for _, frag := range splitSpecials(s, t.vocab.Specials) {
		if len(frag.ids) > 0 {
			tokens = append(tokens, frag.value)
			continue
		}

		for chunk := range t.pre.split(frag.value) {
			tokens = append(tokens, t.mergeChunk(chunk)...)
		}
	}

	return tokens, nil
}

// Decode converts ids back to text. Special ids emit their literal.
// Other ids accumulate raw bytes across each maximal non-special run
// so multi-byte UTF-8 sequences split across token boundaries survive;
// a run that is not valid UTF-8 falls back to its glyph form. Unknown
// ids are skipped with a warning, never silently corrupting neighbors.
func (t *Tokenizer) Decode(ids []int32) (string, error) {
	var sb strings.Builder

	var run []byte
	var glyphs strings.Builder
	flush := func() {
		if len(run) == 0 && glyphs.Len() == 0 {
			return
		}

		if utf8.Valid(run) {
			sb.Write(run)
		} else {
			slog.Warn("decoded bytes are not valid utf-8, emitting glyph form", "glyphs", glyphs.String())
			sb.WriteString(glyphs.String())
		}

		run = run[:0]
		glyphs.Reset()
	}

	for _, id := range ids {
		if s, ok := t.vocab.Specials.Value(id); ok {
			flush()
			sb.WriteString(s)
			continue
		}

		token, ok := t.vocab.Decode(id)
		if !ok {
			slog.Warn("skipping during decode", "error", ErrUnknownID, "id", id)
			continue
		}

		b, err := glyphDecode(token)
		if err != nil {
			slog.Warn("emitting token literally", "error", err, "token", token)
			flush()
			sb.WriteString(token)
			continue
		}

		run = append(run, b...)
		glyphs.WriteString(token)
	}

	flush()

	logutil.Trace("decoded", "ids", ids, "text", sb.String())
	return sb.String(), nil
}

// FormatChatMessages renders a system and user message in the chat
// markup the special tokens delimit, ending with an open assistant
// turn.
func FormatChatMessages(system, user string) string {
	var sb strings.Builder
	sb.WriteString(IMStart + "system" + IMSep + system + IMEnd)
	sb.WriteString(IMStart + "user" + IMSep + user + IMEnd)
	sb.WriteString(IMStart + "assistant" + IMSep)
	return sb.String()
}
