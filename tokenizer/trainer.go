package tokenizer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bpekit/bpekit/envconfig"
)

// TrainOptions control merge discovery. Zero values fall back to the
// BPEKIT_* environment configuration.
type TrainOptions struct {
	// TargetVocabSize is the total positional vocabulary size to aim
	// for: 256 byte glyphs plus (TargetVocabSize - 256) merges.
	TargetVocabSize int

	// MinPairFrequency is the occurrence count below which no further
	// merges are accepted. Full-corpus training uses 2; bounded fast
	// variants typically raise it to 3.
	MinPairFrequency int

	// MaxCorpusBytes caps how much of the corpus is read. The cap is a
	// deterministic prefix and the effective size is reported in the
	// result, never silently.
	MaxCorpusBytes int64

	Specials      *SpecialTokens
	Pretokenizers []string
}

// TrainResult reports what training consumed and produced.
type TrainResult struct {
	Vocabulary    *Vocabulary
	MergesLearned int

	// CorpusBytes is the effective number of bytes trained on after
	// any MaxCorpusBytes cap; Truncated reports whether the cap bit.
	CorpusBytes int64
	Truncated   bool

	// EarlyStop reports that training terminated before reaching
	// TargetVocabSize because no pair met the frequency threshold.
	EarlyStop bool
}

// word is one distinct pre-tokenization chunk and its corpus-wide
// occurrence count. The token slice is rewritten destructively as
// merges are applied.
type word struct {
	tokens []string
	count  int
}

// Train derives a vocabulary and merge table from a corpus: segment,
// glyph-encode and count every chunk, then greedily merge the most
// frequent adjacent pair until the vocabulary reaches the target size
// or the best pair falls below the frequency threshold. Ties break by
// first-discovered order, which makes training fully deterministic.
//
// The context is checked between merge iterations, so cancellation
// takes effect at merge granularity.
func Train(ctx context.Context, corpus io.Reader, opts TrainOptions) (*TrainResult, error) {
	if opts.TargetVocabSize < 256 {
		return nil, fmt.Errorf("target vocab size must be at least 256, got %d", opts.TargetVocabSize)
	}

	minFreq := opts.MinPairFrequency
	if minFreq <= 0 {
		minFreq = envconfig.MinPairFrequency
	}
	if minFreq <= 0 {
		minFreq = 2
	}

	maxBytes := opts.MaxCorpusBytes
	if maxBytes <= 0 {
		maxBytes = envconfig.MaxCorpusBytes
	}

	text, truncated, err := readCorpus(corpus, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}

	if truncated {
		slog.Warn("corpus capped at configured maximum", "bytes", len(text))
	}

	words, err := countChunks(ctx, text, newPretokenizer(opts.Pretokenizers...))
	if err != nil {
		return nil, err
	}

	var merges []string
	var earlyStop bool
	for 256+len(merges) < opts.TargetVocabSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		left, right, count := bestPair(words)
		if count == 0 {
			earlyStop = true
			break
		}

		if count < minFreq {
			slog.Debug("stopping early", "left", left, "right", right, "count", count, "threshold", minFreq)
			earlyStop = true
			break
		}

		merges = append(merges, left+" "+right)
		merged := left + right
		for i := range words {
			words[i].tokens = mergeTokens(words[i].tokens, left, right, merged)
		}

		if len(merges)%500 == 0 {
			slog.Info("training progress", "merges", len(merges), "last", merged, "count", count)
		}
	}

	vocab := NewVocabulary(merges, opts.Specials)
	slog.Info("training complete", "merges", len(merges), "vocab", vocab.Size(), "bytes", len(text), "early_stop", earlyStop)

	return &TrainResult{
		Vocabulary:    vocab,
		MergesLearned: len(merges),
		CorpusBytes:   int64(len(text)),
		Truncated:     truncated,
		EarlyStop:     earlyStop,
	}, nil
}

func readCorpus(r io.Reader, maxBytes int64) (string, bool, error) {
	if maxBytes <= 0 {
		b, err := io.ReadAll(r)
		return string(b), false, err
	}

	b, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", false, err
	}

	if int64(len(b)) > maxBytes {
		return string(b[:maxBytes]), true, nil
	}

	return string(b), false, nil
}

// countChunks segments the corpus and builds the weighted chunk table.
// Lines are segmented concurrently; accumulation runs over the results
// in line order so first-seen ordering, and with it tie-breaking, is
// independent of worker scheduling.
func countChunks(ctx context.Context, text string, pre *pretokenizer) ([]word, error) {
	lines := strings.SplitAfter(text, "\n")
	chunks := make([][]string, len(lines))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, line := range lines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			for chunk := range pre.split(line) {
				chunks[i] = append(chunks[i], glyphEncode(chunk))
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var words []word
	for _, line := range chunks {
		for _, chunk := range line {
			if i, ok := index[chunk]; ok {
				words[i].count++
				continue
			}

			tokens := make([]string, 0, len(chunk))
			for _, r := range chunk {
				tokens = append(tokens, string(r))
			}

			index[chunk] = len(words)
			words = append(words, word{tokens: tokens, count: 1})
		}
	}

	return words, nil
}

// bestPair returns the adjacent pair with the highest weighted count,
// breaking ties by the order pairs were first encountered. A zero
// count means no pairs remain.
func bestPair(words []word) (string, string, int) {
	type stat struct {
		count int
		first int
	}

	counts := make(map[[2]string]*stat)
	var order int
	for _, w := range words {
		if len(w.tokens) < 2 {
			continue
		}

		for i := range len(w.tokens) - 1 {
			key := [2]string{w.tokens[i], w.tokens[i+1]}
			s, ok := counts[key]
			if !ok {
				s = &stat{first: order}
				order++
				counts[key] = s
			}

			s.count += w.count
		}
	}

	var best [2]string
	top := &stat{first: int(^uint(0) >> 1)}
	for key, s := range counts {
		if s.count > top.count || (s.count == top.count && s.first < top.first) {
			best, top = key, s
		}
	}

	return best[0], best[1], top.count
}

// mergeTokens replaces every non-overlapping occurrence of the pair,
// scanning left to right, in place.
func mergeTokens(tokens []string, left, right, merged string) []string {
	var n int
	for i := 0; i < len(tokens); {
		if i+1 < len(tokens) && tokens[i] == left && tokens[i+1] == right {
			tokens[n] = merged
			i += 2
		} else {
			tokens[n] = tokens[i]
			i++
		}
		n++
	}

	return tokens[:n]
}
