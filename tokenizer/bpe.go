package tokenizer

import (
	"cmp"

	heap "github.com/emirpasic/gods/v2/trees/binaryheap"
	lru "github.com/hashicorp/golang-lru/v2"
)

// pair is a candidate merge between the symbols at positions a and b.
type pair struct {
	a, b  int
	rank  int
	value string
}

// merge is a node in the doubly-linked symbol list. A node whose runes
// are nil has been absorbed into its left neighbor.
type merge struct {
	p, n  int
	runes []rune
}

// applyMerges rewrites a glyph-encoded chunk into its fully merged
// token strings using the vocabulary's ranked merge table.
//
// Candidate pairs sit in a heap ordered by (rank, position), so every
// occurrence of the globally lowest-rank pair merges left to right and
// without overlap before any later-learned pair is considered. Stale
// heap entries are detected by revalidating adjacency and value on pop.
func applyMerges(chunk string, vocab *Vocabulary) []string {
	runes := []rune(chunk)
	if len(runes) == 0 {
		return nil
	}

	merges := make([]merge, len(runes))
	for r := range runes {
		merges[r] = merge{
			p:     r - 1,
			n:     r + 1,
			runes: []rune{runes[r]},
		}
	}

	pairwise := func(a, b int) *pair {
		if a < 0 || b >= len(runes) {
			return nil
		}

		left, right := string(merges[a].runes), string(merges[b].runes)
		rank := vocab.Merge(left, right)
		if rank < 0 {
			return nil
		}

		return &pair{
			a:     a,
			b:     b,
			rank:  rank,
			value: left + right,
		}
	}

	pairs := heap.NewWith(func(i, j *pair) int {
		if n := cmp.Compare(i.rank, j.rank); n != 0 {
			return n
		}

		return cmp.Compare(i.a, j.a)
	})

	for i := range len(runes) - 1 {
		if pair := pairwise(i, i+1); pair != nil {
			pairs.Push(pair)
		}
	}

	for !pairs.Empty() {
		pair, _ := pairs.Pop()

		left, right := merges[pair.a], merges[pair.b]
		if len(left.runes) == 0 || len(right.runes) == 0 ||
			left.n != pair.b ||
			string(left.runes)+string(right.runes) != pair.value {
			continue
		}

		if id := vocab.Encode(pair.value); id < 0 {
			continue
		}

		merges[pair.a].runes = append(left.runes, right.runes...)
		merges[pair.b].runes = nil

		merges[pair.a].n = right.n
		if right.n < len(merges) {
			merges[right.n].p = pair.a
		}

		if pair := pairwise(merges[pair.a].p, pair.a); pair != nil {
			pairs.Push(pair)
		}

		if pair := pairwise(pair.a, merges[pair.a].n); pair != nil {
			pairs.Push(pair)
		}
	}

	var tokens []string
	for _, merge := range merges {
		if len(merge.runes) > 0 {
			tokens = append(tokens, string(merge.runes))
		}
	}

	return tokens
}

// chunkCache memoizes fully merged chunks keyed by the raw chunk
// string. It is an optimization only; a nil cache simply recomputes.
// The underlying lru locks internally, so concurrent encodes at worst
// lose an update and recompute.
type chunkCache struct {
	lru *lru.Cache[string, []string]
}

func newChunkCache(size int) *chunkCache {
	if size <= 0 {
		return nil
	}

	cache, err := lru.New[string, []string](size)
	if err != nil {
		return nil
	}

	return &chunkCache{lru: cache}
}

func (c *chunkCache) get(chunk string) ([]string, bool) {
	if c == nil {
		return nil, false
	}

	return c.lru.Get(chunk)
}

func (c *chunkCache) add(chunk string, tokens []string) {
	if c == nil {
		return
	}

	c.lru.Add(chunk, tokens)
}
