package tokenizer

import (
	"strings"
	"sync"
)

// Vocabulary is the bidirectional token-string to id store plus the
// ranked merge table. Values is indexed by id: entries 0-255 are the
// byte glyphs, entries 256+ are merge products in the order the merges
// were learned, so the whole assignment replays from Merges alone.
// Special tokens live in their own reserved range and are resolved
// before the positional entries.
//
// A Vocabulary is immutable once constructed; the reverse maps are
// built lazily and shared safely across goroutines.
type Vocabulary struct {
	Values   []string
	Merges   []string
	Specials *SpecialTokens

	valuesOnce sync.Once
	values     map[string]int32

	mergeOnce sync.Once
	merge     map[string]int32
}

// NewVocabulary seeds the 256 byte-glyph identities, then replays
// merges in rank order, appending each product at the next id.
func NewVocabulary(merges []string, specials *SpecialTokens) *Vocabulary {
	if specials == nil {
		specials = DefaultSpecialTokens()
	}

	values := make([]string, 0, 256+len(merges))
	for b := range 256 {
		values = append(values, string(byteToGlyph[b]))
	}

	for _, m := range merges {
		left, right, _ := strings.Cut(m, " ")
		values = append(values, left+right)
	}

	return &Vocabulary{
		Values:   values,
		Merges:   merges,
		Specials: specials,
	}
}

// Encode returns the id for a token string, or -1 if it is unknown.
func (v *Vocabulary) Encode(s string) int32 {
	if id, ok := v.Specials.ID(s); ok {
		return id
	}

	v.valuesOnce.Do(func() {
		v.values = make(map[string]int32, len(v.Values))
		for i, value := range v.Values {
			v.values[value] = int32(i)
		}
	})

	if id, ok := v.values[s]; ok {
		return id
	}

	return -1
}

// Decode returns the token string for an id. The second return is
// false for ids this vocabulary never produced.
func (v *Vocabulary) Decode(id int32) (string, bool) {
	if s, ok := v.Specials.Value(id); ok {
		return s, true
	}

	if id >= 0 && int(id) < len(v.Values) {
		return v.Values[id], true
	}

	return "", false
}

// Merge returns the rank of the pair (left, right), or -1 if the pair
// was never learned. Lower ranks merge first.
func (v *Vocabulary) Merge(left, right string) int {
	v.mergeOnce.Do(func() {
		v.merge = make(map[string]int32, len(v.Merges))
		for i, merge := range v.Merges {
			v.merge[merge] = int32(i)
		}
	})

	if rank, ok := v.merge[left+" "+right]; ok {
		return int(rank)
	}

	return -1
}

// Size is the number of positional entries: byte glyphs plus learned
// merges, excluding the reserved special range.
func (v *Vocabulary) Size() int {
	return len(v.Values)
}
