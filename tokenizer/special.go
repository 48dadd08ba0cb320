package tokenizer

import (
	"cmp"
	"maps"
	"slices"
	"strings"
)

// Chat sentinel literals and their reserved ids. The ids follow the
// cl100k chat markup assignments so encoded conversations interoperate
// with models expecting those values. They sit far above any id the
// trainer can produce, keeping the special range disjoint from byte
// glyphs (0-255) and merge-derived tokens (256+).
const (
	EndOfText = "<|endoftext|>"
	IMStart   = "<|im_start|>"
	IMEnd     = "<|im_end|>"
	IMSep     = "<|im_sep|>"
)

const (
	EndOfTextID int32 = 100257
	IMStartID   int32 = 100264
	IMEndID     int32 = 100265
	IMSepID     int32 = 100266
)

// SpecialTokens is a closed set of sentinel literals with fixed ids.
// It is populated once at construction and never mutated afterward;
// training does not touch it.
type SpecialTokens struct {
	ids    map[string]int32
	values map[int32]string

	// literals sorted longest first so a short token can never match
	// the prefix of a longer one during splitting
	byLength []string
}

func NewSpecialTokens(ids map[string]int32) *SpecialTokens {
	st := &SpecialTokens{
		ids:    maps.Clone(ids),
		values: make(map[int32]string, len(ids)),
	}

	for s, id := range st.ids {
		st.values[id] = s
	}

	st.byLength = slices.SortedFunc(maps.Keys(st.ids), func(a, b string) int {
		if n := cmp.Compare(len(b), len(a)); n != 0 {
			return n
		}

		return cmp.Compare(a, b)
	})

	return st
}

func DefaultSpecialTokens() *SpecialTokens {
	return NewSpecialTokens(map[string]int32{
		EndOfText: EndOfTextID,
		IMStart:   IMStartID,
		IMEnd:     IMEndID,
		IMSep:     IMSepID,
	})
}

func (st *SpecialTokens) ID(s string) (int32, bool) {
	id, ok := st.ids[s]
	return id, ok
}

func (st *SpecialTokens) Value(id int32) (string, bool) {
	s, ok := st.values[id]
	return s, ok
}

func (st *SpecialTokens) Contains(s string) bool {
	_, ok := st.ids[s]
	return ok
}

func (st *SpecialTokens) Len() int {
	return len(st.ids)
}

// fragment is a span of input text and, once resolved, its token ids.
// Spans produced by splitSpecials with ids already attached are
// special-token matches and bypass segmentation and merging.
type fragment struct {
	value string
	ids   []int32
}

// splitSpecials splits s into fragments, lifting out every
// special-token literal. Literals are processed longest first and
// matched left to right without overlap; the text between matches is
// carried through untouched.
func splitSpecials(s string, specials *SpecialTokens) []fragment {
	fragments := []fragment{{value: s}}
	for _, special := range specials.byLength {
		if !strings.Contains(s, special) {
			continue
		}

		id := specials.ids[special]
		for i := 0; i < len(fragments); i++ {
			frag := fragments[i]
			if len(frag.ids) > 0 {
				continue
			}

			var middle []fragment
			switch idx := strings.Index(frag.value, special); {
			case idx < 0:
				middle = append(middle, frag)
			case idx > 0:
				middle = append(middle, fragment{value: frag.value[:idx]})
				fallthrough
			default:
				middle = append(middle, fragment{value: special, ids: []int32{id}})
				if rest := frag.value[idx+len(special):]; rest != "" {
					middle = append(middle, fragment{value: rest})
				}
			}

			fragments = slices.Replace(fragments, i, i+1, middle...)
		}
	}

	return fragments
}
