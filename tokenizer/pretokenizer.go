package tokenizer

import (
	"iter"
	"slices"

	"github.com/dlclark/regexp2"
)

// defaultPretokenizer is the GPT byte-level split rule: contraction
// suffixes, optionally space-prefixed letter runs, digit runs and
// punctuation runs, then whitespace. The (?!\S) lookahead keeps the
// final space of an interior run attached to the following word, which
// is why stdlib regexp (no lookarounds) cannot express this pattern.
// https://github.com/huggingface/tokenizers/blob/main/tokenizers/src/pre_tokenizers/byte_level.rs#L44
const defaultPretokenizer = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

type pretokenizer struct {
	regexps []*regexp2.Regexp
}

func newPretokenizer(patterns ...string) *pretokenizer {
	if len(patterns) == 0 {
		patterns = []string{defaultPretokenizer}
	}

	return &pretokenizer{
		regexps: slices.Collect(func(yield func(*regexp2.Regexp) bool) {
			for _, p := range patterns {
				if !yield(regexp2.MustCompile(p, regexp2.RE2)) {
					return
				}
			}
		}),
	}
}

// split yields the pre-tokenization chunks of s in order. Unmatched
// spans are yielded as their own chunks so the concatenation of all
// chunks always reproduces s exactly.
func (p *pretokenizer) split(s string) iter.Seq[string] {
	parts := []string{s}
	for _, re := range p.regexps {
		parts = slices.Collect(func(yield func(string) bool) {
			for _, part := range parts {
				r := []rune(part)
				var offset int
				for m, _ := re.FindRunesMatch(r); m != nil; m, _ = re.FindNextMatch(m) {
					if m.Index > offset {
						if !yield(string(r[offset:m.Index])) {
							return
						}
					}

					if !yield(m.String()) {
						return
					}

					offset = m.Index + m.Length
				}

				if offset < len(r) {
					if !yield(string(r[offset:])) {
						return
					}
				}
			}
		})
	}

	return slices.Values(parts)
}
