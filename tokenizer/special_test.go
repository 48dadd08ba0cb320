package tokenizer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSplitSpecials(t *testing.T) {
	specials := DefaultSpecialTokens()

	cases := []struct {
		name  string
		input string
		want  []fragment
	}{
		{
			name:  "chat markup",
			input: "<|im_start|>system<|im_sep|>Hello<|im_end|>",
			want: []fragment{
				{value: IMStart, ids: []int32{IMStartID}},
				{value: "system"},
				{value: IMSep, ids: []int32{IMSepID}},
				{value: "Hello"},
				{value: IMEnd, ids: []int32{IMEndID}},
			},
		},
		{
			name:  "no specials",
			input: "just plain text",
			want:  []fragment{{value: "just plain text"}},
		},
		{
			name:  "leading text",
			input: "done<|endoftext|>",
			want: []fragment{
				{value: "done"},
				{value: EndOfText, ids: []int32{EndOfTextID}},
			},
		},
		{
			name:  "repeated special",
			input: "<|endoftext|><|endoftext|>",
			want: []fragment{
				{value: EndOfText, ids: []int32{EndOfTextID}},
				{value: EndOfText, ids: []int32{EndOfTextID}},
			},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSpecials(tt.input, specials)
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(fragment{}), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("splitSpecials mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitSpecialsLongestFirst(t *testing.T) {
	specials := NewSpecialTokens(map[string]int32{
		"<tag>":  1000,
		"<tag>x": 1001,
	})

	got := splitSpecials("<tag>x<tag>", specials)
	want := []fragment{
		{value: "<tag>x", ids: []int32{1001}},
		{value: "<tag>", ids: []int32{1000}},
	}

	if diff := cmp.Diff(want, got, cmp.AllowUnexported(fragment{})); diff != "" {
		t.Errorf("splitSpecials mismatch (-want +got):\n%s", diff)
	}
}

func TestSpecialTokenLookup(t *testing.T) {
	specials := DefaultSpecialTokens()

	if id, ok := specials.ID(IMStart); !ok || id != IMStartID {
		t.Errorf("ID(%q) = %d, %t; want %d", IMStart, id, ok, IMStartID)
	}

	if s, ok := specials.Value(EndOfTextID); !ok || s != EndOfText {
		t.Errorf("Value(%d) = %q, %t; want %q", EndOfTextID, s, ok, EndOfText)
	}

	if specials.Contains("<|not_a_token|>") {
		t.Error("Contains reported an unknown literal")
	}
}
