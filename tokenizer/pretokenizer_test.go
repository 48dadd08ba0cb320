package tokenizer

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitBoundaries(t *testing.T) {
	pre := newPretokenizer()

	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple sentence",
			input: "Hello, world!",
			want:  []string{"Hello", ",", " world", "!"},
		},
		{
			name:  "contractions",
			input: "don't we'll they're",
			want:  []string{"don", "'t", " we", "'ll", " they", "'re"},
		},
		{
			name:  "possessive",
			input: "Hello's world!!",
			want:  []string{"Hello", "'s", " world", "!!"},
		},
		{
			name:  "digits",
			input: "I have 123 apples",
			want:  []string{"I", " have", " 123", " apples"},
		},
		{
			name:  "letters and digits interleaved",
			input: "x1y2",
			want:  []string{"x", "1", "y", "2"},
		},
		{
			name:  "decimal number",
			input: "123.45",
			want:  []string{"123", ".", "45"},
		},
		{
			name:  "leading spaces keep one for the word",
			input: "  leading",
			want:  []string{" ", " leading"},
		},
		{
			name:  "trailing whitespace run",
			input: "trailing  ",
			want:  []string{"trailing", "  "},
		},
		{
			name:  "newlines split individually before text",
			input: "a\n\nb",
			want:  []string{"a", "\n", "\n", "b"},
		},
		{
			name:  "tab",
			input: "a\tb",
			want:  []string{"a", "\t", "b"},
		},
		{
			name:  "unicode letters",
			input: "héllo wörld",
			want:  []string{"héllo", " wörld"},
		},
		{
			name:  "cjk",
			input: "こんにちは 123",
			want:  []string{"こんにちは", " 123"},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := slices.Collect(pre.split(tt.input))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("split mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitCoverage(t *testing.T) {
	pre := newPretokenizer()

	inputs := []string{
		"Hello, world!",
		"  odd   spacing \t\n mixed whitespace",
		"emoji 👍👍 and symbols £€",
		"tabs\tand\nnewlines\r\n",
		"1234567890 !@#$%^&*()",
		"mixedCASE wordsToo",
		strings.Repeat("the quick brown fox ", 8),
	}

	for _, input := range inputs {
		var sb strings.Builder
		for chunk := range pre.split(input) {
			sb.WriteString(chunk)
		}

		if sb.String() != input {
			t.Errorf("chunks do not cover input: got %q, want %q", sb.String(), input)
		}
	}
}
