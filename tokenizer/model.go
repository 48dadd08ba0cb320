package tokenizer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	vocabFileName  = "vocab.json"
	mergesFileName = "merges.txt"
	mergesHeader   = "#version: 0.2"
)

// SaveModel persists a vocabulary as vocab.json (flat token to id
// object) and merges.txt (one "left right" entry per line, line order
// is rank, preceded by a version header).
func SaveModel(v *Vocabulary, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	vocab := make(map[string]int32, len(v.Values))
	for i, value := range v.Values {
		vocab[value] = int32(i)
	}

	b, err := json.MarshalIndent(vocab, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, vocabFileName), append(b, '\n'), 0o644); err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(mergesHeader + "\n")
	for _, m := range v.Merges {
		sb.WriteString(m + "\n")
	}

	return os.WriteFile(filepath.Join(dir, mergesFileName), []byte(sb.String()), 0o644)
}

// LoadModel reads a persisted model directory. The id assignment is
// replayed from the merge table, then cross-checked against vocab.json
// so a stale or hand-edited vocabulary cannot produce a tokenizer that
// disagrees with its merges. Any malformed file is fatal; a partially
// initialized vocabulary is never returned.
func LoadModel(dir string, specials *SpecialTokens) (*Vocabulary, error) {
	merges, err := loadMerges(filepath.Join(dir, mergesFileName))
	if err != nil {
		return nil, err
	}

	vocab := NewVocabulary(merges, specials)

	loaded, err := loadVocab(filepath.Join(dir, vocabFileName))
	if err != nil {
		return nil, err
	}

	if len(loaded) != vocab.Size() {
		return nil, fmt.Errorf("%s: %d entries, expected %d from merge table", vocabFileName, len(loaded), vocab.Size())
	}

	for s, id := range loaded {
		if want := vocab.Encode(s); want != id {
			return nil, fmt.Errorf("%s: token %q has id %d, expected %d from merge table", vocabFileName, s, id, want)
		}
	}

	return vocab, nil
}

// Load builds a tokenizer from a persisted model directory using the
// default special-token set.
func Load(dir string, opts ...Option) (*Tokenizer, error) {
	vocab, err := LoadModel(dir, DefaultSpecialTokens())
	if err != nil {
		return nil, err
	}

	return New(vocab, opts...), nil
}

func loadVocab(path string) (map[string]int32, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var vocab map[string]int32
	if err := json.Unmarshal(b, &vocab); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	return vocab, nil
}

func loadMerges(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var merges []string
	scanner := bufio.NewScanner(f)
	for line := 0; scanner.Scan(); line++ {
		text := scanner.Text()
		if line == 0 && strings.HasPrefix(text, "#") {
			continue
		}

		left, right, ok := strings.Cut(text, " ")
		if !ok || left == "" || right == "" || strings.Contains(right, " ") {
			return nil, fmt.Errorf("parsing %s line %d: malformed merge entry %q", filepath.Base(path), line+1, text)
		}

		merges = append(merges, text)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return merges, nil
}
