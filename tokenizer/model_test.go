package tokenizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSaveLoadModel(t *testing.T) {
	dir := t.TempDir()

	vocab := NewVocabulary([]string{"h e", "l l", "he ll", "Ġ w"}, nil)
	if err := SaveModel(vocab, dir); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadModel(dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(vocab.Values, loaded.Values); diff != "" {
		t.Errorf("values mismatch (-saved +loaded):\n%s", diff)
	}
	if diff := cmp.Diff(vocab.Merges, loaded.Merges); diff != "" {
		t.Errorf("merges mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestLoadTokenizerFromDir(t *testing.T) {
	dir := t.TempDir()

	if err := SaveModel(NewVocabulary([]string{"h e", "l l", "he ll"}, nil), dir); err != nil {
		t.Fatal(err)
	}

	tok, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	ids, err := tok.Encode("hello")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int32{258, 'o'}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadModelMergesHeader(t *testing.T) {
	dir := t.TempDir()

	if err := SaveModel(NewVocabulary([]string{"a b"}, nil), dir); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(filepath.Join(dir, mergesFileName))
	if err != nil {
		t.Fatal(err)
	}
	if want := mergesHeader + "\na b\n"; string(b) != want {
		t.Errorf("merges.txt = %q, want %q", b, want)
	}
}

func TestLoadModelMalformed(t *testing.T) {
	write := func(t *testing.T, dir, name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	setup := func(t *testing.T) string {
		dir := t.TempDir()
		if err := SaveModel(NewVocabulary([]string{"a b"}, nil), dir); err != nil {
			t.Fatal(err)
		}
		return dir
	}

	t.Run("merge entry with three fields", func(t *testing.T) {
		dir := setup(t)
		write(t, dir, mergesFileName, "a b c\n")
		if _, err := LoadModel(dir, nil); err == nil {
			t.Error("LoadModel accepted a malformed merge entry")
		}
	})

	t.Run("merge entry with one field", func(t *testing.T) {
		dir := setup(t)
		write(t, dir, mergesFileName, "ab\n")
		if _, err := LoadModel(dir, nil); err == nil {
			t.Error("LoadModel accepted a malformed merge entry")
		}
	})

	t.Run("vocab is not json", func(t *testing.T) {
		dir := setup(t)
		write(t, dir, vocabFileName, "{not json")
		if _, err := LoadModel(dir, nil); err == nil {
			t.Error("LoadModel accepted malformed json")
		}
	})

	t.Run("vocab disagrees with merges", func(t *testing.T) {
		dir := setup(t)
		write(t, dir, vocabFileName, `{"x": 0}`)
		if _, err := LoadModel(dir, nil); err == nil {
			t.Error("LoadModel accepted a vocabulary that contradicts the merge table")
		}
	})

	t.Run("missing files", func(t *testing.T) {
		if _, err := LoadModel(t.TempDir(), nil); err == nil {
			t.Error("LoadModel accepted an empty directory")
		}
	})
}
