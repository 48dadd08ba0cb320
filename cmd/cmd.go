package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bpekit/bpekit/envconfig"
	"github.com/bpekit/bpekit/format"
	"github.com/bpekit/bpekit/logutil"
	"github.com/bpekit/bpekit/server"
	"github.com/bpekit/bpekit/tokenizer"
	"github.com/bpekit/bpekit/version"
)

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "bpekit",
		Short:        "Byte-level BPE tokenizer",
		Version:      version.Version,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if envconfig.Debug {
				level = slog.LevelDebug
			}

			slog.SetDefault(logutil.NewLogger(os.Stderr, level))
		},
	}

	cobra.EnableCommandSorting = false

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Train a vocabulary and merge table from a corpus",
		RunE:  trainHandler,
	}
	trainCmd.Flags().StringP("file", "f", "", "corpus file to train on")
	trainCmd.Flags().Int("vocab-size", 512, "target vocabulary size (256 byte tokens + merges)")
	trainCmd.Flags().StringP("output", "o", ".", "directory for vocab.json and merges.txt")
	trainCmd.Flags().Int("min-frequency", 0, "minimum pair frequency for a merge (default from BPEKIT_MIN_PAIR_FREQ)")
	trainCmd.Flags().Int64("max-bytes", 0, "cap on corpus bytes read (default from BPEKIT_MAX_CORPUS_BYTES)")
	trainCmd.MarkFlagRequired("file")

	encodeCmd := &cobra.Command{
		Use:   "encode [TEXT]",
		Short: "Encode text to token ids",
		RunE:  encodeHandler,
	}

	decodeCmd := &cobra.Command{
		Use:   "decode ID...",
		Short: "Decode token ids back to text",
		Args:  cobra.MinimumNArgs(1),
		RunE:  decodeHandler,
	}

	tokenizeCmd := &cobra.Command{
		Use:   "tokenize [TEXT]",
		Short: "Show the token breakdown of text",
		RunE:  tokenizeHandler,
	}

	serveCmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Serve the tokenizer API",
		RunE:    serveHandler,
	}

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show environment configuration",
		Run:   envHandler,
	}

	for _, cmd := range []*cobra.Command{encodeCmd, decodeCmd, tokenizeCmd, serveCmd} {
		cmd.Flags().StringP("model", "m", ".", "directory containing vocab.json and merges.txt")
	}

	rootCmd.AddCommand(trainCmd, encodeCmd, decodeCmd, tokenizeCmd, serveCmd, envCmd)
	return rootCmd
}

func loadTokenizer(cmd *cobra.Command) (*tokenizer.Tokenizer, error) {
	dir, _ := cmd.Flags().GetString("model")
	return tokenizer.Load(dir)
}

// readInput returns the joined arguments, or stdin when none are
// given so text can be piped in.
func readInput(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func trainHandler(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	vocabSize, _ := cmd.Flags().GetInt("vocab-size")
	output, _ := cmd.Flags().GetString("output")
	minFreq, _ := cmd.Flags().GetInt("min-frequency")
	maxBytes, _ := cmd.Flags().GetInt64("max-bytes")

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := tokenizer.Train(cmd.Context(), f, tokenizer.TrainOptions{
		TargetVocabSize:  vocabSize,
		MinPairFrequency: minFreq,
		MaxCorpusBytes:   maxBytes,
	})
	if err != nil {
		return err
	}

	if err := tokenizer.SaveModel(result.Vocabulary, output); err != nil {
		return err
	}

	fmt.Printf("trained %s merges on %s (vocab %d)\n",
		format.HumanNumber(uint64(result.MergesLearned)),
		format.HumanBytes(result.CorpusBytes),
		result.Vocabulary.Size())
	if result.Truncated {
		fmt.Println("corpus was capped at the configured maximum")
	}
	if result.EarlyStop {
		fmt.Println("stopped early: no pair met the frequency threshold")
	}

	fmt.Printf("wrote %s/vocab.json and %s/merges.txt\n", output, output)
	return nil
}

func encodeHandler(cmd *cobra.Command, args []string) error {
	t, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	text, err := readInput(args)
	if err != nil {
		return err
	}

	ids, err := t.Encode(text)
	if err != nil {
		return err
	}

	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, id)
	}

	fmt.Println(sb.String())
	return nil
}

func decodeHandler(cmd *cobra.Command, args []string) error {
	t, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	ids := make([]int32, 0, len(args))
	for _, arg := range args {
		for _, field := range strings.FieldsFunc(arg, func(r rune) bool { return r == ',' || r == ' ' }) {
			id, err := strconv.ParseInt(field, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid token id %q", field)
			}

			ids = append(ids, int32(id))
		}
	}

	text, err := t.Decode(ids)
	if err != nil {
		return err
	}

	fmt.Println(text)
	return nil
}

func tokenizeHandler(cmd *cobra.Command, args []string) error {
	t, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	text, err := readInput(args)
	if err != nil {
		return err
	}

	tokens, err := t.Tokenize(text)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"TOKEN", "ID", "SPECIAL"})
	for _, token := range tokens {
		table.Append([]string{
			fmt.Sprintf("%q", token),
			strconv.Itoa(int(t.Vocabulary().Encode(token))),
			strconv.FormatBool(t.IsSpecialToken(token)),
		})
	}

	table.Render()
	return nil
}

func serveHandler(cmd *cobra.Command, args []string) error {
	t, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", envconfig.Host)
	if err != nil {
		return err
	}

	return server.Serve(ln, t)
}

func envHandler(cmd *cobra.Command, args []string) {
	env := envconfig.AsMap()
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("%-24s %v\n", k, env[k].Value)
	}
}
