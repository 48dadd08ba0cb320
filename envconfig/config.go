package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

var (
	// Set via BPEKIT_DEBUG in the environment
	Debug bool
	// Set via BPEKIT_HOST in the environment
	Host string
	// Set via BPEKIT_ORIGINS in the environment
	AllowOrigins []string
	// Set via BPEKIT_STRICT in the environment
	Strict bool
	// Set via BPEKIT_CACHE_SIZE in the environment
	CacheSize int
	// Set via BPEKIT_MIN_PAIR_FREQ in the environment
	MinPairFrequency int
	// Set via BPEKIT_MAX_CORPUS_BYTES in the environment
	MaxCorpusBytes int64
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"BPEKIT_DEBUG":            {"BPEKIT_DEBUG", Debug, "Show additional debug information (e.g. BPEKIT_DEBUG=1)"},
		"BPEKIT_HOST":             {"BPEKIT_HOST", Host, "Address for the tokenizer server (default 127.0.0.1:11343)"},
		"BPEKIT_ORIGINS":          {"BPEKIT_ORIGINS", AllowOrigins, "A comma separated list of allowed origins"},
		"BPEKIT_STRICT":           {"BPEKIT_STRICT", Strict, "Fail encode calls on unknown tokens instead of substituting <|endoftext|>"},
		"BPEKIT_CACHE_SIZE":       {"BPEKIT_CACHE_SIZE", CacheSize, "Number of pre-tokenization chunks memoized per tokenizer (default 8192, 0 disables)"},
		"BPEKIT_MIN_PAIR_FREQ":    {"BPEKIT_MIN_PAIR_FREQ", MinPairFrequency, "Minimum pair frequency for a training merge (default 2)"},
		"BPEKIT_MAX_CORPUS_BYTES": {"BPEKIT_MAX_CORPUS_BYTES", MaxCorpusBytes, "Cap on training corpus size in bytes (default 0, unbounded)"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

var defaultAllowOrigins = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	// default values
	Host = "127.0.0.1:11343"
	CacheSize = 8192
	MinPairFrequency = 2

	LoadConfig()
}

func LoadConfig() {
	if debug := clean("BPEKIT_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	if host := clean("BPEKIT_HOST"); host != "" {
		Host = host
	}

	if strict := clean("BPEKIT_STRICT"); strict != "" {
		d, err := strconv.ParseBool(strict)
		if err == nil {
			Strict = d
		} else {
			Strict = true
		}
	}

	if size := clean("BPEKIT_CACHE_SIZE"); size != "" {
		val, err := strconv.Atoi(size)
		if err != nil || val < 0 {
			slog.Error("invalid setting, ignoring", "BPEKIT_CACHE_SIZE", size, "error", err)
		} else {
			CacheSize = val
		}
	}

	if freq := clean("BPEKIT_MIN_PAIR_FREQ"); freq != "" {
		val, err := strconv.Atoi(freq)
		if err != nil || val < 1 {
			slog.Error("invalid setting must be greater than zero", "BPEKIT_MIN_PAIR_FREQ", freq, "error", err)
		} else {
			MinPairFrequency = val
		}
	}

	if max := clean("BPEKIT_MAX_CORPUS_BYTES"); max != "" {
		val, err := strconv.ParseInt(max, 10, 64)
		if err != nil || val < 0 {
			slog.Error("invalid setting, ignoring", "BPEKIT_MAX_CORPUS_BYTES", max, "error", err)
		} else {
			MaxCorpusBytes = val
		}
	}

	if origins := clean("BPEKIT_ORIGINS"); origins != "" {
		AllowOrigins = strings.Split(origins, ",")
	}
	for _, allowOrigin := range defaultAllowOrigins {
		AllowOrigins = append(AllowOrigins,
			fmt.Sprintf("http://%s", allowOrigin),
			fmt.Sprintf("https://%s", allowOrigin),
			fmt.Sprintf("http://%s:*", allowOrigin),
			fmt.Sprintf("https://%s:*", allowOrigin),
		)
	}
}
