// Package config loads the process configuration: a YAML file whose
// values the standard flag package can then override, following the
// layered style the teacher uses (YAML defaults, flags win).
package config

import (
	"flag"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for newsqueryd and newsquery-derive.
type Config struct {
	DataDir     string `yaml:"data_dir"`
	LogLevel    string `yaml:"log_level"`
	HTTPAddr    string `yaml:"http_addr"`

	CaptionIndexAddr string `yaml:"caption_index_addr"`

	PeopleMinScreenTimeSeconds float64 `yaml:"people_min_screen_time_seconds"`
	MaxTranscriptSearchCost    float64 `yaml:"max_transcript_search_cost"`
	MaxVideoSearchIDs          int     `yaml:"max_video_search_ids"`
	RuntimeFuzzMS              int64   `yaml:"runtime_fuzz_ms"`

	// Derivation-only settings; ignored by newsqueryd.
	TagLimit             int   `yaml:"tag_limit"`
	PersonThresholdBytes int64 `yaml:"person_threshold_bytes"`
	DeriveWorkers        int   `yaml:"derive_workers"`
}

// Default returns the configuration every field falls back to before a
// YAML file or flags are applied.
func Default() Config {
	return Config{
		DataDir:                    "data",
		LogLevel:                   "info",
		HTTPAddr:                   ":8080",
		PeopleMinScreenTimeSeconds: 60,
		MaxTranscriptSearchCost:    0.005,
		MaxVideoSearchIDs:          25,
		RuntimeFuzzMS:              100,
		TagLimit:                   250,
		PersonThresholdBytes:       1 << 20,
		DeriveWorkers:              8,
	}
}

// LoadYAML reads path and overlays its fields onto cfg. A missing path
// is not an error — the caller's defaults stand as-is.
func LoadYAML(path string, cfg *Config) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "config: reading yaml")
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return errors.Wrap(err, "config: parsing yaml")
	}
	return nil
}

// RegisterFlags registers one flag per overridable field on f, using
// cfg's current values (post-YAML-load) as each flag's default —
// mirroring the teacher's "YAML sets defaults, flags win" layering.
func RegisterFlags(f *flag.FlagSet, cfg *Config) {
	f.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding videos.json and the derived indices")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn, or error")
	f.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "address the HTTP server listens on")
	f.StringVar(&cfg.CaptionIndexAddr, "caption-index-addr", cfg.CaptionIndexAddr, "base URL of the caption full-text index service")
	f.Float64Var(&cfg.PeopleMinScreenTimeSeconds, "people-min-screen-time-seconds", cfg.PeopleMinScreenTimeSeconds, "minimum total screen time for a person to be queryable by face_name")
	f.Float64Var(&cfg.MaxTranscriptSearchCost, "max-transcript-search-cost", cfg.MaxTranscriptSearchCost, "parsed but not applied; transcript searches are gated by the fixed transcript.MaxTranscriptSearchCost (0.005)")
	f.IntVar(&cfg.MaxVideoSearchIDs, "max-video-search-ids", cfg.MaxVideoSearchIDs, "cap on explicit video ids accepted by /search-videos")
	f.Int64Var(&cfg.RuntimeFuzzMS, "runtime-fuzz-ms", cfg.RuntimeFuzzMS, "parsed but not applied; query-time merges use the fixed interval.DefaultRuntimeFuzzMS (100)")
	f.IntVar(&cfg.TagLimit, "tag-limit", cfg.TagLimit, "derive: minimum person count for a tag ilist to be precomputed")
	f.Int64Var(&cfg.PersonThresholdBytes, "person-threshold-bytes", cfg.PersonThresholdBytes, "derive: minimum ilist file size for a person iset to be precomputed")
	f.IntVar(&cfg.DeriveWorkers, "derive-workers", cfg.DeriveWorkers, "derive: worker pool size")
}
