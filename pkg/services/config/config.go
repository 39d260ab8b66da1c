package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Target is a named deployment URL to probe.
type Target struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// ArtifactConfig controls the local build directory checks.
type ArtifactConfig struct {
	RequiredFiles  []string `mapstructure:"required_files"`
	AssetsDir      string   `mapstructure:"assets_dir"`
	TotalSizeBytes int64    `mapstructure:"total_size_bytes"`
	ChunkSizeBytes int64    `mapstructure:"chunk_size_bytes"`
}

// ProbeConfig controls the network checks.
type ProbeConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`
	Backoff     time.Duration `mapstructure:"backoff"`
	Concurrency int           `mapstructure:"concurrency"`
	SPAPaths    []string      `mapstructure:"spa_paths"`
}

// Config is the full validation profile.
type Config struct {
	BuildDir        string         `mapstructure:"build_dir"`
	Targets         []Target       `mapstructure:"targets"`
	Artifact        ArtifactConfig `mapstructure:"artifact"`
	Probe           ProbeConfig    `mapstructure:"probe"`
	PipelineTimeout time.Duration  `mapstructure:"pipeline_timeout"`
	Strict          bool           `mapstructure:"strict"`
}

// Default returns the built-in profile. Thresholds are advisory
// defaults, not hard law; a profile file overrides any of them.
func Default() *Config {
	return &Config{
		Artifact: ArtifactConfig{
			RequiredFiles:  []string{"index.html", "manifest.json", "assets/*.js"},
			AssetsDir:      "assets",
			TotalSizeBytes: 2 << 20,
			ChunkSizeBytes: 500 << 10,
		},
		Probe: ProbeConfig{
			Timeout:     30 * time.Second,
			Retries:     3,
			Backoff:     5 * time.Second,
			Concurrency: 16,
			SPAPaths:    []string{"/settings", "/definitely-not-a-route"},
		},
		PipelineTimeout: 120 * time.Second,
	}
}

// Load reads a validation profile, layering it over the defaults.
func Load(profilePath string) (*Config, error) {
	cfg := Default()
	if profilePath == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(profilePath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse validation profile: %w", err)
	}
	return cfg, nil
}

// TargetsFromEnv collects targets from DEPLOY_URL-style variables.
// DEPLOY_URL yields the target "deploy"; DEPLOY_URL_<NAME> yields a
// target named after the suffix, lowercased.
func TargetsFromEnv(environ []string) []Target {
	var targets []Target
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}
		switch {
		case key == "DEPLOY_URL":
			targets = append(targets, Target{Name: "deploy", URL: value})
		case strings.HasPrefix(key, "DEPLOY_URL_"):
			name := strings.ToLower(strings.TrimPrefix(key, "DEPLOY_URL_"))
			if name != "" {
				targets = append(targets, Target{Name: name, URL: value})
			}
		}
	}
	return targets
}

// ParseTargetFlag parses a NAME=URL flag value.
func ParseTargetFlag(s string) (Target, error) {
	name, url, ok := strings.Cut(s, "=")
	if !ok || name == "" || url == "" {
		return Target{}, fmt.Errorf("invalid target %q, expected NAME=URL", s)
	}
	return Target{Name: name, URL: url}, nil
}

// MergeTargets combines profile, environment and flag targets, with
// later sources overriding earlier ones by name.
func MergeTargets(groups ...[]Target) []Target {
	index := map[string]int{}
	var merged []Target
	for _, group := range groups {
		for _, t := range group {
			if i, ok := index[t.Name]; ok {
				merged[i] = t
				continue
			}
			index[t.Name] = len(merged)
			merged = append(merged, t)
		}
	}
	return merged
}

// EnvTargets is a convenience wrapper over the process environment.
func EnvTargets() []Target {
	return TargetsFromEnv(os.Environ())
}
