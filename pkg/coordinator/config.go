package coordinator

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/zk-ceremony/coordinator/config"
)

// Config is the coordinator's bootstrap configuration, loaded from a
// YAML file via viper the way poaiw-blockchain-paw loads its node
// config. cmd/ceremony-server takes the YAML file's path through its
// cobra --config flag; no individual setting is overridden from the
// command line.
type Config struct {
	CeremonyDir           string
	RegistryCSVPath       string
	LevelCount            uint8
	ContributionTimeLimit time.Duration
	CircuitNames          [config.CircuitCount]string
}

// DefaultConfig returns the canonical three-circuit, three-level
// configuration (SPEC_FULL.md §1).
func DefaultConfig() Config {
	return Config{
		CeremonyDir:           "ceremony",
		RegistryCSVPath:       "ceremony/registry.csv",
		LevelCount:            config.LevelCount,
		ContributionTimeLimit: config.DefaultContributionTimeLimit,
		CircuitNames:          config.CircuitNames,
	}
}

// LoadConfig reads a YAML config file at path, falling back to
// DefaultConfig for any key it doesn't set.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("ceremony_dir", cfg.CeremonyDir)
	v.SetDefault("registry_csv_path", cfg.RegistryCSVPath)
	v.SetDefault("level_count", cfg.LevelCount)
	v.SetDefault("contribution_time_limit", cfg.ContributionTimeLimit.String())

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("coordinator: read config %s: %w", path, err)
	}

	cfg.CeremonyDir = v.GetString("ceremony_dir")
	cfg.RegistryCSVPath = v.GetString("registry_csv_path")
	cfg.LevelCount = uint8(v.GetInt("level_count"))
	limit, err := time.ParseDuration(v.GetString("contribution_time_limit"))
	if err != nil {
		return Config{}, fmt.Errorf("coordinator: parse contribution_time_limit: %w", err)
	}
	cfg.ContributionTimeLimit = limit

	if names := v.GetStringSlice("circuit_names"); len(names) == config.CircuitCount {
		copy(cfg.CircuitNames[:], names)
	}
	return cfg, nil
}
