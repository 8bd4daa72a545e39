package am

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/werelate/dqa/interval"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "dqa.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.family_cache_ttl_seconds", 600)

	// Analysis defaults
	v.SetDefault("analysis.end_round", 4)
	v.SetDefault("analysis.page_size", 500)
	v.SetDefault("analysis.person_flush_rows", 500)
	v.SetDefault("analysis.issue_flush_rows", 1000)
	v.SetDefault("analysis.narrow_width", 10)
	v.SetDefault("analysis.kept_jobs", 2)

	// Threshold defaults
	th := interval.DefaultThresholds()
	v.SetDefault("thresholds.usual_lifespan", th.UsualLifespan)
	v.SetDefault("thresholds.abs_lifespan", th.AbsLifespan)
	v.SetDefault("thresholds.min_marriage_age", th.MinMarriageAge)
	v.SetDefault("thresholds.max_marriage_age", th.MaxMarriageAge)
	v.SetDefault("thresholds.max_spouse_gap", th.MaxSpouseGap)
	v.SetDefault("thresholds.youngest_father", th.YoungestFather)
	v.SetDefault("thresholds.youngest_mother", th.YoungestMother)
	v.SetDefault("thresholds.abs_youngest_father", th.AbsYoungestFather)
	v.SetDefault("thresholds.abs_youngest_mother", th.AbsYoungestMother)
	v.SetDefault("thresholds.oldest_father", th.OldestFather)
	v.SetDefault("thresholds.oldest_mother", th.OldestMother)
	v.SetDefault("thresholds.abs_oldest_father", th.AbsOldestFather)
	v.SetDefault("thresholds.abs_oldest_mother", th.AbsOldestMother)
	v.SetDefault("thresholds.max_sibling_gap", th.MaxSiblingGap)
	v.SetDefault("thresholds.max_after_parent_marriage", th.MaxAfterParentMarriage)

	// Metrics defaults
	v.SetDefault("metrics.textfile", "")
}

// BindSensitiveEnvVars binds the connection settings to explicit env names
func BindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.dsn", "DQA_DATABASE_DSN")
	_ = v.BindEnv("database.path", "DQA_DATABASE_PATH")
	_ = v.BindEnv("database.driver", "DQA_DATABASE_DRIVER")
}

// Default returns a Config populated only from defaults
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// Defaults always unmarshal
		panic(err)
	}
	return cfg
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: {Driver: %s, Path: %s}, Analysis: {EndRound: %d, PageSize: %d}}",
		c.Database.Driver, c.Database.Path, c.Analysis.EndRound, c.Analysis.PageSize)
}
