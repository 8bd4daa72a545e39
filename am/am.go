package am

import "github.com/werelate/dqa/interval"

// Config represents the dqa configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database" toml:"database" yaml:"database"`
	Analysis   AnalysisConfig   `mapstructure:"analysis" toml:"analysis" yaml:"analysis"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds" toml:"thresholds" yaml:"thresholds"`
	Metrics    MetricsConfig    `mapstructure:"metrics" toml:"metrics" yaml:"metrics"`
}

// Supported database drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects and locates the analysis store
type DatabaseConfig struct {
	Driver                string `mapstructure:"driver" toml:"driver" yaml:"driver"` // sqlite3 or postgres
	Path                  string `mapstructure:"path" toml:"path" yaml:"path"`       // sqlite file
	DSN                   string `mapstructure:"dsn" toml:"dsn" yaml:"dsn"`          // postgres connection string
	FamilyCacheTTLSeconds int    `mapstructure:"family_cache_ttl_seconds" toml:"family_cache_ttl_seconds" yaml:"family_cache_ttl_seconds"`
}

// AnalysisConfig configures rounds and batching
type AnalysisConfig struct {
	EndRound        int `mapstructure:"end_round" toml:"end_round" yaml:"end_round"`                         // last propagation round (default: 4)
	PageSize        int `mapstructure:"page_size" toml:"page_size" yaml:"page_size"`                         // persons per page (default: 500)
	PersonFlushRows int `mapstructure:"person_flush_rows" toml:"person_flush_rows" yaml:"person_flush_rows"` // seed rows per insert (default: 500)
	IssueFlushRows  int `mapstructure:"issue_flush_rows" toml:"issue_flush_rows" yaml:"issue_flush_rows"`    // issues per insert (default: 1000)
	NarrowWidth     int `mapstructure:"narrow_width" toml:"narrow_width" yaml:"narrow_width"`                // rounds 3+ skip intervals this narrow (default: 10)
	KeptJobs        int `mapstructure:"kept_jobs" toml:"kept_jobs" yaml:"kept_jobs"`                         // jobs retained by finalize (default: 2)
}

// ThresholdsConfig holds the genealogical offsets. Field names follow
// interval.Thresholds.
type ThresholdsConfig struct {
	UsualLifespan          int `mapstructure:"usual_lifespan" toml:"usual_lifespan" yaml:"usual_lifespan"`
	AbsLifespan            int `mapstructure:"abs_lifespan" toml:"abs_lifespan" yaml:"abs_lifespan"`
	MinMarriageAge         int `mapstructure:"min_marriage_age" toml:"min_marriage_age" yaml:"min_marriage_age"`
	MaxMarriageAge         int `mapstructure:"max_marriage_age" toml:"max_marriage_age" yaml:"max_marriage_age"`
	MaxSpouseGap           int `mapstructure:"max_spouse_gap" toml:"max_spouse_gap" yaml:"max_spouse_gap"`
	YoungestFather         int `mapstructure:"youngest_father" toml:"youngest_father" yaml:"youngest_father"`
	YoungestMother         int `mapstructure:"youngest_mother" toml:"youngest_mother" yaml:"youngest_mother"`
	AbsYoungestFather      int `mapstructure:"abs_youngest_father" toml:"abs_youngest_father" yaml:"abs_youngest_father"`
	AbsYoungestMother      int `mapstructure:"abs_youngest_mother" toml:"abs_youngest_mother" yaml:"abs_youngest_mother"`
	OldestFather           int `mapstructure:"oldest_father" toml:"oldest_father" yaml:"oldest_father"`
	OldestMother           int `mapstructure:"oldest_mother" toml:"oldest_mother" yaml:"oldest_mother"`
	AbsOldestFather        int `mapstructure:"abs_oldest_father" toml:"abs_oldest_father" yaml:"abs_oldest_father"`
	AbsOldestMother        int `mapstructure:"abs_oldest_mother" toml:"abs_oldest_mother" yaml:"abs_oldest_mother"`
	MaxSiblingGap          int `mapstructure:"max_sibling_gap" toml:"max_sibling_gap" yaml:"max_sibling_gap"`
	MaxAfterParentMarriage int `mapstructure:"max_after_parent_marriage" toml:"max_after_parent_marriage" yaml:"max_after_parent_marriage"`
}

// MetricsConfig configures the prometheus textfile dump
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" toml:"textfile" yaml:"textfile"` // empty = disabled
}

// ToThresholds converts the configured offsets to the domain type
func (t ThresholdsConfig) ToThresholds() interval.Thresholds {
	return interval.Thresholds{
		UsualLifespan:          t.UsualLifespan,
		AbsLifespan:            t.AbsLifespan,
		MinMarriageAge:         t.MinMarriageAge,
		MaxMarriageAge:         t.MaxMarriageAge,
		MaxSpouseGap:           t.MaxSpouseGap,
		YoungestFather:         t.YoungestFather,
		YoungestMother:         t.YoungestMother,
		AbsYoungestFather:      t.AbsYoungestFather,
		AbsYoungestMother:      t.AbsYoungestMother,
		OldestFather:           t.OldestFather,
		OldestMother:           t.OldestMother,
		AbsOldestFather:        t.AbsOldestFather,
		AbsOldestMother:        t.AbsOldestMother,
		MaxSiblingGap:          t.MaxSiblingGap,
		MaxAfterParentMarriage: t.MaxAfterParentMarriage,
	}
}
