package am

import "github.com/werelate/dqa/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path cannot be empty for the sqlite3 driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn cannot be empty for the postgres driver")
		}
	default:
		return errors.Newf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}
	if c.Database.FamilyCacheTTLSeconds < 0 {
		return errors.Newf("database.family_cache_ttl_seconds must be >= 0, got %d", c.Database.FamilyCacheTTLSeconds)
	}

	// Round 2 is the issue round, so a job ends no earlier than it
	if c.Analysis.EndRound < 2 {
		return errors.Newf("analysis.end_round must be >= 2, got %d", c.Analysis.EndRound)
	}
	if c.Analysis.PageSize <= 0 {
		return errors.Newf("analysis.page_size must be > 0, got %d", c.Analysis.PageSize)
	}
	if c.Analysis.PersonFlushRows <= 0 {
		return errors.Newf("analysis.person_flush_rows must be > 0, got %d", c.Analysis.PersonFlushRows)
	}
	if c.Analysis.IssueFlushRows <= 0 {
		return errors.Newf("analysis.issue_flush_rows must be > 0, got %d", c.Analysis.IssueFlushRows)
	}
	if c.Analysis.NarrowWidth < 0 {
		return errors.Newf("analysis.narrow_width must be >= 0, got %d", c.Analysis.NarrowWidth)
	}
	if c.Analysis.KeptJobs < 1 {
		return errors.Newf("analysis.kept_jobs must be >= 1, got %d", c.Analysis.KeptJobs)
	}

	return c.Thresholds.validate()
}

func (t ThresholdsConfig) validate() error {
	positive := map[string]int{
		"usual_lifespan":            t.UsualLifespan,
		"abs_lifespan":              t.AbsLifespan,
		"min_marriage_age":          t.MinMarriageAge,
		"max_marriage_age":          t.MaxMarriageAge,
		"max_spouse_gap":            t.MaxSpouseGap,
		"youngest_father":           t.YoungestFather,
		"youngest_mother":           t.YoungestMother,
		"oldest_father":             t.OldestFather,
		"oldest_mother":             t.OldestMother,
		"abs_oldest_father":         t.AbsOldestFather,
		"abs_oldest_mother":         t.AbsOldestMother,
		"max_sibling_gap":           t.MaxSiblingGap,
		"max_after_parent_marriage": t.MaxAfterParentMarriage,
	}
	for key, value := range positive {
		if value <= 0 {
			return errors.Newf("thresholds.%s must be > 0, got %d", key, value)
		}
	}
	if t.AbsYoungestFather < 0 || t.AbsYoungestMother < 0 {
		return errors.New("thresholds.abs_youngest_father and abs_youngest_mother must be >= 0")
	}

	// Absolute bounds must be looser than the usual ones
	if t.AbsLifespan < t.UsualLifespan {
		return errors.Newf("thresholds.abs_lifespan (%d) must be >= usual_lifespan (%d)", t.AbsLifespan, t.UsualLifespan)
	}
	if t.MinMarriageAge > t.MaxMarriageAge {
		return errors.Newf("thresholds.min_marriage_age (%d) must be <= max_marriage_age (%d)", t.MinMarriageAge, t.MaxMarriageAge)
	}
	if t.AbsYoungestFather > t.YoungestFather || t.AbsYoungestMother > t.YoungestMother {
		return errors.New("thresholds: absolute youngest parent ages must not exceed the usual ones")
	}
	if t.AbsOldestFather < t.OldestFather || t.AbsOldestMother < t.OldestMother {
		return errors.New("thresholds: absolute oldest parent ages must not be below the usual ones")
	}
	return nil
}
