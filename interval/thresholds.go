package interval

// Thresholds are the fixed offsets used by tightening rules and issue checks.
// "Usual" bounds drive propagation and Anomaly issues, absolute bounds drive
// Error issues.
type Thresholds struct {
	UsualLifespan int
	AbsLifespan   int

	MinMarriageAge int
	MaxMarriageAge int
	MaxSpouseGap   int

	YoungestFather    int
	YoungestMother    int
	AbsYoungestFather int
	AbsYoungestMother int

	OldestFather    int
	OldestMother    int
	AbsOldestFather int
	AbsOldestMother int

	MaxSiblingGap          int
	MaxAfterParentMarriage int
}

// DefaultThresholds returns the standard genealogical constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		UsualLifespan:          110,
		AbsLifespan:            125,
		MinMarriageAge:         12,
		MaxMarriageAge:         80,
		MaxSpouseGap:           30,
		YoungestFather:         15,
		YoungestMother:         12,
		AbsYoungestFather:      8,
		AbsYoungestMother:      4,
		OldestFather:           70,
		OldestMother:           50,
		AbsOldestFather:        110,
		AbsOldestMother:        80,
		MaxSiblingGap:          30,
		MaxAfterParentMarriage: 35,
	}
}
