package ibpi

import "fmt"

// Pattern is a standardized enclosure-LED intent code (locate, failed,
// rebuild, ...). The set is closed; anything else parses to PatternUnknown.
type Pattern string

const (
	PatternUnknown       Pattern = "unknown"
	PatternNormal        Pattern = "normal"
	PatternOneshotNormal Pattern = "oneshot_normal"
	PatternPFA           Pattern = "pfa"
	PatternLocate        Pattern = "locate"
	PatternLocateOff     Pattern = "locate_off"
	PatternFailedDrive   Pattern = "failed_drive"
	PatternFailedArray   Pattern = "failed_array"
	PatternRebuild       Pattern = "rebuild"
	PatternHotspare      Pattern = "hotspare"
)

// All lists every known pattern in a stable order.
func All() []Pattern {
	return []Pattern{
		PatternNormal,
		PatternOneshotNormal,
		PatternPFA,
		PatternLocate,
		PatternLocateOff,
		PatternFailedDrive,
		PatternFailedArray,
		PatternRebuild,
		PatternHotspare,
	}
}

// aliases maps the short names accepted on the command line to patterns.
var aliases = map[string]Pattern{
	"off":    PatternNormal,
	"fault":  PatternFailedDrive,
	"failed": PatternFailedDrive,
	"ident":  PatternLocate,
}

// Parse converts a user-supplied string into a Pattern.
func Parse(s string) (Pattern, error) {
	p := Pattern(s)
	for _, known := range All() {
		if p == known {
			return p, nil
		}
	}
	if p, ok := aliases[s]; ok {
		return p, nil
	}
	return PatternUnknown, fmt.Errorf("unknown LED pattern %q", s)
}

// Valid reports whether p is one of the closed pattern set.
func (p Pattern) Valid() bool {
	for _, known := range All() {
		if p == known {
			return true
		}
	}
	return false
}

func (p Pattern) String() string {
	return string(p)
}
