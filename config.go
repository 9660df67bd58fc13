package scanengine

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/exp/slices"
)

// Config carries everything needed to construct an Engine: the ordered
// set of periodic scan rates plus the ambient knobs (logging,
// restart policy, callback fan-out) spec.md leaves to the embedder.
//
// Periods generalizes dbScan.c's initPeriodic, which discovers its
// period list at boot by reading the enumerated choice strings off a
// live record's SCAN field (DBR_ENUM_STRS). This engine takes that same
// list of strings directly, skipping the VxWorks-specific live-record
// indirection (spec.md §6).
type Config struct {
	// Periods is the ordered list of periodic scan rates, as strings in
	// the same "<float> <unit>" form EPICS's menuScan choice strings use
	// (e.g. "10 second", ".2 second", "1 minute"). Index i becomes
	// Periodic(i). Any order is accepted; every period must parse to a
	// positive duration.
	Periods []string

	// NumPriorities is the number of I/O-event callback priorities
	// (spec.md §4.5's CALLBACK_PRIORITY levels). A value <= 0 selects
	// DefaultConfig's value; a value above MaxIOPriorities makes New
	// fail.
	NumPriorities int

	// RestartEnabled mirrors dbScan.c's restart_enabled global: whether
	// the watchdog respawns a dead worker at all (spec.md §4.6).
	RestartEnabled bool

	// RestartWindow/RestartBurst bound the restart rate limiter: at most
	// RestartBurst restarts of the same worker per RestartWindow.
	RestartWindow time.Duration
	RestartBurst  int

	// LogLevel is the DefaultLogger's minimum emitted level, when no
	// explicit Logger is supplied via WithLogger.
	LogLevel Level
}

// DefaultConfig returns the engine's out-of-the-box settings: the
// classic EPICS five periodic rates, four callback priorities, restart
// enabled with a generous throttle, and warn-level logging.
func DefaultConfig() Config {
	return Config{
		Periods:        []string{"10 second", "5 second", "2 second", "1 second", ".5 second"},
		NumPriorities:  4,
		RestartEnabled: true,
		RestartWindow:  time.Minute,
		RestartBurst:   5,
		LogLevel:       LevelWarn,
	}
}

// LoadConfig reads a TOML configuration file into a Config seeded from
// DefaultConfig, following the teacher's own use of BurntSushi/toml for
// its ambient configuration (go-utilpkg's root go.mod requires it).
// Fields absent from the file keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("scanengine: reading config: %w", err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("scanengine: decoding config: %w", err)
	}
	return cfg, nil
}

// parsePeriods converts the configured period strings into durations.
// Order is not checked and equal periods are allowed — dbScan.c
// tolerates equal or out-of-order rates (it only warns). Non-positive
// values are rejected outright, since a zero or negative period cannot
// be scheduled.
func parsePeriods(periods []string) ([]time.Duration, error) {
	out := make([]time.Duration, 0, len(periods))
	for _, p := range periods {
		d, err := parsePeriod(p)
		if err != nil {
			return nil, err
		}
		if d <= 0 {
			return nil, fmt.Errorf("scanengine: non-positive period %q", p)
		}
		out = append(out, d)
	}
	return out, nil
}

// parsePeriod parses one period string in the "<float> <unit>" form
// used by EPICS's menuScan choice strings (e.g. "1 second", ".2
// second", "10 minute"), matching dbScan.c initPeriodic's
// `sscanf(pchoice, "%f", &temp)` tolerance: a leading float, then a unit
// word, case-insensitive, optional "s" suffix on the unit tolerated.
func parsePeriod(s string) (time.Duration, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("scanengine: empty period string")
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("scanengine: invalid period %q: %w", s, err)
	}
	unit := time.Second
	if len(fields) > 1 {
		word := strings.ToLower(fields[1])
		if word != "ms" {
			word = strings.TrimSuffix(word, "s")
		}
		switch word {
		case "ms", "millisecond", "milli":
			unit = time.Millisecond
		case "second", "sec":
			unit = time.Second
		case "minute", "min":
			unit = time.Minute
		case "hour", "hr":
			unit = time.Hour
		default:
			return 0, fmt.Errorf("scanengine: unknown unit in period %q", s)
		}
	}
	return time.Duration(value * float64(unit)), nil
}

// sortedPeriodOrdinals returns 0..len(periods)-1, ordered by ascending
// duration, for callers that want to present periodic lists
// fastest-first regardless of configuration order. Uses
// the teacher's generic sort utility rather than sort.Slice, following
// catrate/rates.go's own preference for golang.org/x/exp/slices.
func sortedPeriodOrdinals(periods []time.Duration) []int {
	ordinals := make([]int, len(periods))
	for i := range ordinals {
		ordinals[i] = i
	}
	slices.SortFunc(ordinals, func(a, b int) int {
		return int(periods[a] - periods[b])
	})
	return ordinals
}
