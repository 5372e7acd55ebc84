package config

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

var byteUnits = []struct {
	suffix string
	power  int
}{
	{"gb", 3},
	{"mb", 2},
	{"kb", 1},
	{"b", 0},
}

// ParseByteSize parses a byte-size string like "10MB", "512KB", a bare
// integer, or "0" (unlimited). mbMode selects the multiplier base: 1024
// when true (binary KB/MB/GB), 1000 when false, per the `memory.mb_mode`
// config flag.
func ParseByteSize(raw string, mbMode bool) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "0" {
		return 0, nil
	}

	lower := strings.ToLower(s)
	for _, unit := range byteUnits {
		if strings.HasSuffix(lower, unit.suffix) {
			numPart := strings.TrimSpace(s[:len(s)-len(unit.suffix)])
			n, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, errors.Wrapf(err, "config: invalid byte size %q", raw)
			}
			base := 1000.0
			if mbMode {
				base = 1024.0
			}
			multiplier := 1.0
			for i := 0; i < unit.power; i++ {
				multiplier *= base
			}
			return int64(n * multiplier), nil
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "config: invalid byte size %q", raw)
	}
	return n, nil
}
