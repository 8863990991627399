package splitter

import (
	"strconv"
	"strings"

	"gddrmc/errcode"
)

// ParseBitList parses the space-separated bit-position list format
// configuration files use for the bitmask splitter's channel_bitmask and
// bank_bitmask fields (spec.md §6, e.g. "9 10 11").
func ParseBitList(s string) ([]uint32, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, errcode.New(errcode.InvalidConfig, "splitter.ParseBitList", "empty bit list")
	}
	out := make([]uint32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, errcode.Wrap(errcode.InvalidConfig, "splitter.ParseBitList", err)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

// FormatBitList is ParseBitList's inverse, used by config round-tripping
// and trace dumps.
func FormatBitList(bitsList []uint32) string {
	parts := make([]string, len(bitsList))
	for i, b := range bitsList {
		parts[i] = strconv.FormatUint(uint64(b), 10)
	}
	return strings.Join(parts, " ")
}
