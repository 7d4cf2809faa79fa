package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Multipliers of the size suffixes accepted by ParseSize.
var sizeUnits = map[string]int64{
	"":   1,
	"K":  1e3,
	"M":  1e6,
	"G":  1e9,
	"T":  1e12,
	"P":  1e15,
	"Ki": 1 << 10,
	"Mi": 1 << 20,
	"Gi": 1 << 30,
	"Ti": 1 << 40,
	"Pi": 1 << 50,
}

// Parses sizes like "512", "64K", "64 KB" and "1GiB". SI suffixes are
// powers of 1000, IEC suffixes powers of 1024.
func ParseSize(size string) (int64, error) {
	s := strings.TrimSpace(size)
	s = strings.TrimSuffix(s, "B")

	digits := strings.IndexFunc(s, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if digits < 0 {
		digits = len(s)
	}

	value, err := strconv.ParseInt(s[:digits], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: size %q", ErrParse, size)
	}

	unit, ok := sizeUnits[strings.TrimSpace(s[digits:])]
	if !ok {
		return 0, fmt.Errorf("%w: size %q has an unknown unit", ErrParse, size)
	}

	if value > 0 && unit > (1<<63-1)/value {
		return 0, fmt.Errorf("%w: size %q is too large", ErrParse, size)
	}
	return value * unit, nil
}

// Formats a byte count with an IEC suffix, e.g. "1.5MiB".
func HumanByteSize(byteSize int64) string {
	const units = "KMGTPE"

	if byteSize < 1024 {
		return fmt.Sprintf("%dB", byteSize)
	}

	size := float64(byteSize)
	exp := -1
	for size >= 1024 && exp < len(units)-1 {
		size /= 1024
		exp++
	}

	precision := 1
	if exp == 0 {
		precision = 0
	}
	return strconv.FormatFloat(size, 'f', precision, 64) + string(units[exp]) + "iB"
}
