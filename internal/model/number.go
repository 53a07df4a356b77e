package model

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// Number is a float64 that may hold NaN. Form input is parsed without defaulting,
// so a missing amount travels as NaN; JSON has no NaN, so it is encoded as null
// and null decodes back to NaN.
type Number float64

// NaN returns a Number holding NaN.
func NaN() Number {
	return Number(math.NaN())
}

// ParseNumber parses s as a float. Anything that does not parse yields NaN.
func ParseNumber(s string) Number {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return NaN()
	}
	return Number(f)
}

// IsNaN reports whether n is NaN.
func (n Number) IsNaN() bool {
	return math.IsNaN(float64(n))
}

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*n = NaN()
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*n = Number(f)
	return nil
}
