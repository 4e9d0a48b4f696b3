package util

import "strconv"

// ParseFloat parses a provider numeric field. FRED reports missing values
// as ".", which yields ok=false.
func ParseFloat(s string) (float64, bool) {
	if s == "" || s == "." {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
