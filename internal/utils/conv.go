package utils

import (
	"strconv"
)

// StringToIntDefault converts string to int, returns def for empty or malformed input
func StringToIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
