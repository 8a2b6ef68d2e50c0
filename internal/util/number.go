package util

import (
	"math"
	"strconv"
)

// FirstInteger returns the first run of ASCII digits in input, so "42 anos" yields 42.
// Runs too large for an int clamp to math.MaxInt.
func FirstInteger(input string) (int, bool) {
	start := -1
	for i := 0; i < len(input); i++ {
		if input[i] >= '0' && input[i] <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(input) && input[end] >= '0' && input[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(input[start:end])
	if err != nil {
		return math.MaxInt, true
	}
	return n, true
}
