package pipeline

import (
	"painel/internal"
	"painel/internal/util"
)

// BinAge takes the first integer in raw and returns the bin holding it.
func BinAge(raw string) (internal.AgeBin, bool) {
	age, ok := util.FirstInteger(raw)
	if !ok {
		return internal.AgeBin{}, false
	}
	for _, bin := range internal.AgeBins {
		if bin.Contains(age) {
			return bin, true
		}
	}
	return internal.AgeBin{}, false
}
