package pipeline

import "bytes"

const sniffLimit = 2048

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// DetectDelimiter guesses the field separator from the first sniffLimit bytes.
// The winner is the candidate that shows up the same number of times on the
// most lines; comma when nothing qualifies.
func DetectDelimiter(sample []byte) rune {
	truncated := len(sample) > sniffLimit
	if truncated {
		sample = sample[:sniffLimit]
	}
	lines := bytes.Split(bytes.ReplaceAll(sample, []byte("\r\n"), []byte("\n")), []byte("\n"))
	if truncated && len(lines) > 1 {
		lines = lines[:len(lines)-1]
	}

	best := ','
	bestLines, bestCount := 0, 0
	for _, cand := range delimiterCandidates {
		freq := map[int]int{}
		for _, line := range lines {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			if n := countOutsideQuotes(line, byte(cand)); n > 0 {
				freq[n]++
			}
		}

		modeCount, modeLines := 0, 0
		for count, nLines := range freq {
			if nLines > modeLines || (nLines == modeLines && count > modeCount) {
				modeCount, modeLines = count, nLines
			}
		}
		if modeLines == 0 {
			continue
		}
		if modeLines > bestLines || (modeLines == bestLines && modeCount > bestCount) {
			best, bestLines, bestCount = cand, modeLines, modeCount
		}
	}
	return best
}

func countOutsideQuotes(line []byte, sep byte) int {
	inQuotes := false
	n := 0
	for _, b := range line {
		switch {
		case b == '"':
			inQuotes = !inQuotes
		case b == sep && !inQuotes:
			n++
		}
	}
	return n
}
