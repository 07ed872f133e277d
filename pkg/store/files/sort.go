package files

import "unicode"

// naturalLess reports whether a sorts before b under case-insensitive
// natural order: runs of digits compare by numeric value, everything else
// compares by lowercased runes. "img2" sorts before "img10".
func naturalLess(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	i, j := 0, 0

	for i < len(ra) && j < len(rb) {
		ca, cb := ra[i], rb[j]

		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			// Compare the whole digit runs numerically. Leading zeros make
			// the runs equal in value but not in length; fall through to the
			// rune comparison in that case.
			startA, startB := i, j
			for i < len(ra) && unicode.IsDigit(ra[i]) {
				i++
			}
			for j < len(rb) && unicode.IsDigit(rb[j]) {
				j++
			}

			numA := trimLeadingZeros(string(ra[startA:i]))
			numB := trimLeadingZeros(string(rb[startB:j]))

			if len(numA) != len(numB) {
				return len(numA) < len(numB)
			}
			if numA != numB {
				return numA < numB
			}
			continue
		}

		la, lb := unicode.ToLower(ca), unicode.ToLower(cb)
		if la != lb {
			return la < lb
		}
		i++
		j++
	}

	if len(ra)-i != len(rb)-j {
		return len(ra)-i < len(rb)-j
	}

	// Case-insensitively equal: fall back to byte order for stability.
	return a < b
}

func trimLeadingZeros(s string) string {
	k := 0
	for k < len(s)-1 && s[k] == '0' {
		k++
	}
	return s[k:]
}
