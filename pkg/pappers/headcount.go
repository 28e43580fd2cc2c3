package pappers

import (
	"regexp"
	"strconv"
)

var firstNumberRe = regexp.MustCompile(`\d+`)

// ParseHeadcount extracts a representative integer from a headcount range
// string such as "51-200" or "100 à 199 salariés": the first number found.
// Returns 0 when no number is present.
func ParseHeadcount(s string) int {
	m := firstNumberRe.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
