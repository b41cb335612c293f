package results

import (
	"strconv"
	"strings"
)

// formatFloat renders a value with six decimals, enough for phi in bits
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatChannels renders 0-based channels 1-based, space separated so the
// field needs no quoting
func formatChannels(channels []int) string {
	parts := make([]string, len(channels))
	for i, ch := range channels {
		parts[i] = strconv.Itoa(ch + 1)
	}
	return strings.Join(parts, " ")
}
