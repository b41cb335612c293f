// Package channelset parses, generates and shards the channel-set lists
// that drive a batch run. A list has one set per line:
//
//	<id>,<channel>,<channel>,...
//
// Channels are 1-based in text form and 0-based once parsed.
package channelset

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/combin"

	apperrors "phicli/internal/errors"
)

// Set is one numbered group of channels
type Set struct {
	ID       int   `json:"id"`
	Channels []int `json:"channels"`
}

// Label renders the channels 1-based, the way they were written
func (s Set) Label() string {
	parts := make([]string, len(s.Channels))
	for i, ch := range s.Channels {
		parts[i] = strconv.Itoa(ch + 1)
	}
	return strings.Join(parts, ",")
}

// Parse reads a channel-set list. Carriage returns and '#' markers left by
// job schedulers are stripped from both ends of a line and blank lines are
// skipped.
func Parse(text string) ([]Set, error) {
	var sets []Set
	for lineNo, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "\r#"))
		if line == "" {
			continue
		}

		set, err := parseLine(line)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("channel set on line %d", lineNo+1), err).
				WithContext("line", line)
		}
		sets = append(sets, set)
	}
	if len(sets) == 0 {
		return nil, apperrors.NewValidationError("no channel sets given", nil)
	}
	return sets, nil
}

func parseLine(line string) (Set, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 2 {
		return Set{}, fmt.Errorf("need an id and at least one channel, got %q", line)
	}

	values := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return Set{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		values[i] = v
	}

	set := Set{ID: values[0], Channels: make([]int, 0, len(values)-1)}
	if set.ID < 0 {
		return Set{}, fmt.Errorf("negative id %d", set.ID)
	}

	seen := make(map[int]bool, len(values)-1)
	for _, ch := range values[1:] {
		if ch < 1 {
			return Set{}, fmt.Errorf("channel %d is not 1-based", ch)
		}
		if seen[ch] {
			return Set{}, fmt.Errorf("channel %d listed twice", ch)
		}
		seen[ch] = true
		set.Channels = append(set.Channels, ch-1)
	}
	return set, nil
}

// Validate checks every channel of every set against the channel count of
// the loaded recording
func Validate(sets []Set, nChannels int) error {
	for _, s := range sets {
		for _, ch := range s.Channels {
			if ch >= nChannels {
				return apperrors.NewValidationError(
					fmt.Sprintf("channel set %d references channel %d but the data has %d channels", s.ID, ch+1, nChannels), nil)
			}
		}
	}
	return nil
}

// Generate enumerates every size-combination of nChannels channels in
// lexicographic order, numbering the sets from startID.
func Generate(nChannels, size, startID int) ([]Set, error) {
	if size < 1 || size > nChannels {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("set size %d must be within [1, %d]", size, nChannels), nil)
	}

	combos := combin.Combinations(nChannels, size)
	sets := make([]Set, len(combos))
	for i, c := range combos {
		sets[i] = Set{ID: startID + i, Channels: c}
	}
	return sets, nil
}

// Shard splits sets into at most n contiguous chunks of near-equal size so
// independent processes can each take one.
func Shard(sets []Set, n int) [][]Set {
	if n < 1 {
		n = 1
	}
	if n > len(sets) {
		n = len(sets)
	}

	shards := make([][]Set, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		size := len(sets) / n
		if i < len(sets)%n {
			size++
		}
		shards = append(shards, sets[start:start+size])
		start += size
	}
	return shards
}

// Format renders sets back to the text form accepted by Parse
func Format(sets []Set) string {
	var b strings.Builder
	for _, s := range sets {
		b.WriteString(strconv.Itoa(s.ID))
		b.WriteByte(',')
		b.WriteString(s.Label())
		b.WriteByte('\n')
	}
	return b.String()
}
