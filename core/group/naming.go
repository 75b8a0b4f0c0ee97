package group

import (
	"fmt"
	"regexp"
	"strconv"
)

// NamePrefix is the prefix of generated group names: "Group 1", "Group 2"...
const NamePrefix = "Group"

var nameNumberRegex = regexp.MustCompile(NamePrefix + `\s*(\d+)`)

// NextName returns the name of the next group of a course given the names of its existing groups:
// the lowest positive number not used by any "Group N" name.
func NextName(existing []string) string {
	used := make(map[int]bool, len(existing))
	for _, name := range existing {
		m := nameNumberRegex.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			used[n] = true
		}
	}

	next := 1
	for used[next] {
		next++
	}
	return fmt.Sprintf("%s %d", NamePrefix, next)
}
