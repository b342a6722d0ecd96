// ABOUTME: Identifier allocation for households, guardians and students
// ABOUTME: New ids are max numeric suffix plus one, zero-padded to five digits

package household

import (
	"fmt"
	"strconv"
	"strings"
)

// Identifier prefixes.
const (
	HouseholdPrefix = "HH"
	GuardianPrefix  = "G"
	StudentPrefix   = "S"
)

// maxSuffix returns the highest numeric suffix among ids carrying prefix.
// Ids with a different prefix or a non-numeric suffix are ignored.
func maxSuffix(prefix string, existing []string) int {
	highest := 0
	for _, id := range existing {
		rest, ok := strings.CutPrefix(id, prefix)
		if !ok || rest == "" {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}

func formatID(prefix string, n int) string {
	return fmt.Sprintf("%s%05d", prefix, n)
}

// NextID returns the identifier following the highest existing one.
func NextID(prefix string, existing []string) string {
	return formatID(prefix, maxSuffix(prefix, existing)+1)
}

// NextIDs reserves k consecutive identifiers after the highest existing one.
func NextIDs(prefix string, existing []string, k int) []string {
	if k <= 0 {
		return nil
	}
	start := maxSuffix(prefix, existing) + 1
	ids := make([]string, k)
	for i := range ids {
		ids[i] = formatID(prefix, start+i)
	}
	return ids
}
