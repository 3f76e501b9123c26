package utils

import (
	"math/rand"
	"strings"
	"time"
)

var letters = []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")

func GenerateRandomStringWithLength(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

// GenerateEnrollmentCode builds a human readable enrollment code such as
// ENR-20261016-7KQ2MX.
func GenerateEnrollmentCode(now time.Time) string {
	return "ENR-" + now.Format("20060102") + "-" + GenerateRandomStringWithLength(6)
}

// NormalizeIDs trims every id, drops empty entries and duplicates while
// keeping first-seen order.
func NormalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
