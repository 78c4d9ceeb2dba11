package reference

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const maxSuffixes = 26 * 99

// Counter reports how many stored references start with prefix.
type Counter interface {
	CountReferences(ctx context.Context, base string) (int, error)
}

// Generator produces human-readable payment references.
type Generator struct {
	counter  Counter
	location *time.Location
}

// NewGenerator creates a generator. Dates are rendered in loc (UTC when nil).
func NewGenerator(counter Counter, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{counter: counter, location: loc}
}

// Base returns TYPE-YYYYMMDD-NNNNNN.
func Base(payableType string, payableID int64, day time.Time) string {
	return fmt.Sprintf("%s-%s-%06d", strings.ToUpper(strings.TrimSpace(payableType)), day.Format("20060102"), payableID)
}

// Suffix returns the disambiguator for the n-th collision (1-based): A01..A99, B01...
func Suffix(n int) string {
	if n < 1 {
		n = 1
	}
	n--
	letter := rune('A' + (n/99)%26)
	return fmt.Sprintf("%c%02d", letter, n%99+1)
}

// Next returns the first reference that is unused according to the counter.
// The caller reserves it by inserting under a unique constraint and calls Next
// again on conflict; skip advances past suffixes already lost to a race.
func (g *Generator) Next(ctx context.Context, payableType string, payableID int64, now time.Time, skip int) (string, error) {
	base := Base(payableType, payableID, now.In(g.location))
	n, err := g.counter.CountReferences(ctx, base)
	if err != nil {
		return "", fmt.Errorf("count references: %w", err)
	}
	n += skip
	if n == 0 {
		return base, nil
	}
	if n > maxSuffixes {
		return "", fmt.Errorf("reference space exhausted for %s", base)
	}
	return base + "-" + Suffix(n), nil
}
