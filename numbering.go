package invoicegen

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Document numbering defaults.
const (
	DefaultNumberPrefix = "RG-"
	InitialCounter      = 10000

	// allocationAttempts bounds CAS retries when concurrent callers
	// race on the counter.
	allocationAttempts = 3
)

// NumberAllocator produces unique, prefixed, zero-collision document
// numbers. The persisted counter is advanced with a compare-and-swap;
// externally inserted numbers are honored by scanning the highest
// already-issued suffix before every allocation.
type NumberAllocator struct {
	counters CounterStore
	log      *zap.Logger
	now      func() time.Time
}

// NewNumberAllocator creates a NumberAllocator over the given counter store.
func NewNumberAllocator(counters CounterStore, log *zap.Logger) *NumberAllocator {
	if log == nil {
		log = zap.NewNop()
	}
	return &NumberAllocator{counters: counters, log: log, now: time.Now}
}

// Next returns the next document number. Allocation failures fall back
// to a timestamp-based number instead of failing the caller: numbering
// availability is less critical than completing invoice creation.
func (a *NumberAllocator) Next(ctx context.Context) string {
	number, err := a.allocate(ctx)
	if err != nil {
		number = DefaultNumberPrefix + strconv.FormatInt(a.now().UnixMilli(), 10)
		a.log.Warn("document number allocation failed, using timestamp fallback",
			zap.String("number", number),
			zap.Error(err))
	}
	return number
}

// allocate runs the counter algorithm: next = max(persisted counter,
// highest issued suffix + 1), then persists counter = next + 1 via CAS.
func (a *NumberAllocator) allocate(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= allocationAttempts; attempt++ {
		prefix, counter, err := a.counters.EnsureCounter(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: loading counter: %v", ErrNumberAllocation, err)
		}

		issued, err := a.counters.IssuedNumbers(ctx, prefix)
		if err != nil {
			return "", fmt.Errorf("%w: scanning issued numbers: %v", ErrNumberAllocation, err)
		}

		next := counter
		if highest := highestSuffix(issued, prefix); highest+1 > next {
			next = highest + 1
		}

		err = a.counters.AdvanceCounter(ctx, prefix, counter, next+1)
		if errors.Is(err, ErrCounterConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%w: advancing counter: %v", ErrNumberAllocation, err)
		}

		return prefix + strconv.FormatInt(next, 10), nil
	}
	return "", fmt.Errorf("%w: %v", ErrNumberAllocation, lastErr)
}

// highestSuffix returns the numerically highest suffix among the issued
// numbers with the given prefix. Suffixes vary in length, so they must
// be compared as numbers, not strings. Numbers without a parseable
// numeric suffix (e.g. timestamp collisions repaired by hand) are
// skipped.
func highestSuffix(issued []string, prefix string) int64 {
	var highest int64
	for _, number := range issued {
		suffix, ok := strings.CutPrefix(number, prefix)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(suffix, 10, 64)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}
