package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/monbixi/stats-backend-go/internal/bixi"
	"github.com/monbixi/stats-backend-go/internal/repository"
)

// RetryPolicy controls how page fetches are retried.
type RetryPolicy struct {
	BaseDelay      time.Duration // initial backoff, also the pacing between pages
	MaxDelay       time.Duration // backoff cap, 0 = uncapped
	MaxAttempts    int           // consecutive failures before giving up, 0 = retry forever
	ResetOnSuccess bool          // return to BaseDelay after a successful fetch
}

// DefaultRetryPolicy returns the retry policy used in production.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       time.Minute,
		MaxAttempts:    0,
		ResetOnSuccess: true,
	}
}

// IngestService fills the local store with enough ride history to cover a
// requested calendar year.
type IngestService struct {
	rides  *repository.RideRepository
	source bixi.RideSource
	retry  RetryPolicy
}

// NewIngestService creates a new ingest service
func NewIngestService(rides *repository.RideRepository, source bixi.RideSource, retry RetryPolicy) *IngestService {
	if retry.BaseDelay <= 0 {
		retry.BaseDelay = 500 * time.Millisecond
	}
	return &IngestService{
		rides:  rides,
		source: source,
		retry:  retry,
	}
}

type batchInfo struct {
	hasMore  bool
	newestMs int64
	oldestMs int64
}

// FetchYear pages through the remote ride history until the store covers the
// given year, invoking onProgress (which may be nil) with a fraction in
// [0, 1] after each stored batch. Two phases run in sequence: a forward fill
// for rides newer than anything stored, then a backward fill until the
// oldest stored ride reaches the start of the year. Stored rides replayed by
// either phase are skipped by the store, so a rerun or a retried page never
// duplicates data.
func (s *IngestService) FetchYear(ctx context.Context, year int, onProgress func(float64)) error {
	startMs, endMs := YearBounds(year)

	newest, err := s.rides.NewestFrom(startMs)
	if err != nil {
		return fmt.Errorf("ingest year %d: %w", year, err)
	}
	oldest, err := s.rides.OldestBefore(endMs)
	if err != nil {
		return fmt.Errorf("ingest year %d: %w", year, err)
	}
	count, err := s.rides.CountInRange(startMs, endMs)
	if err != nil {
		return fmt.Errorf("ingest year %d: %w", year, err)
	}

	var lastKnownMs, oldestKnownMs int64
	if newest != nil {
		lastKnownMs = newest.StartTimeMs
	}
	if oldest != nil {
		oldestKnownMs = oldest.StartTimeMs
	}

	// Forward fill: everything newer than the newest stored ride.
	err = s.fetchBatches(ctx, 0, startMs, endMs, onProgress, func(b batchInfo) bool {
		return b.newestMs > lastKnownMs && b.hasMore && b.newestMs >= startMs
	})
	if err != nil {
		return err
	}

	// The oldest stored ride already predates the year; history is contiguous.
	if oldestKnownMs <= startMs {
		return nil
	}

	// Backward fill: resume where the last known contiguous page ended.
	return s.fetchBatches(ctx, count-count%bixi.PageSize, startMs, endMs, onProgress, func(b batchInfo) bool {
		return b.oldestMs > startMs && b.hasMore
	})
}

// fetchBatches pages from startOffset, storing rides that fall before endMs,
// until continueIf says the phase is done. Failed fetches are retried at the
// same offset with exponential backoff.
func (s *IngestService) fetchBatches(
	ctx context.Context,
	startOffset int,
	startMs, endMs int64,
	onProgress func(float64),
	continueIf func(batchInfo) bool,
) error {
	offset := startOffset
	delay := s.retry.BaseDelay
	attempts := 0
	var firstFetchedMs int64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := s.source.FetchPage(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			attempts++
			if s.retry.MaxAttempts > 0 && attempts >= s.retry.MaxAttempts {
				return fmt.Errorf("fetch at offset %d failed after %d attempts: %w", offset, attempts, err)
			}
			delay *= 2
			if s.retry.MaxDelay > 0 && delay > s.retry.MaxDelay {
				delay = s.retry.MaxDelay
			}
			log.Printf("Error fetching rides at offset %d, retrying in %v: %v", offset, delay, err)
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}

		attempts = 0
		if s.retry.ResetOnSuccess {
			delay = s.retry.BaseDelay
		}

		if len(batch.Rides) == 0 {
			log.Printf("Warning: empty ride batch at offset %d, stopping", offset)
			return nil
		}

		for _, ride := range batch.Rides {
			if firstFetchedMs == 0 {
				firstFetchedMs = ride.StartTimeMs
			}
			if ride.StartTimeMs < endMs {
				if _, err := s.rides.Add(ride); err != nil {
					return fmt.Errorf("store ride at offset %d: %w", offset, err)
				}
			}
		}

		info := batchInfo{
			hasMore:  batch.HasMore,
			newestMs: batch.Rides[0].StartTimeMs,
			oldestMs: batch.Rides[len(batch.Rides)-1].StartTimeMs,
		}

		if onProgress != nil {
			onProgress(progressEstimate(firstFetchedMs, info.oldestMs, startMs))
		}

		if !continueIf(info) {
			return nil
		}

		offset += bixi.PageSize
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// progressEstimate estimates how much of the year's history has been fetched
// from the span between the oldest ride seen so far and the year boundary,
// relative to the first ride of the run.
func progressEstimate(firstMs, oldestMs, startMs int64) float64 {
	if firstMs == 0 || firstMs <= startMs {
		return 0
	}
	p := 1 - math.Max(0, float64(oldestMs-startMs))/float64(firstMs-startMs)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
