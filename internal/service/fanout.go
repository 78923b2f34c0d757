package service

import (
	"context"
	"sync"

	"taxflow/internal/domain"
)

// forEachParty runs fn for every party on a bounded worker pool, applying
// the per-party timeout. It returns the parties whose fn call failed or
// timed out, in configuration order. One slow or unreachable account must
// not abort the whole scan, so errors degrade instead of propagating.
func forEachParty(
	ctx context.Context,
	parties []domain.Party,
	workers int,
	timeout timeoutFn,
	fn func(ctx context.Context, idx int, party domain.Party) error,
) []domain.Party {
	if len(parties) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 4
	}
	if workers > len(parties) {
		workers = len(parties)
	}

	failed := make([]bool, len(parties))
	indexCh := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			partyCtx, cancel := timeout(ctx)
			err := fn(partyCtx, idx, parties[idx])
			cancel()
			if err != nil {
				failed[idx] = true
			}
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < len(parties); i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			for j := i; j < len(parties); j++ {
				failed[j] = true
			}
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()

	var degraded []domain.Party
	for idx, bad := range failed {
		if bad {
			degraded = append(degraded, parties[idx])
		}
	}
	return degraded
}

// timeoutFn derives a per-call context. Split out so tests can skip real
// deadlines.
type timeoutFn func(ctx context.Context) (context.Context, context.CancelFunc)
