package client

import (
	"context"
	"sort"
	"sync"
	"time"
)

type BenchOptions struct {
	Requests     int
	RatePerSec   int
	Ticks        uint32
	Code         []byte
	PollInterval time.Duration
}

// BenchReport summarizes one bench run. Latencies run from submit to the
// first successful poll.
type BenchReport struct {
	Accepted  int
	Rejected  int
	Completed int
	Failed    int
	Latencies []time.Duration
	Errors    []error
}

func (r *BenchReport) Percentile(p float64) time.Duration {
	if len(r.Latencies) == 0 {
		return 0
	}
	idx := int(float64(len(r.Latencies)-1) * p)
	return r.Latencies[idx]
}

// Bench submits opts.Requests programs at a fixed rate and waits for every
// accepted job to finish.
func (c *Client) Bench(ctx context.Context, opts BenchOptions) *BenchReport {
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 200 * time.Millisecond
	}

	ticker := time.NewTicker(time.Second / time.Duration(opts.RatePerSec))
	defer ticker.Stop()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report = &BenchReport{}
	)

loop:
	for i := 0; i < opts.Requests; i++ {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()

			id, err := c.Submit(ctx, opts.Ticks, opts.Code)
			if err != nil {
				mu.Lock()
				report.Rejected++
				report.Errors = append(report.Errors, err)
				mu.Unlock()
				return
			}
			mu.Lock()
			report.Accepted++
			mu.Unlock()

			_, err = c.Wait(ctx, id, opts.PollInterval)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, err)
				return
			}
			report.Completed++
			report.Latencies = append(report.Latencies, time.Since(start))
		}()
	}

	wg.Wait()
	sort.Slice(report.Latencies, func(i, j int) bool { return report.Latencies[i] < report.Latencies[j] })
	return report
}
