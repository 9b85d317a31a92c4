// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package crawlstrategy

import (
	"os"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/northbound/crawlpipe/internal/logger"
)

// memoryDispatcher throttles recursive-crawl concurrency when this process's
// resident memory, as a percentage of total memory, crosses a threshold,
// halving the permit count rather than
// stopping outright — a crawl that slows down is better than one that gets
// OOM-killed.
type memoryDispatcher struct {
	thresholdPercent float64
	maxPermits       int
}

func newMemoryDispatcher(thresholdPercent float64, maxPermits int) *memoryDispatcher {
	if thresholdPercent > 99 {
		thresholdPercent = 99
	}
	if thresholdPercent < 10 {
		thresholdPercent = 10
	}
	if maxPermits < 1 {
		maxPermits = 1
	}
	return &memoryDispatcher{thresholdPercent: thresholdPercent, maxPermits: maxPermits}
}

// permits returns how many concurrent fetches are currently allowed. Any
// failure to read memory stats fails open at maxPermits rather than
// stalling the crawl.
func (d *memoryDispatcher) permits() int {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Debugf("crawlstrategy: memory stat read failed, using full concurrency: %v", err)
		return d.maxPermits
	}
	usedPercent, err := proc.MemoryPercent()
	if err != nil {
		logger.Debugf("crawlstrategy: memory stat read failed, using full concurrency: %v", err)
		return d.maxPermits
	}
	if float64(usedPercent) >= d.thresholdPercent {
		half := d.maxPermits / 2
		if half < 1 {
			half = 1
		}
		return half
	}
	return d.maxPermits
}
