package handler

import (
	"runtime"
	"sync/atomic"
	"time"

	"tinyvault/internal/logger"
)

// processing counters
var (
	totalMessagesProcessed int64
	totalDuplicates        int64
	totalErrors            int64
	startTime              = time.Now()
)

// incrementCounter safely increments a counter
func incrementCounter(counter *int64) {
	atomic.AddInt64(counter, 1)
}

// GetProcessingStats returns processing statistics for monitoring
func GetProcessingStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)

	return map[string]interface{}{
		"uptime_seconds":   int64(uptime.Seconds()),
		"total_messages":   atomic.LoadInt64(&totalMessagesProcessed),
		"total_duplicates": atomic.LoadInt64(&totalDuplicates),
		"total_errors":     atomic.LoadInt64(&totalErrors),
		"memory_usage_mb":  bToMb(m.Alloc),
		"gc_runs":          m.NumGC,
		"goroutines":       runtime.NumGoroutine(),
	}
}

// LogProcessingStats periodically records processing statistics
func LogProcessingStats() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		stats := GetProcessingStats()
		logger.Infof("Processing stats: %+v", stats)

		totalMessages := stats["total_messages"].(int64)
		totalErrs := stats["total_errors"].(int64)
		if totalMessages > 0 && float64(totalErrs)/float64(totalMessages) > 0.1 {
			logger.Warningf("High error rate: %.2f%% (%d errors out of %d messages)",
				float64(totalErrs)/float64(totalMessages)*100, totalErrs, totalMessages)
		}
	}
}

// StartStatusMonitoring starts the status monitoring goroutine
func StartStatusMonitoring() {
	go LogProcessingStats()
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
