package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Stats is the process-wide link counter set.
var Stats = &stats{}

type stats struct {
	FramesSent      atomic.Int64 // frames written to the transport
	FramesRecv      atomic.Int64 // frames enqueued from the transport
	BytesSent       atomic.Int64
	BytesRecv       atomic.Int64
	ConfirmFailures atomic.Int64 // confirmed sends that timed out or mismatched
	MalformedDrops  atomic.Int64 // inbound datagrams dropped by the frame gate
}

func (s *stats) AddSent(n int) {
	s.FramesSent.Add(1)
	s.BytesSent.Add(int64(n))
}

func (s *stats) AddRecv(n int) {
	s.FramesRecv.Add(1)
	s.BytesRecv.Add(int64(n))
}

func (s *stats) AddConfirmFailure() { s.ConfirmFailures.Add(1) }
func (s *stats) AddMalformedDrop()  { s.MalformedDrops.Add(1) }

// reportInterval is how often the reporter prints a summary line.
const reportInterval = 10 * time.Second

// StartStatsReporter launches a goroutine that logs link statistics
// periodically while traffic is flowing. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(reportInterval)
		defer ticker.Stop()

		var prevSent, prevRecv, prevFail, prevDrop int64
		for {
			select {
			case <-ticker.C:
				sent := Stats.FramesSent.Load()
				recv := Stats.FramesRecv.Load()
				fail := Stats.ConfirmFailures.Load()
				drop := Stats.MalformedDrops.Load()

				dSent := sent - prevSent
				dRecv := recv - prevRecv
				dFail := fail - prevFail
				dDrop := drop - prevDrop

				if dSent > 0 || dRecv > 0 || dFail > 0 || dDrop > 0 {
					logger.Info(formatStats(dSent, dRecv, dFail, dDrop))
				}

				prevSent = sent
				prevRecv = recv
				prevFail = fail
				prevDrop = drop

			case <-ctx.Done():
				return
			}
		}
	}()
}

// formatStats returns one summary line of the deltas since the last report.
func formatStats(sent, recv, fail, drop int64) string {
	rate := float64(sent) / reportInterval.Seconds()
	return fmt.Sprintf("Out: %4d (%5.1f/s) | In: %4d | confirm fails: %d | dropped: %d",
		sent, rate, recv, fail, drop)
}
