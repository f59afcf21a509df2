package monitoring

import (
	"context"
	"fmt"
	"time"
)

const defaultPingTimeout = 2 * time.Second

// Pinger is satisfied by anything that can prove a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck returns a probe that pings p with a bounded timeout.
func PingCheck(name string, p Pinger, timeout time.Duration) Check {
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	return NewCheck(name, func(ctx context.Context) ProbeResult {
		start := time.Now()
		if p == nil {
			return ProbeResult{Status: StatusDown, Details: "not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return ResultFromError(p.Ping(probeCtx), time.Since(start))
	})
}

// PendingCounter reports how many verifications are outstanding.
type PendingCounter interface {
	Pending() int
}

// PendingCheck reports the number of outstanding verifications. It turns
// degraded once the count exceeds limit, which points at abuse or a stuck sweep.
// A limit of zero disables the threshold.
func PendingCheck(name string, counter PendingCounter, limit int) Check {
	return NewCheck(name, func(context.Context) ProbeResult {
		if counter == nil {
			return ProbeResult{Status: StatusDown, Details: "not configured"}
		}
		pending := counter.Pending()
		result := ProbeResult{Status: StatusUp, Details: fmt.Sprintf("%d pending", pending)}
		if limit > 0 && pending > limit {
			result.Status = StatusDegraded
		}
		return result
	})
}
