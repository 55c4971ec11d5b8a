package hubclient

import "time"

// reconnectSchedule is the delay applied before each automatic reconnect
// attempt: retry immediately once, then back off to a steady 30s. A missed
// sync event is superseded by the next one, so there is no value in retrying
// aggressively forever; there is also no attempt cap, because a live session
// view should keep trying for as long as it is mounted.
var reconnectSchedule = []time.Duration{
	0,
	2 * time.Second,
	10 * time.Second,
	30 * time.Second,
}

// ReconnectDelay returns the delay before reconnect attempt number attempt
// (zero-based). Attempts beyond the schedule reuse its last entry.
func ReconnectDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(reconnectSchedule) {
		return reconnectSchedule[len(reconnectSchedule)-1]
	}
	return reconnectSchedule[attempt]
}
