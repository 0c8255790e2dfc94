package runtime

import "time"

// Select return protocol, shared with generated code.
const (
	// SelectNone signals timeout, an empty channel set, or every channel
	// closed and drained.
	SelectNone int64 = -1
	// SelectDefault signals that the non-blocking default branch fires.
	SelectDefault int64 = -2
)

// Timeout sentinels accepted by Select.
const (
	// WaitForever waits indefinitely, re-polling to tolerate missed
	// notifications.
	WaitForever int64 = -1
	// NoWait polls once and takes the default branch when nothing is
	// ready.
	NoWait int64 = -2
)

// repollInterval caps how long a selector stays parked: a sender can
// broadcast between our poll and our park, and the bounded park turns
// that race into at most one interval of added latency.
const repollInterval = 100 * time.Millisecond

// Select waits for a value on any of the given channels.
//
//   - timeoutMs >= 0 waits up to that many milliseconds.
//   - timeoutMs == WaitForever waits indefinitely.
//   - timeoutMs == NoWait never blocks; SelectDefault is returned when no
//     channel is immediately ready.
//
// The chosen value is written through out and the channel's index
// returned. Ties break to the lowest ready index. Nil channels are
// skipped; an all-nil or empty set returns SelectNone, as do timeout
// expiry and an all-closed, fully drained set.
func Select(channels []*Channel, timeoutMs int64, out *Slot) int64 {
	live := false
	for _, ch := range channels {
		if ch != nil {
			live = true
			break
		}
	}
	if !live {
		return SelectNone
	}

	var deadline time.Time
	if timeoutMs >= 0 {
		deadline = time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	}

	for {
		allDrained := true
		for i, ch := range channels {
			if ch == nil {
				continue
			}
			if v, ok := ch.TryRecv(); ok {
				if out != nil {
					*out = v
				}
				return int64(i)
			}
			if !ch.drained() {
				allDrained = false
			}
		}

		if timeoutMs == NoWait {
			return SelectDefault
		}
		if allDrained {
			return SelectNone
		}

		park := repollInterval
		if timeoutMs >= 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return SelectNone
			}
			if remaining < park {
				park = remaining
			}
		}
		globalNotifier.Wait(park)
	}
}

// SelectSlots is the handle-level form used through the symbol registry:
// channels arrive as slot handles.
func SelectSlots(handles []Slot, timeoutMs int64, out *Slot) int64 {
	channels := make([]*Channel, len(handles))
	for i, h := range handles {
		channels[i] = ChannelFromSlot(h)
	}
	return Select(channels, timeoutMs, out)
}
