package logic

import "time"

// NextScheduledPosition returns the position the valve should hold at now.
//
// The slot is derived from the minute and second of the hour only, so two
// units sharing a clock agree regardless of when they booted. When interval
// does not divide 3600 the last slot of each hour is short; that drift is
// intentional and reproduced with plain integer division.
func NextScheduledPosition(now time.Time, intervalSeconds uint32) Position {
	if intervalSeconds == 0 {
		return Bottom
	}
	elapsed := uint32(now.Minute()*60 + now.Second())
	slot := elapsed / intervalSeconds
	if slot%2 == 0 {
		return Bottom
	}
	return Top
}
