package logic

// AllowMove reports whether at least minIntervalMs have passed on the
// monotonic clock since lastMoveAt. The unsigned subtraction stays correct
// across counter wrap.
func AllowMove(now, lastMoveAt uint64, minIntervalMs uint32) bool {
	return now-lastMoveAt >= uint64(minIntervalMs)
}
