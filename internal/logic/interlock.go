package logic

// ApplyInterlock forces Home when the bus voltage is below threshold.
// Returns the effective position and whether the interlock tripped.
// Callers pass 0 for a failed sensor read so a dead sensor trips it.
func ApplyInterlock(requested Position, voltageMV, thresholdMV int32) (Position, bool) {
	if voltageMV < thresholdMV {
		return Home, true
	}
	return requested, false
}
