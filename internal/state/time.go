package state

import "time"

// TimestampLayout is the wall-clock format used by memory entries and the
// updates log: day, month, two-digit year, hour, minute.
const TimestampLayout = "02_01_06_15_04"

// Timestamp returns the current wall-clock time in TimestampLayout.
func Timestamp() string {
	return time.Now().Format(TimestampLayout)
}
