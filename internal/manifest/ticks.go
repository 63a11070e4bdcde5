package manifest

import "time"

// ticksAtUnixEpoch is the number of 100ns intervals between 0001-01-01 and
// 1970-01-01, keeping the document compatible with existing manifests.
const ticksAtUnixEpoch int64 = 621355968000000000

// ToTicks converts t to 100ns ticks since 0001-01-01 UTC.
func ToTicks(t time.Time) int64 {
	return t.UTC().UnixNano()/100 + ticksAtUnixEpoch
}

// FromTicks is the inverse of ToTicks.
func FromTicks(ticks int64) time.Time {
	return time.Unix(0, (ticks-ticksAtUnixEpoch)*100).UTC()
}
