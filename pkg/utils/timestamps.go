package utils

import "time"

// TimestampPrecision is the resolution timestamps keep across storage and
// serialization. Anything finer is dropped on write so that a stored value
// reads back equal to the value that was written.
const TimestampPrecision = time.Microsecond

// NormalizeTime converts t to UTC at TimestampPrecision and strips the
// monotonic clock reading. The zero time stays zero.
func NormalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Truncate(TimestampPrecision)
}

// Now returns the current instant, normalized.
func Now() time.Time {
	return NormalizeTime(time.Now())
}

// EncodeTime converts t to the scalar stored in the database.
func EncodeTime(t time.Time) int64 {
	return NormalizeTime(t).UnixMicro()
}

// DecodeTime rehydrates a stored scalar into a time.Time in UTC.
func DecodeTime(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

// NextAfter returns now if it is strictly after prev, otherwise the smallest
// representable instant after prev. It keeps per-record update times
// strictly increasing when the wall clock stalls or steps back.
func NextAfter(prev, now time.Time) time.Time {
	now = NormalizeTime(now)
	prev = NormalizeTime(prev)
	if now.After(prev) {
		return now
	}
	return prev.Add(TimestampPrecision)
}
