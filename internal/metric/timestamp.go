package metric

import "time"

// capturedAtLayout is the wall-clock form clients submit: local time with no
// zone designator and minute precision.
const capturedAtLayout = "2006-01-02T15:04"

// NormalizeTimestamp resolves a client-local wall-clock string into a single
// absolute instant.
//
// offsetMinutes is the number of minutes the client's local time lags UTC
// (positive means local is behind UTC). When supplied, the naive components
// are read as if they were UTC and then advanced by the offset:
//
//	utc = naiveLocalAsUTC + offset
//
// This contract, including its sign, is what makes previously stored data
// decode consistently; do not change it.
//
// When the offset is absent the components are interpreted in the server's
// local timezone. That fallback is wrong whenever server and client zones
// differ, so callers should always send the offset.
func NormalizeTimestamp(local string, offsetMinutes *int) (time.Time, error) {
	if offsetMinutes != nil {
		naive, err := time.Parse(capturedAtLayout, local)
		if err != nil {
			return time.Time{}, ErrMalformedTimestamp(local)
		}
		return naive.Add(time.Duration(*offsetMinutes) * time.Minute), nil
	}

	parsed, err := time.ParseInLocation(capturedAtLayout, local, time.Local)
	if err != nil {
		return time.Time{}, ErrMalformedTimestamp(local)
	}
	return parsed.UTC(), nil
}

// FormatCaptured re-expresses an absolute instant as the wall-clock string a
// client at the given UTC offset would have submitted. Inverse of
// NormalizeTimestamp for the offset-supplied case.
func FormatCaptured(instant time.Time, offsetMinutes int) string {
	return instant.UTC().Add(-time.Duration(offsetMinutes) * time.Minute).Format(capturedAtLayout)
}
