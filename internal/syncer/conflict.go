package syncer

import (
	"time"
)

// timestampKeys are the field names checked, in order, when comparing row
// versions. Rows from the backend use snake_case; older exports used
// camelCase.
var timestampKeys = []string{"updated_at", "updatedAt"}

// ResolveConflict picks a winner between a local and a remote version of the
// same row using last-write-wins on the update timestamp. Ties go to the
// local version, as does any comparison where timestamps are missing or
// unparseable on both sides; a side whose timestamp cannot be read loses to
// one whose timestamp can.
func ResolveConflict(local, remote map[string]any) map[string]any {
	localTS, localOK := rowTimestamp(local)
	remoteTS, remoteOK := rowTimestamp(remote)

	switch {
	case localOK && remoteOK:
		if remoteTS.After(localTS) {
			return remote
		}
		return local
	case localOK:
		return local
	case remoteOK:
		return remote
	default:
		return local
	}
}

// rowTimestamp extracts the update timestamp from a row.
func rowTimestamp(row map[string]any) (time.Time, bool) {
	for _, key := range timestampKeys {
		v, ok := row[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case time.Time:
			return t, true
		case string:
			if ts, err := parseTimestamp(t); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

// parseTimestamp tries the timestamp formats seen in backend rows.
func parseTimestamp(v string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	}
	var lastErr error
	for _, f := range formats {
		t, err := time.Parse(f, v)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
