package domain

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ISOLayout is the canonical display form of a record timestamp. It always
// writes the offset as "+hh:mm", never "Z".
const ISOLayout = "2006-01-02T15:04:05-07:00"

// KeyMode selects how a record's store key is derived.
type KeyMode string

const (
	// KeyComposite keys records by status and epoch second, preserving history.
	KeyComposite KeyMode = "composite"

	// KeyStatus keys records by status alone. Records that share a status
	// overwrite one another; kept for stores created with that schema.
	KeyStatus KeyMode = "status"
)

// ParseKeyMode validates a key mode name.
func ParseKeyMode(s string) (KeyMode, error) {
	switch KeyMode(s) {
	case KeyComposite, KeyStatus:
		return KeyMode(s), nil
	default:
		return "", fmt.Errorf("unknown key mode %q", s)
	}
}

// StatusRecord is the canonical, persisted form of an activity observation.
type StatusRecord struct {
	EpochTime int64           `json:"epochtime"`
	ISOString string          `json:"isoString"`
	StatusID  string          `json:"statusId"`
	Value     decimal.Decimal `json:"value"`
}

// Key returns the store key of the record under the given mode.
func (r StatusRecord) Key(mode KeyMode) string {
	if mode == KeyStatus {
		return r.StatusID
	}
	return r.StatusID + "#" + strconv.FormatInt(r.EpochTime, 10)
}

// Time returns the record timestamp in UTC.
func (r StatusRecord) Time() time.Time {
	return time.Unix(r.EpochTime, 0).UTC()
}

// NewStatusRecord converts one observation into its canonical record.
// Sub-second precision is truncated.
func NewStatusRecord(obs ActivityObservation) StatusRecord {
	return StatusRecord{
		EpochTime: obs.Timestamp.Unix(),
		ISOString: obs.Timestamp.Format(ISOLayout),
		StatusID:  obs.StatusID,
		Value:     obs.Value,
	}
}

// Normalize maps every activity of a snapshot to a StatusRecord, preserving
// feed order.
func Normalize(snap FeedSnapshot) []StatusRecord {
	records := make([]StatusRecord, 0, len(snap.Activities))
	for _, obs := range snap.Activities {
		records = append(records, NewStatusRecord(obs))
	}
	return records
}

// SortByTime orders records by epoch time, then status, in place.
func SortByTime(records []StatusRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].EpochTime != records[j].EpochTime {
			return records[i].EpochTime < records[j].EpochTime
		}
		return records[i].StatusID < records[j].StatusID
	})
}

// Filter is the predicate of a window scan.
type Filter struct {
	// Since is the inclusive lower bound on EpochTime.
	Since int64

	// StatusID, when set, restricts matches to one status.
	StatusID string
}

// Match reports whether r satisfies the filter.
func (f Filter) Match(r StatusRecord) bool {
	if r.EpochTime < f.Since {
		return false
	}
	return f.StatusID == "" || r.StatusID == f.StatusID
}
