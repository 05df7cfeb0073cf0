package domain

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Accepted timestamp layouts. Both require an explicit offset; the first also
// matches a literal "Z".
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
}

// FeedSnapshot is the parsed representation of one poll of the feed.
type FeedSnapshot struct {
	UpdatedAt  time.Time
	Thresholds []ThresholdDefinition
	Activities []ActivityObservation
}

// ThresholdDefinition is the lower bound, in nT, of a status level.
type ThresholdDefinition struct {
	StatusID string `json:"statusId"`
	Value    int    `json:"value"`
}

// ActivityObservation is a single activity reading as published by the feed.
type ActivityObservation struct {
	StatusID  string
	Timestamp time.Time
	Value     decimal.Decimal
}

// feedDocument mirrors the XML document. The root element name is not checked.
type feedDocument struct {
	Updated    []updatedNode   `xml:"updated"`
	Thresholds []thresholdNode `xml:"lower_threshold"`
	Activities []activityNode  `xml:"activity"`
}

type updatedNode struct {
	Datetime *string `xml:"datetime"`
}

type thresholdNode struct {
	StatusID string `xml:"status_id,attr"`
	Value    string `xml:",chardata"`
}

type activityNode struct {
	StatusID string  `xml:"status_id,attr"`
	Datetime *string `xml:"datetime"`
	Value    *string `xml:"value"`
}

// ParseFeed decodes raw feed bytes into a FeedSnapshot. Every failure wraps
// ErrMalformedFeed. ParseFeed has no side effects.
func ParseFeed(data []byte) (FeedSnapshot, error) {
	var doc feedDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return FeedSnapshot{}, fmt.Errorf("%w: decode xml: %w", ErrMalformedFeed, err)
	}

	updatedAt, err := parseUpdated(doc.Updated)
	if err != nil {
		return FeedSnapshot{}, err
	}

	thresholds := make([]ThresholdDefinition, 0, len(doc.Thresholds))
	for i, node := range doc.Thresholds {
		th, err := parseThreshold(node)
		if err != nil {
			return FeedSnapshot{}, fmt.Errorf("%w: lower_threshold[%d]: %w", ErrMalformedFeed, i, err)
		}
		thresholds = append(thresholds, th)
	}

	activities := make([]ActivityObservation, 0, len(doc.Activities))
	for i, node := range doc.Activities {
		obs, err := parseActivity(node)
		if err != nil {
			return FeedSnapshot{}, fmt.Errorf("%w: activity[%d]: %w", ErrMalformedFeed, i, err)
		}
		activities = append(activities, obs)
	}

	return FeedSnapshot{
		UpdatedAt:  updatedAt,
		Thresholds: thresholds,
		Activities: activities,
	}, nil
}

func parseUpdated(nodes []updatedNode) (time.Time, error) {
	if len(nodes) != 1 {
		return time.Time{}, fmt.Errorf("%w: expected exactly one updated node, found %d", ErrMalformedFeed, len(nodes))
	}
	if nodes[0].Datetime == nil {
		return time.Time{}, fmt.Errorf("%w: updated node has no datetime", ErrMalformedFeed)
	}
	ts, err := ParseTimestamp(*nodes[0].Datetime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: updated: %w", ErrMalformedFeed, err)
	}
	return ts, nil
}

func parseThreshold(node thresholdNode) (ThresholdDefinition, error) {
	statusID := strings.TrimSpace(node.StatusID)
	if statusID == "" {
		return ThresholdDefinition{}, errors.New("missing status_id")
	}
	v, err := strconv.Atoi(strings.TrimSpace(node.Value))
	if err != nil {
		return ThresholdDefinition{}, fmt.Errorf("status %q: value %q is not an integer", statusID, strings.TrimSpace(node.Value))
	}
	return ThresholdDefinition{StatusID: statusID, Value: v}, nil
}

func parseActivity(node activityNode) (ActivityObservation, error) {
	statusID := strings.TrimSpace(node.StatusID)
	if statusID == "" {
		return ActivityObservation{}, errors.New("missing status_id")
	}
	if node.Datetime == nil {
		return ActivityObservation{}, fmt.Errorf("status %q: missing datetime", statusID)
	}
	if node.Value == nil {
		return ActivityObservation{}, fmt.Errorf("status %q: missing value", statusID)
	}

	ts, err := ParseTimestamp(*node.Datetime)
	if err != nil {
		return ActivityObservation{}, fmt.Errorf("status %q: %w", statusID, err)
	}
	value, err := decimal.NewFromString(strings.TrimSpace(*node.Value))
	if err != nil {
		return ActivityObservation{}, fmt.Errorf("status %q: value %q is not numeric", statusID, strings.TrimSpace(*node.Value))
	}

	return ActivityObservation{StatusID: statusID, Timestamp: ts, Value: value}, nil
}

// ParseTimestamp parses an ISO-8601 timestamp that carries a UTC offset,
// e.g. "2023-10-01T12:00:00+00:00" or "2024-12-10T22:00:00+0000".
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q is not ISO-8601 with a UTC offset", s)
}
