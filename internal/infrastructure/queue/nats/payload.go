package nats

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const submittedAtHeader = "Submitted-At"

// newSubmittedMsg carries the assignment id as a decimal body and the publish
// time in a header.
func newSubmittedMsg(subject string, assignmentID int64, now time.Time) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Data = []byte(strconv.FormatInt(assignmentID, 10))
	msg.Header.Set(submittedAtHeader, now.UTC().Format(time.RFC3339Nano))
	return msg
}

func decodeAssignmentID(data []byte) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse assignment id: %w", err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("assignment id must be positive, got %d", id)
	}
	return id, nil
}

// submittedAt reports when the message was published; ok is false for
// messages without the header.
func submittedAt(msg *nats.Msg) (time.Time, bool) {
	if msg == nil || msg.Header == nil {
		return time.Time{}, false
	}
	raw := msg.Header.Get(submittedAtHeader)
	if raw == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
