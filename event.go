package sepadoc

import (
	"fmt"
	"strconv"
	"time"

	"github.com/luno/jettison/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type EventType int

const (
	EventTypeUnknown       EventType = 0
	EventTypeDocumentSent  EventType = 1
	EventTypeStageFinished EventType = 2
)

func (t EventType) String() string {
	switch t {
	case EventTypeUnknown:
		return "unknown"
	case EventTypeDocumentSent:
		return "document_sent"
	case EventTypeStageFinished:
		return "stage_finished"
	default:
		return fmt.Sprintf("EventType(%d)", t)
	}
}

// Event is published to a Notifier when a document is sent and when a stage finishes.
type Event struct {
	ID           string
	Type         EventType
	RunID        string
	Stage        Stage
	Outcome      Outcome
	RecordID     int64
	DocumentPath string
	ArchivePath  string
	Completed    int
	Failed       int
	Total        int
	CreatedAt    time.Time
}

// Key is the partitioning key of the event: all events of one run share it.
func (e Event) Key() string {
	return e.RunID
}

// MarshalEvent encodes e as a protobuf Struct.
func MarshalEvent(e Event) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"id":            e.ID,
		"type":          int64(e.Type),
		"run_id":        e.RunID,
		"stage":         int64(e.Stage),
		"outcome":       int64(e.Outcome),
		"record_id":     strconv.FormatInt(e.RecordID, 10),
		"document_path": e.DocumentPath,
		"archive_path":  e.ArchivePath,
		"completed":     int64(e.Completed),
		"failed":        int64(e.Failed),
		"total":         int64(e.Total),
		"created_at":    e.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, errors.Wrap(err, "build event struct")
	}

	return proto.Marshal(s)
}

func UnmarshalEvent(b []byte) (Event, error) {
	var s structpb.Struct
	err := proto.Unmarshal(b, &s)
	if err != nil {
		return Event{}, errors.Wrap(err, "unmarshal event")
	}

	f := s.GetFields()
	str := func(k string) string { return f[k].GetStringValue() }
	num := func(k string) int { return int(f[k].GetNumberValue()) }

	recordID, err := strconv.ParseInt(str("record_id"), 10, 64)
	if err != nil {
		return Event{}, errors.Wrap(err, "parse record id")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, str("created_at"))
	if err != nil {
		return Event{}, errors.Wrap(err, "parse created at")
	}

	return Event{
		ID:           str("id"),
		Type:         EventType(num("type")),
		RunID:        str("run_id"),
		Stage:        Stage(num("stage")),
		Outcome:      Outcome(num("outcome")),
		RecordID:     recordID,
		DocumentPath: str("document_path"),
		ArchivePath:  str("archive_path"),
		Completed:    num("completed"),
		Failed:       num("failed"),
		Total:        num("total"),
		CreatedAt:    createdAt,
	}, nil
}
