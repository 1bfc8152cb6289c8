package events

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/hutch/pkg/log"
)

// EventType represents the type of lifecycle event
type EventType string

const (
	EventContainerCreated EventType = "container.created"
	EventContainerStarted EventType = "container.started"
	EventContainerStopped EventType = "container.stopped"
	EventContainerDeleted EventType = "container.deleted"
	EventOverlayCreated   EventType = "overlay.created"
	EventOverlayJoined    EventType = "overlay.joined"
)

// Event is one journal entry
type Event struct {
	ID          string            `json:"id"`
	Type        EventType         `json:"type"`
	ContainerID string            `json:"container_id,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Message     string            `json:"message,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

var bucketEvents = []byte("events")

// keyTimeFormat is fixed-width: RFC3339Nano trims trailing fractional
// zeros, which would break the lexicographic ordering of the keys.
const keyTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Journal is an append-only lifecycle event log backed by BoltDB. It is
// strictly best-effort observability: callers record through Record,
// which never fails the surrounding operation.
type Journal struct {
	db *bolt.DB
}

// Open opens (creating if needed) the journal database under dataDir
func Open(dataDir string) (*Journal, error) {
	dbPath := filepath.Join(dataDir, "events.db")

	// Short timeout: the journal is shared by concurrently running
	// operations and a wedged holder must not hang every command
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open event journal: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEvents)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create events bucket: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the journal database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append writes one event. The key is timestamp-prefixed so iteration
// returns events in chronological order.
func (j *Journal) Append(event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Timestamp = event.Timestamp.UTC()
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		key := event.Timestamp.Format(keyTimeFormat) + "/" + event.ID
		return b.Put([]byte(key), data)
	})
}

// List returns events in chronological order, filtered by container id
// when containerID is non-empty.
func (j *Journal) List(containerID string) ([]*Event, error) {
	var events []*Event
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		return b.ForEach(func(k, v []byte) error {
			var event Event
			if err := json.Unmarshal(v, &event); err != nil {
				return err
			}
			if containerID != "" && event.ContainerID != containerID {
				return nil
			}
			events = append(events, &event)
			return nil
		})
	})
	return events, err
}

// Record opens the journal, appends one event and closes it again,
// logging failures instead of returning them. Lifecycle operations call
// this so a broken journal can never fail a create/start/delete.
func Record(dataDir string, eventType EventType, containerID, message string, metadata map[string]string) {
	j, err := Open(dataDir)
	if err != nil {
		log.Logger.Warn().Err(err).Msg("event journal unavailable, dropping event")
		return
	}
	defer j.Close()

	event := &Event{Type: eventType, ContainerID: containerID, Message: message, Metadata: metadata}
	if err := j.Append(event); err != nil {
		log.Logger.Warn().Err(err).Str("type", string(eventType)).Msg("failed to record event")
	}
}
