package bluesky

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"mahoot/internal/catalog"
	"mahoot/internal/followees"
	"mahoot/internal/preferences"

	"github.com/gorilla/websocket"
)

const (
	postCollection   = "app.bsky.feed.post"
	followCollection = "app.bsky.graph.follow"
)

// FirehoseConsumer subscribes to the Bluesky Jetstream and hands post
// and follow events to the catalog and the followee registry.
type FirehoseConsumer struct {
	jetstreamURL string
	catalog      *catalog.Service
	followees    *followees.Service
	prefs        *preferences.Service
	dialer       *websocket.Dialer

	// Counters emitted periodically; observability only, not part of
	// the allocation contract.
	postsIndexed   atomic.Int64
	postsDropped   atomic.Int64
	followsApplied atomic.Int64
	eventsSeen     atomic.Int64
}

// NewFirehoseConsumer creates a new firehose consumer
func NewFirehoseConsumer(jetstreamURL string, cat *catalog.Service, reg *followees.Service, prefs *preferences.Service) *FirehoseConsumer {
	return &FirehoseConsumer{
		jetstreamURL: jetstreamURL,
		catalog:      cat,
		followees:    reg,
		prefs:        prefs,
		dialer:       websocket.DefaultDialer,
	}
}

// JetstreamEvent represents an event from the Bluesky Jetstream
type JetstreamEvent struct {
	DID    string           `json:"did"`
	TimeUS int64            `json:"time_us"`
	Kind   string           `json:"kind"`
	Commit *JetstreamCommit `json:"commit,omitempty"`
}

// JetstreamCommit represents a commit event
type JetstreamCommit struct {
	Rev        string          `json:"rev"`
	Operation  string          `json:"operation"`
	Collection string          `json:"collection"`
	RKey       string          `json:"rkey"`
	Record     json.RawMessage `json:"record,omitempty"`
	CID        string          `json:"cid"`
}

// postRecord is the subset of app.bsky.feed.post we need
type postRecord struct {
	Type      string    `json:"$type"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// followRecord is the subset of app.bsky.graph.follow we need
type followRecord struct {
	Type      string    `json:"$type"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"createdAt"`
}

// StartConsuming connects to Jetstream and processes events until the
// context is cancelled, reconnecting on failure.
func (fc *FirehoseConsumer) StartConsuming(ctx context.Context) error {
	log.Printf("Connecting to Bluesky Jetstream: %s", fc.jetstreamURL)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := fc.connectAndConsume(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("Jetstream connection error: %v. Reconnecting in 10 seconds...", err)

				select {
				case <-time.After(10 * time.Second):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// connectAndConsume handles a single connection to Jetstream
func (fc *FirehoseConsumer) connectAndConsume(ctx context.Context) error {
	conn, _, err := fc.dialer.DialContext(ctx, fc.jetstreamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to Jetstream: %w", err)
	}
	defer conn.Close()

	log.Println("Successfully connected to Bluesky Jetstream")

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	counters := time.NewTicker(time.Minute)
	defer counters.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					log.Printf("Failed to send ping: %v", err)
					return
				}
			case <-counters.C:
				fc.logCounters()
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			_, message, err := conn.ReadMessage()
			if err != nil {
				return fmt.Errorf("failed to read message: %w", err)
			}

			if err := fc.processMessage(message); err != nil {
				log.Printf("Error processing Jetstream message: %v", err)
				// Keep consuming; one bad event must not stall ingestion.
			}
		}
	}
}

// processMessage routes a single Jetstream event
func (fc *FirehoseConsumer) processMessage(data []byte) error {
	var event JetstreamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal Jetstream event: %w", err)
	}

	if event.Kind != "commit" || event.Commit == nil {
		return nil
	}
	fc.eventsSeen.Add(1)

	switch event.Commit.Collection {
	case postCollection:
		return fc.processPostCommit(&event)
	case followCollection:
		return fc.processFollowCommit(&event)
	}
	return nil
}

// processPostCommit indexes posts from followed authors and drops
// upstream retractions.
func (fc *FirehoseConsumer) processPostCommit(event *JetstreamEvent) error {
	uri := fmt.Sprintf("at://%s/%s/%s", event.DID, postCollection, event.Commit.RKey)

	switch event.Commit.Operation {
	case "create":
		followed, err := fc.followees.IsFollowedAuthor(event.DID)
		if err != nil {
			return fmt.Errorf("failed to check author %s: %w", event.DID, err)
		}
		if !followed {
			fc.postsDropped.Add(1)
			return nil
		}

		var record postRecord
		if err := json.Unmarshal(event.Commit.Record, &record); err != nil {
			return fmt.Errorf("failed to unmarshal post record: %w", err)
		}

		indexedAt := time.UnixMicro(event.TimeUS).UTC()
		if err := fc.catalog.OnPostCreated(uri, event.Commit.CID, event.DID, record.CreatedAt, indexedAt); err != nil {
			return err
		}
		fc.postsIndexed.Add(1)
		return nil

	case "delete":
		return fc.catalog.OnPostDeleted(uri)
	}
	return nil
}

// processFollowCommit maintains followee edges for registered viewers.
// The follow record's AT URI is the source reference that later lets an
// unfollow event find the edge to delete.
func (fc *FirehoseConsumer) processFollowCommit(event *JetstreamEvent) error {
	sourceRef := fmt.Sprintf("at://%s/%s/%s", event.DID, followCollection, event.Commit.RKey)

	switch event.Commit.Operation {
	case "create":
		// Only viewers known to us get edges; otherwise we would be
		// mirroring the whole network's graph.
		registered, err := fc.isRegisteredViewer(event.DID)
		if err != nil {
			return err
		}
		if !registered {
			return nil
		}

		var record followRecord
		if err := json.Unmarshal(event.Commit.Record, &record); err != nil {
			return fmt.Errorf("failed to unmarshal follow record: %w", err)
		}
		if record.Subject == "" {
			return fmt.Errorf("follow record without subject: %s", sourceRef)
		}

		if err := fc.followees.OnFollowCreated(event.DID, record.Subject, sourceRef); err != nil {
			return err
		}
		fc.followsApplied.Add(1)
		return nil

	case "delete":
		return fc.followees.OnFollowRemoved(sourceRef)
	}
	return nil
}

// isRegisteredViewer reports whether the DID has a preferences row.
func (fc *FirehoseConsumer) isRegisteredViewer(did string) (bool, error) {
	return fc.prefs.Exists(did)
}

// logCounters emits the periodic ingestion counters.
func (fc *FirehoseConsumer) logCounters() {
	log.Printf("📊 Jetstream: %d events, %d posts indexed, %d posts dropped, %d follows applied",
		fc.eventsSeen.Load(), fc.postsIndexed.Load(), fc.postsDropped.Load(), fc.followsApplied.Load())
}
