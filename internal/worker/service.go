// Package worker manages the background workers of the feed generator.
package worker

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"mahoot/internal/bluesky"
	"mahoot/internal/catalog"
	"mahoot/internal/followees"
	"mahoot/internal/preferences"
)

const defaultJetstreamURL = "wss://jetstream2.us-east.bsky.network/subscribe?wantedCollections=app.bsky.feed.post&wantedCollections=app.bsky.graph.follow"

// Service manages background workers for the application
type Service struct {
	firehose *bluesky.FirehoseConsumer
	catalog  *catalog.Service

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	startedAt time.Time
	mu        sync.RWMutex
}

// NewService creates a new worker service
func NewService(cat *catalog.Service, reg *followees.Service, prefs *preferences.Service) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	jetstreamURL := os.Getenv("JETSTREAM_URL")
	if jetstreamURL == "" {
		jetstreamURL = defaultJetstreamURL
	}

	return &Service{
		firehose: bluesky.NewFirehoseConsumer(jetstreamURL, cat, reg, prefs),
		catalog:  cat,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts all background workers
func (ws *Service) Start() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.running {
		return nil
	}

	log.Println("Starting background workers...")

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		ws.runFirehose()
	}()

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		ws.runPeriodicCounters()
	}()

	ws.running = true
	ws.startedAt = time.Now()
	log.Println("Background workers started successfully")

	return nil
}

// Stop stops all background workers
func (ws *Service) Stop() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.running {
		return
	}

	log.Println("Stopping background workers...")
	ws.cancel()
	ws.wg.Wait()
	ws.running = false
	log.Println("Background workers stopped")
}

// IsRunning returns whether the worker service is currently running
func (ws *Service) IsRunning() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.running
}

// GetStatus returns the current status of the worker service
func (ws *Service) GetStatus() map[string]interface{} {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	status := map[string]interface{}{
		"running":          ws.running,
		"firehose_enabled": true,
	}
	if ws.running {
		status["uptime"] = time.Since(ws.startedAt).String()
	}
	return status
}

// runFirehose runs the Jetstream consumer with restart-on-error.
func (ws *Service) runFirehose() {
	log.Println("Starting Bluesky Jetstream consumer...")

	for {
		select {
		case <-ws.ctx.Done():
			log.Println("Jetstream consumer stopped")
			return
		default:
			if err := ws.firehose.StartConsuming(ws.ctx); err != nil {
				if ws.ctx.Err() != nil {
					return
				}

				log.Printf("Jetstream consumer error: %v. Restarting in 30 seconds...", err)
				select {
				case <-time.After(30 * time.Second):
					continue
				case <-ws.ctx.Done():
					return
				}
			}
		}
	}
}

// runPeriodicCounters emits catalog totals on a fixed interval.
func (ws *Service) runPeriodicCounters() {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ws.ctx.Done():
			return
		case <-ticker.C:
			posts, views, err := ws.catalog.Counts()
			if err != nil {
				log.Printf("Failed to read catalog counts: %v", err)
				continue
			}
			log.Printf("📊 Catalog: %d posts indexed, %d views recorded", posts, views)
		}
	}
}
