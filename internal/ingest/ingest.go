package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"mechinsight-backend/config"
	"mechinsight-backend/internal/notification"
	"mechinsight-backend/internal/store"
)

// Service polls the prediction model server and appends new telemetry
// samples to the store. Machines that received rows are handed to the alert
// worker pool, when one is configured.
type Service struct {
	cfg    *config.Config
	store  store.Store
	client *http.Client
	alerts *notification.WorkerPool
}

// NewService creates and initializes a new ingest service. alerts may be nil
// when push notifications are not configured.
func NewService(cfg *config.Config, s store.Store, alerts *notification.WorkerPool) *Service {
	return &Service{
		cfg:   cfg,
		store: s,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		alerts: alerts,
	}
}

// Run starts the ingest process in a loop.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Ingest.Enabled {
		log.Println("Ingest is disabled. Not starting.")
		return
	}
	log.Println("Starting ingest service...")

	if s.alerts != nil {
		s.alerts.Start(ctx)
	}

	s.IngestOnce(ctx)

	timer := time.NewTimer(s.cfg.Ingest.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Ingest service shutting down.")
			return
		case <-timer.C:
			s.IngestOnce(ctx)
			timer.Reset(s.cfg.Ingest.Interval)
		}
	}
}

// IngestOnce performs a single fetch-and-append cycle.
func (s *Service) IngestOnce(ctx context.Context) {
	feed, err := s.fetchFeed(ctx)
	if err != nil {
		log.Printf("Error fetching telemetry feed: %v", err)
		return
	}
	if len(feed.Samples) == 0 {
		log.Println("Ingest cycle finished: feed returned no samples.")
		return
	}

	machineIDs, err := s.store.InsertSamples(ctx, feed.Samples)
	if err != nil {
		log.Printf("Error inserting telemetry samples: %v", err)
		return
	}
	if len(machineIDs) == 0 {
		log.Printf("Ingest cycle finished: all %d samples already present.", len(feed.Samples))
		return
	}
	log.Printf("Ingest cycle finished: new samples for %d machines.", len(machineIDs))

	if s.alerts != nil {
		for _, machineID := range machineIDs {
			s.alerts.Dispatch(machineID)
		}
	}
}

// fetchFeed pulls one batch of predicted samples from the model server.
func (s *Service) fetchFeed(ctx context.Context) (*FeedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.Ingest.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range s.cfg.Ingest.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var feed FeedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feed response: %w", err)
	}
	return &feed, nil
}
