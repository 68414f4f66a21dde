package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"mechinsight-backend/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real implementation of Sender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers sending maintenance alerts. A job is
// a machine id whose telemetry just changed; the worker re-reads the newest
// sample and only pushes when it predicts trouble.
type WorkerPool struct {
	size            int
	jobs            chan int64
	db              *gorm.DB
	webpush         *webpush.Options
	sender          Sender
	maintenanceDays float64
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, maintenanceDays float64) *WorkerPool {
	return &WorkerPool{
		size:            size,
		jobs:            make(chan int64, size),
		db:              db,
		webpush:         webpushOptions,
		sender:          &WebPushSender{},
		maintenanceDays: maintenanceDays,
	}
}

// SetSender replaces the sender, for tests.
func (wp *WorkerPool) SetSender(s Sender) { wp.sender = s }

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Alert worker %d started", id)
	for {
		select {
		case machineID := <-wp.jobs:
			wp.alertForMachine(ctx, machineID)
		case <-ctx.Done():
			log.Printf("Alert worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool.
func (wp *WorkerPool) Dispatch(machineID int64) {
	wp.jobs <- machineID
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

// alertForMachine inspects the machine's newest sample and pushes an alert
// to every subscriber when an anomaly is predicted or maintenance is due
// within the configured window.
func (wp *WorkerPool) alertForMachine(ctx context.Context, machineID int64) {
	var sample model.TelemetrySample
	err := wp.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("timestamp DESC, row_id DESC").
		First(&sample).Error
	if err == gorm.ErrRecordNotFound {
		return
	}
	if err != nil {
		log.Printf("Error fetching latest sample for machine %d: %v", machineID, err)
		return
	}

	var message string
	switch {
	case sample.PredictedAnomaly:
		message = fmt.Sprintf("Machine %d: anomaly predicted (%s)", machineID, sample.PredictedAnomalyType)
	case sample.PredictedDaysToMaintenance <= wp.maintenanceDays:
		message = fmt.Sprintf("Machine %d: maintenance due in %.0f days", machineID, sample.PredictedDaysToMaintenance)
	default:
		return
	}

	var subscriptions []model.PushSubscription
	err = wp.db.WithContext(ctx).
		Joins("JOIN subscription_machines sm ON sm.endpoint = push_subscriptions.endpoint").
		Where("sm.machine_id = ?", machineID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for machine %d: %v", machineID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d alerts for machine %d", len(subscriptions), machineID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
		if err := wp.db.WithContext(ctx).Where("endpoint = ?", sub.Endpoint).Delete(&model.SubscriptionMachine{}).Error; err != nil {
			log.Printf("Failed to delete mappings for %s: %v", sub.Endpoint, err)
		}
	}
}
