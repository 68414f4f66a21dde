package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mechinsight-backend/internal/model"
)

// mockSender is a mock implementation of the Sender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func newTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		sqlDB.Close()
	})

	err = gormDB.AutoMigrate(
		&model.TelemetrySample{},
		&model.PushSubscription{},
		&model.SubscriptionMachine{},
	)
	require.NoError(t, err)
	return gormDB
}

func seedSubscription(t *testing.T, db *gorm.DB, endpoint string, machineID int64) {
	t.Helper()
	sub := model.PushSubscription{
		Endpoint: endpoint,
		Username: "alice",
		P256DH:   "test_p256dh",
		Auth:     "test_auth",
	}
	require.NoError(t, db.Create(&sub).Error)
	require.NoError(t, db.Create(&model.SubscriptionMachine{Endpoint: endpoint, MachineID: machineID}).Error)
}

func okResponse() *http.Response {
	return &http.Response{
		StatusCode: http.StatusCreated,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, newTestDB(t), &webpush.Options{}, 7)

	wp.Dispatch(123)

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, int64(123), job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestAlertForMachine_AnomalyTriggersPush(t *testing.T) {
	db := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{}, 7)

	seedSubscription(t, db, "https://example.com/push", 101)
	sample := model.TelemetrySample{
		MachineID:            101,
		Timestamp:            time.Now().UTC(),
		PredictedAnomaly:     true,
		PredictedAnomalyType: "bearing_wear",
	}
	require.NoError(t, db.Create(&sample).Error)

	var mu sync.Mutex
	var sent []string
	wp.SetSender(&mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			mu.Lock()
			defer mu.Unlock()
			sent = append(sent, string(payload))
			assert.Equal(t, "https://example.com/push", sub.Endpoint)
			return okResponse(), nil
		},
	})

	wp.alertForMachine(context.Background(), 101)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sent, 1)
	assert.Equal(t, "Machine 101: anomaly predicted (bearing_wear)", sent[0])
}

func TestAlertForMachine_MaintenanceDueTriggersPush(t *testing.T) {
	db := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{}, 7)

	seedSubscription(t, db, "https://example.com/push", 101)
	sample := model.TelemetrySample{
		MachineID:                  101,
		Timestamp:                  time.Now().UTC(),
		PredictedDaysToMaintenance: 3,
	}
	require.NoError(t, db.Create(&sample).Error)

	var sent []string
	wp.SetSender(&mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			sent = append(sent, string(payload))
			return okResponse(), nil
		},
	})

	wp.alertForMachine(context.Background(), 101)

	require.Len(t, sent, 1)
	assert.Equal(t, "Machine 101: maintenance due in 3 days", sent[0])
}

func TestAlertForMachine_HealthyMachineSendsNothing(t *testing.T) {
	db := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{}, 7)

	seedSubscription(t, db, "https://example.com/push", 101)
	sample := model.TelemetrySample{
		MachineID:                  101,
		Timestamp:                  time.Now().UTC(),
		PredictedDaysToMaintenance: 30,
	}
	require.NoError(t, db.Create(&sample).Error)

	wp.SetSender(&mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			t.Fatal("no notification should be sent for a healthy machine")
			return nil, nil
		},
	})

	wp.alertForMachine(context.Background(), 101)
}

func TestAlertForMachine_OnlyNewestSampleCounts(t *testing.T) {
	db := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{}, 7)

	seedSubscription(t, db, "https://example.com/push", 101)
	base := time.Now().UTC()
	// Older sample predicted an anomaly, the newest one is healthy.
	require.NoError(t, db.Create(&model.TelemetrySample{
		MachineID: 101, Timestamp: base.Add(-time.Hour), PredictedAnomaly: true,
	}).Error)
	require.NoError(t, db.Create(&model.TelemetrySample{
		MachineID: 101, Timestamp: base, PredictedDaysToMaintenance: 30,
	}).Error)

	wp.SetSender(&mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			t.Fatal("stale anomaly must not trigger a push")
			return nil, nil
		},
	})

	wp.alertForMachine(context.Background(), 101)
}

func TestAlertForMachine_ExpiredSubscriptionIsDeleted(t *testing.T) {
	db := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{}, 7)

	seedSubscription(t, db, "https://example.com/gone", 101)
	require.NoError(t, db.Create(&model.TelemetrySample{
		MachineID: 101, Timestamp: time.Now().UTC(), PredictedAnomaly: true,
	}).Error)

	wp.SetSender(&mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusGone,
				Body:       io.NopCloser(bytes.NewBufferString("")),
			}, nil
		},
	})

	wp.alertForMachine(context.Background(), 101)

	var count int64
	require.NoError(t, db.Model(&model.PushSubscription{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, db.Model(&model.SubscriptionMachine{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
