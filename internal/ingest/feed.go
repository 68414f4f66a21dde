package ingest

import "mechinsight-backend/internal/model"

// FeedResponse models the batch format served by the prediction model
// server: the raw sensor readings with the model outputs already attached.
type FeedResponse struct {
	Samples []model.TelemetrySample `json:"samples"`
}
