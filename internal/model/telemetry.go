package model

import "time"

// TelemetrySample is one time-stamped reading for a machine, including the
// fields predicted by the model server. Rows are append-only: there is no
// update or delete path.
//
// The JSON field "id" carries the machine identifier, matching the wire
// format dashboards already consume; RowID is purely a storage key and is
// used as the deterministic tie-break when two rows share a machine's newest
// timestamp.
type TelemetrySample struct {
	RowID     int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	MachineID int64     `gorm:"not null;index:idx_machine_ts,priority:1" json:"id"`
	Timestamp time.Time `gorm:"not null;index:idx_machine_ts,priority:2" json:"timestamp"`

	MotorTempC        float64 `json:"motor_temp_c"`
	VibrationRMS      float64 `gorm:"column:vibration_rms" json:"vibration_rms"`
	SpindleCurrentA   float64 `json:"spindle_current_a"`
	CoolantTempC      float64 `json:"coolant_temp_c"`
	CuttingForceN     float64 `json:"cutting_force_n"`
	PowerConsumptionW float64 `json:"power_consumption_w"`

	PredictedHealthScore       float64 `json:"predicted_health_score"`
	PredictedAnomaly           bool    `json:"predicted_anomaly"`
	AnomalyScore               float64 `json:"anomaly_score"`
	PredictedAnomalyType       string  `gorm:"size:64" json:"predicted_anomaly_type"`
	PredictedDaysToMaintenance float64 `json:"predicted_days_to_maintenance"`
}

// TableName keeps the historical table name.
func (TelemetrySample) TableName() string { return "machine" }
