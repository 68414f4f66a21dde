package model

import "time"

// Ownership pairs a username with one machine it may access. The composite
// unique index keeps a pairing from being recorded twice, so listings never
// multiply.
type Ownership struct {
	ID        int64  `gorm:"primaryKey"`
	Username  string `gorm:"size:64;not null;uniqueIndex:idx_factory_user_machine"`
	MachineID int64  `gorm:"not null;uniqueIndex:idx_factory_user_machine"`
	CreatedAt time.Time
}

// TableName keeps the historical table name.
func (Ownership) TableName() string { return "factory" }
