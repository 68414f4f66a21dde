package model

import "time"

// PushSubscription holds a browser push subscription, owned by the user who
// registered it.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey;size:512"`
	Username  string    `gorm:"index;size:64;not null"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// SubscriptionMachine maps a subscription endpoint to one machine the
// subscriber wants alerts for.
type SubscriptionMachine struct {
	Endpoint  string `gorm:"primaryKey;size:512"`
	MachineID int64  `gorm:"primaryKey"`
}
