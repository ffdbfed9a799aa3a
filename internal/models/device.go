package models

import (
	"time"

	"github.com/google/uuid"
)

type DeviceStatus string

const (
	DevicePending   DeviceStatus = "pending"
	DeviceActivated DeviceStatus = "activated"
)

// Component describes one hardware part of a registered device.
type Component struct {
	Type string `json:"type"`
	Spec string `json:"spec"`
}

// Device is created at manufacture time in pending status and moves to
// activated exactly once, when its label token is redeemed. The raw serial
// is never stored; only its salted hash.
type Device struct {
	ID          uuid.UUID    `json:"id"`
	SerialHash  string       `json:"serial_hash"`
	DeviceType  string       `json:"device_type"`
	Status      DeviceStatus `json:"status"`
	Components  []Component  `json:"components"`
	ActivatedAt *time.Time   `json:"activated_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// DeviceAction is one row of the append-only per-device audit log.
type DeviceAction struct {
	ID         uuid.UUID         `json:"id"`
	DeviceID   uuid.UUID         `json:"device_id"`
	ActionType string            `json:"action_type"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
