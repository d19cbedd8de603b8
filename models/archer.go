package models

import "time"

// ArcherPosition is the shooting posture of an archer.
type ArcherPosition string

const (
	PositionZasha  ArcherPosition = "zasha"
	PositionRissha ArcherPosition = "rissha"
)

// Archer represents a registered archer. Accuracy is derived from the
// archer's recorded series and is never written by hand.
type Archer struct {
	ID        int            `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Position  ArcherPosition `json:"position" db:"position"`
	Accuracy  float64        `json:"accuracy" db:"accuracy"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}
