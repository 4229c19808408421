package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Tier         string    `gorm:"not null"`
	CasesCount   int       `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type CaseModel struct {
	ID              string    `gorm:"primaryKey"`
	UserID          string    `gorm:"not null;index"`
	Title           string    `gorm:"not null"`
	CurrentRole     string    `gorm:"not null"`
	CurrentSalary   float64   `gorm:"not null"`
	TargetSalary    float64   `gorm:"not null"`
	CurrencyCode    string    `gorm:"not null"`
	Achievements    string    `gorm:"type:text"`
	NegotiationDate string
	Plan            datatypes.JSON
	CreatedAt       time.Time `gorm:"not null"`
}

type SessionModel struct {
	ID         string    `gorm:"primaryKey"`
	CaseID     string    `gorm:"not null;index"`
	Persona    string    `gorm:"not null"`
	Difficulty string    `gorm:"not null"`
	TurnCount  int       `gorm:"not null"`
	Completed  bool      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

type MessageModel struct {
	ID        string    `gorm:"primaryKey"`
	SessionID string    `gorm:"not null;index"`
	Role      string    `gorm:"not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

type ScoreModel struct {
	SessionID string         `gorm:"primaryKey"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}
