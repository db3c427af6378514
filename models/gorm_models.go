// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	RoomCode   string       `gorm:"index;not null"`
	Winner     string       `gorm:"not null"`
	TurnNumber int          `gorm:"default:0"`
	Players    []PlayerInfo `gorm:"serializer:json;type:jsonb;not null"`
	StartedAt  time.Time
	FinishedAt time.Time `gorm:"index"`
}

// TableName keeps the table shared with the database/sql implementation.
func (GormGameRecord) TableName() string {
	return "game_records"
}

// NewGormGameRecord converts a record into its gorm row.
func NewGormGameRecord(r *GameRecord) *GormGameRecord {
	return &GormGameRecord{
		RoomCode:   r.RoomCode,
		Winner:     string(r.Winner),
		TurnNumber: r.TurnNumber,
		Players:    r.Players,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

// Record converts the row back into a GameRecord.
func (g *GormGameRecord) Record() GameRecord {
	return GameRecord{
		RoomCode:   g.RoomCode,
		Winner:     Winner(g.Winner),
		TurnNumber: g.TurnNumber,
		Players:    g.Players,
		StartedAt:  g.StartedAt,
		FinishedAt: g.FinishedAt,
	}
}
