// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/mrxserver/models"
)

// 两种实现共用同一张表，列名与 GORM 迁移结果保持一致
const createGameRecords = `
    CREATE TABLE IF NOT EXISTS game_records (
        id BIGSERIAL PRIMARY KEY,
        created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
        updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
        deleted_at TIMESTAMPTZ,
        room_code TEXT NOT NULL,
        winner TEXT NOT NULL,
        turn_number BIGINT DEFAULT 0,
        players JSONB NOT NULL,
        started_at TIMESTAMPTZ,
        finished_at TIMESTAMPTZ
    );
    CREATE INDEX IF NOT EXISTS idx_game_records_room_code ON game_records(room_code);
    CREATE INDEX IF NOT EXISTS idx_game_records_finished_at ON game_records(finished_at);
`

const playerStatsQuery = `
    SELECT
        COUNT(*),
        COALESCE(SUM(CASE WHEN p->>'outcome' = 'win' THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN p->>'outcome' = 'lose' THEN 1 ELSE 0 END), 0)
    FROM game_records, jsonb_array_elements(players) AS p
    WHERE p->>'id' = $1 AND deleted_at IS NULL`

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(dsn string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if _, err := db.ExecContext(ctx, createGameRecords); err != nil {
		db.Close()
		return nil, fmt.Errorf("create game_records: %w", err)
	}

	return &PostgreSQL{db: db}, nil
}

// SaveGameRecord 保存游戏记录
func (p *PostgreSQL) SaveGameRecord(ctx context.Context, record *models.GameRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO game_records (room_code, winner, turn_number, players, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err = p.db.ExecContext(ctx, query,
		record.RoomCode,
		string(record.Winner),
		record.TurnNumber,
		players,
		record.StartedAt,
		record.FinishedAt)
	return err
}

// RecentGameRecords 按结束时间倒序返回最近的记录
func (p *PostgreSQL) RecentGameRecords(ctx context.Context, limit int) ([]models.GameRecord, error) {
	query := `
        SELECT room_code, winner, turn_number, players, started_at, finished_at
        FROM game_records
        WHERE deleted_at IS NULL
        ORDER BY finished_at DESC
        LIMIT $1
    `
	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.GameRecord, 0, limit)
	for rows.Next() {
		var (
			r       models.GameRecord
			winner  string
			players []byte
		)
		if err := rows.Scan(&r.RoomCode, &winner, &r.TurnNumber, &players, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		r.Winner = models.Winner(winner)
		if err := json.Unmarshal(players, &r.Players); err != nil {
			return nil, fmt.Errorf("decode players of %s: %w", r.RoomCode, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// PlayerStats 统计玩家的胜负场次
func (p *PostgreSQL) PlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error) {
	stats := models.PlayerStats{PlayerID: playerID}
	err := p.db.QueryRowContext(ctx, playerStatsQuery, playerID).
		Scan(&stats.Games, &stats.Wins, &stats.Losses)
	return stats, err
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
