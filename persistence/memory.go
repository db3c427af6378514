package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/wfunc/mrxserver/models"
)

// Memory 进程内存储，默认驱动，进程退出即丢失
type Memory struct {
	records []models.GameRecord
	mutex   sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveGameRecord(ctx context.Context, record *models.GameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := *record
	r.Players = append([]models.PlayerInfo(nil), record.Players...)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *Memory) RecentGameRecords(ctx context.Context, limit int) ([]models.GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	out := make([]models.GameRecord, len(m.records))
	copy(out, m.records)
	m.mutex.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) PlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error) {
	stats := models.PlayerStats{PlayerID: playerID}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, r := range m.records {
		for _, p := range r.Players {
			if p.ID != playerID {
				continue
			}
			stats.Games++
			switch p.Outcome {
			case models.OutcomeWin:
				stats.Wins++
			case models.OutcomeLose:
				stats.Losses++
			}
		}
	}
	return stats, nil
}

func (m *Memory) Close() error {
	return nil
}
