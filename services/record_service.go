// services/record_service.go
package services

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/mrxserver/logger"
	"github.com/wfunc/mrxserver/models"
	"github.com/wfunc/mrxserver/persistence"
)

const (
	saveTimeout   = 5 * time.Second
	defaultRecent = 20
	maxRecent     = 100
)

// RecordService 保存已结束的对局并提供查询
type RecordService struct {
	db     persistence.Database
	wg     sync.WaitGroup
	now    func() time.Time
	mutex  sync.Mutex
	closed bool
}

func NewRecordService(db persistence.Database) *RecordService {
	return &RecordService{db: db, now: time.Now}
}

// BuildRecord turns a finished room snapshot into a game record. roster is
// the seating at game start, so players who left mid-game are still counted;
// an empty roster falls back to the players present at the end.
func BuildRecord(game models.Room, roster []models.Player, startedAt, finishedAt time.Time) *models.GameRecord {
	if len(roster) == 0 {
		for _, p := range game.Players {
			roster = append(roster, *p)
		}
	}
	record := &models.GameRecord{
		RoomCode:   game.Code,
		Winner:     game.Winner,
		TurnNumber: game.TurnNumber,
		Players:    make([]models.PlayerInfo, 0, len(roster)),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	for _, p := range roster {
		record.Players = append(record.Players, models.PlayerInfo{
			ID:      p.ID,
			Name:    p.Name,
			Role:    p.Role,
			Outcome: outcome(game.Winner, p.Role),
		})
	}
	return record
}

func outcome(winner models.Winner, role models.Role) string {
	switch {
	case winner == models.WinnerMrX && role == models.RoleMrX,
		winner == models.WinnerDetectives && role == models.RoleDetective:
		return models.OutcomeWin
	case winner == models.WinnerMrX, winner == models.WinnerDetectives:
		return models.OutcomeLose
	}
	return models.OutcomeNone
}

// Record 异步保存，调用方（房间锁内）不会被数据库阻塞。Close 之后的记录被丢弃。
func (s *RecordService) Record(game models.Room, roster []models.Player, startedAt time.Time) {
	record := BuildRecord(game, roster, startedAt, s.now())

	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		logger.Log.Warnf("记录服务已关闭，丢弃房间 %s 的对局记录", record.RoomCode)
		return
	}
	s.wg.Add(1)
	s.mutex.Unlock()

	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		if err := s.db.SaveGameRecord(ctx, record); err != nil {
			logger.Log.Errorf("保存房间 %s 对局记录失败: %v", record.RoomCode, err)
			return
		}
		logger.Log.Infof("房间 %s 对局记录已保存，胜利方: %s", record.RoomCode, record.Winner)
	}()
}

// Wait blocks until pending saves are done.
func (s *RecordService) Wait() {
	s.wg.Wait()
}

// Close refuses further records and waits for pending saves, after which the
// database may be closed.
func (s *RecordService) Close() {
	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()
	s.wg.Wait()
}

// Recent returns up to limit records, newest first. limit is clamped to [1, 100];
// zero or less means the default of 20.
func (s *RecordService) Recent(ctx context.Context, limit int) ([]models.GameRecord, error) {
	if limit <= 0 {
		limit = defaultRecent
	}
	if limit > maxRecent {
		limit = maxRecent
	}
	return s.db.RecentGameRecords(ctx, limit)
}

// PlayerStats 获取玩家战绩
func (s *RecordService) PlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error) {
	return s.db.PlayerStats(ctx, playerID)
}
