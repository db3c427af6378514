// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/mrxserver/logger"
	"github.com/wfunc/mrxserver/session"
)

// 广播接口，由 room 包的同名接口引用
type Broadcaster interface {
	BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) error
	SendToPlayer(playerID string, msgID uint16, data []byte) error
}

// SessionBroadcaster 通过会话管理器把消息投递给玩家。
// 它从不回调房间，所以可以在房间锁内调用。
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{
		sessionManager: sessionManager,
	}
}

// BroadcastToPlayers sends to every connected player in playerIDs. A failed
// send is logged and skipped; the read loop of that connection will notice
// the broken socket and clean up.
func (b *SessionBroadcaster) BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.GetMany(playerIDs) {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnf("发送消息 %d 给玩家 %s 失败: %v", msgID, s.ID, err)
			continue
		}
	}
	return nil
}

func (b *SessionBroadcaster) SendToPlayer(playerID string, msgID uint16, data []byte) error {
	s, ok := b.sessionManager.Get(playerID)
	if !ok {
		return ErrPlayerOffline
	}
	return s.Send(msgID, data)
}
