// network/connection.go
package network

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Connection interface {
	Send(msgID uint16, data []byte) error
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
	ReadPacket() (*Packet, error)
}

// DefaultWriteTimeout bounds a single frame write. Rooms broadcast under
// their lock, so a peer that stops reading must not block the room.
const DefaultWriteTimeout = 10 * time.Second

type WSConnection struct {
	conn         *websocket.Conn
	sendMutex    sync.Mutex
	heartbeat    time.Duration
	writeTimeout time.Duration
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	// 帧长度字段最多描述 MaxPayload 字节
	conn.SetReadLimit(headerSize + MaxPayload)
	return &WSConnection{conn: conn, writeTimeout: DefaultWriteTimeout}
}

// SetWriteTimeout changes the per-frame write deadline; zero or less keeps the default.
func (c *WSConnection) SetWriteTimeout(d time.Duration) {
	if d > 0 {
		c.writeTimeout = d
	}
}

func (c *WSConnection) Send(msgID uint16, data []byte) error {
	packet, err := EncodePacket(msgID, data)
	if err != nil {
		return err
	}

	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, packet); err != nil {
		// 写失败后连接不可再用，关闭后读循环退出并清理会话
		c.conn.Close()
		return err
	}
	return nil
}

// ReadPacket 阻塞读取一帧；设置了心跳时每收到一帧就顺延读超时
func (c *WSConnection) ReadPacket() (*Packet, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if c.heartbeat > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	}
	return DecodePacket(data)
}

func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.heartbeat = interval
	c.conn.SetReadDeadline(time.Now().Add(interval * 2))
}

func (c *WSConnection) Close() error {
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
