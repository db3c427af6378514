package network

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// 客户端 -> 服务器
const (
	MsgTypeHeartbeat   uint16 = 1
	MsgTypeJoinRoom    uint16 = 101
	MsgTypeLeaveRoom   uint16 = 102
	MsgTypeCreateRoom  uint16 = 103
	MsgTypeStartGame   uint16 = 201
	MsgTypePlacePlayer uint16 = 202
	MsgTypeMakeMove    uint16 = 203
	MsgTypeValidMoves  uint16 = 204
	MsgTypeGetMap      uint16 = 205
)

// 服务器 -> 客户端
const (
	MsgTypeRoomState         uint16 = 301
	MsgTypeError             uint16 = 302
	MsgTypeMrXMoved          uint16 = 303
	MsgTypeMrXLocationReveal uint16 = 304
	MsgTypeGameEnded         uint16 = 305
)

var msgNames = map[uint16]string{
	MsgTypeHeartbeat:         "heartbeat",
	MsgTypeJoinRoom:          "joinRoom",
	MsgTypeLeaveRoom:         "leaveRoom",
	MsgTypeCreateRoom:        "createRoom",
	MsgTypeStartGame:         "startGame",
	MsgTypePlacePlayer:       "placePlayer",
	MsgTypeMakeMove:          "makeMove",
	MsgTypeValidMoves:        "validMoves",
	MsgTypeGetMap:            "getMap",
	MsgTypeRoomState:         "roomState",
	MsgTypeError:             "error",
	MsgTypeMrXMoved:          "mrxMoved",
	MsgTypeMrXLocationReveal: "mrxLocationReveal",
	MsgTypeGameEnded:         "gameEnded",
}

// MsgName returns the wire name of msgID, or "unknown".
func MsgName(msgID uint16) string {
	if name, ok := msgNames[msgID]; ok {
		return name
	}
	return "unknown"
}

const headerSize = 4

// MaxPayload is the largest payload a frame length can describe.
const MaxPayload = 1<<16 - 1

var ErrPayloadTooLarge = errors.New("payload too large")

type Packet struct {
	MsgID  uint16
	Data   []byte
	Length uint16
}

// EncodePacket 封包: 2字节消息ID + 2字节数据长度 + 数据
func EncodePacket(msgID uint16, data []byte) ([]byte, error) {
	if len(data) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(data))
	}
	packet := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[headerSize:], data)
	return packet, nil
}

// DecodePacket 解包，数据不足时返回 io.ErrShortBuffer，多余字节忽略
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) < headerSize {
		return nil, io.ErrShortBuffer
	}

	msgID := binary.BigEndian.Uint16(data[0:2])
	length := binary.BigEndian.Uint16(data[2:4])

	if len(data) < headerSize+int(length) {
		return nil, io.ErrShortBuffer
	}

	return &Packet{
		MsgID:  msgID,
		Length: length,
		Data:   data[headerSize : headerSize+int(length)],
	}, nil
}
