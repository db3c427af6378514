package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/mrxserver/models"
	"github.com/wfunc/mrxserver/network"
)

type client struct {
	conn     *websocket.Conn
	mutex    sync.Mutex
	roomCode string
}

// send formats and sends a message to the WebSocket server.
func (c *client) send(msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, packet)
}

func (c *client) code() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.roomCode
}

func (c *client) setCode(code string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.roomCode = code
}

// readLoop prints every packet and remembers the room code from roomState.
func (c *client) readLoop(done chan<- struct{}) {
	defer close(done)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			log.Println("Read error:", err)
			return
		}
		packet, err := network.DecodePacket(message)
		if err != nil {
			log.Printf("Received invalid packet of size %d: %v", len(message), err)
			continue
		}
		if packet.MsgID == network.MsgTypeRoomState {
			var room models.Room
			if err := json.Unmarshal(packet.Data, &room); err == nil && room.Code != "" {
				c.setCode(room.Code)
			}
		}
		log.Printf("<- %s: %s", network.MsgName(packet.MsgID), string(packet.Data))
	}
}

// command turns one stdin line into a request.
func (c *client) command(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	room := c.code()

	switch fields[0] {
	case "join":
		if len(fields) < 2 {
			log.Println("usage: join <code> [name]")
			return nil
		}
		req := network.JoinRoomRequest{RoomCode: strings.ToUpper(fields[1])}
		if len(fields) > 2 {
			req.PlayerName = fields[2]
		}
		return c.send(network.MsgTypeJoinRoom, req)
	case "create":
		req := network.CreateRoomRequest{}
		if len(fields) > 1 {
			req.PlayerName = fields[1]
		}
		return c.send(network.MsgTypeCreateRoom, req)
	case "start":
		return c.send(network.MsgTypeStartGame, network.RoomRequest{RoomCode: room})
	case "place":
		if len(fields) < 2 {
			log.Println("usage: place <node>")
			return nil
		}
		return c.send(network.MsgTypePlacePlayer, network.PlacePlayerRequest{RoomCode: room, NodeID: fields[1]})
	case "move":
		if len(fields) < 3 {
			log.Println("usage: move <node> <rickshaw|bus|metro|train>")
			return nil
		}
		return c.send(network.MsgTypeMakeMove, network.MakeMoveRequest{
			RoomCode:      room,
			NodeID:        fields[1],
			TransportType: models.TransportType(fields[2]),
		})
	case "moves":
		return c.send(network.MsgTypeValidMoves, network.RoomRequest{RoomCode: room})
	case "map":
		return c.send(network.MsgTypeGetMap, struct{}{})
	case "leave":
		err := c.send(network.MsgTypeLeaveRoom, network.RoomRequest{RoomCode: room})
		c.setCode("")
		return err
	default:
		log.Println("commands: join <code> [name] | create [name] | start | place <node> | move <node> <transport> | moves | map | leave")
	}
	return nil
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	roomCode := flag.String("room", "", "room code to join, empty creates a new room")
	name := flag.String("name", "", "player name")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	c := &client{conn: conn}
	done := make(chan struct{})
	go c.readLoop(done)

	if *roomCode != "" {
		err = c.send(network.MsgTypeJoinRoom, network.JoinRoomRequest{RoomCode: strings.ToUpper(*roomCode), PlayerName: *name})
	} else {
		err = c.send(network.MsgTypeCreateRoom, network.CreateRoomRequest{PlayerName: *name})
	}
	if err != nil {
		log.Println("Write error:", err)
		return
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	heartbeat := time.NewTicker(10 * time.Second)
	defer heartbeat.Stop()

	log.Println("Client started. Type 'help' for commands.")
	for {
		select {
		case <-done:
			return
		case <-heartbeat.C:
			if err := c.send(network.MsgTypeHeartbeat, struct{}{}); err != nil {
				log.Println("Write error:", err)
				return
			}
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := c.command(line); err != nil {
				log.Println("Write error:", err)
				return
			}
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			c.mutex.Lock()
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.mutex.Unlock()
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
