package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bizboost_v1_202608/pkg/logger"
)

// ==================== 实时推送中心 ====================

// Event 推送给前端的事件摘要
type Event struct {
	Type       string      `json:"type"`
	BusinessID int64       `json:"business_id"`
	Data       interface{} `json:"data"`
}

// 事件类型
const (
	EventPostPublished = "post.published"
	EventPostFailed    = "post.failed"
	EventSaleCreated   = "sale.created"
	EventTokenExpired  = "integration.token_expired"
)

// Client 一条 websocket 连接
type Client struct {
	ID         string
	BusinessID int64
	conn       *websocket.Conn
	send       chan []byte
	hub        *Hub
}

// Hub 按商家分组的连接管理器
type Hub struct {
	mu sync.RWMutex
	// businessID -> clientID -> client
	clients map[int64]map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
}

type broadcastMsg struct {
	businessID int64
	excludeID  string
	payload    []byte
}

// NewHub 创建推送中心
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg, 64),
	}
}

// Run 事件循环，需在独立 goroutine 里启动
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.BusinessID] == nil {
				h.clients[client.BusinessID] = make(map[string]*Client)
			}
			h.clients[client.BusinessID][client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if group, ok := h.clients[client.BusinessID]; ok {
				if _, ok := group[client.ID]; ok {
					delete(group, client.ID)
					close(client.send)
					if len(group) == 0 {
						delete(h.clients, client.BusinessID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			// 读锁下只投递，死连接先记下来，换写锁再驱逐
			var dead []string
			h.mu.RLock()
			for id, client := range h.clients[msg.businessID] {
				// 跳过事件发起方自己的连接
				if id == msg.excludeID {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// 发送缓冲满了，视为死连接
					dead = append(dead, id)
				}
			}
			h.mu.RUnlock()

			if len(dead) > 0 {
				h.mu.Lock()
				group := h.clients[msg.businessID]
				for _, id := range dead {
					if client, ok := group[id]; ok {
						delete(group, id)
						close(client.send)
					}
				}
				if len(group) == 0 {
					delete(h.clients, msg.businessID)
				}
				h.mu.Unlock()
			}
		}
	}
}

// Notify 向商家频道广播事件，excludeID 为空表示广播给所有连接
func (h *Hub) Notify(businessID int64, excludeID string, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{
		Type:       eventType,
		BusinessID: businessID,
		Data:       data,
	})
	if err != nil {
		logger.L().Warn("事件序列化失败", zap.String("type", eventType), zap.Error(err))
		return
	}
	h.broadcast <- broadcastMsg{
		businessID: businessID,
		excludeID:  excludeID,
		payload:    payload,
	}
}

// ConnectionCount 商家当前在线连接数
func (h *Hub) ConnectionCount(businessID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[businessID])
}

// ==================== 连接升级 ====================

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域交给网关层处理
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS 升级 HTTP 连接并挂入 Hub
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, clientID string, businessID int64) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:         clientID,
		BusinessID: businessID,
		conn:       conn,
		send:       make(chan []byte, 16),
		hub:        h,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
	return nil
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	// send 通道被关闭，下发关闭帧
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		// 客户端只读，收到任何错误即断开
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
