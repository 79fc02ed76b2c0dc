package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fazpramim/portal/internal/goroutine"
)

// Envelope формат сообщения для браузера: "type" имя события, "data" полезная нагрузка.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(Envelope{Type: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}
	return raw, nil
}

// Hub учитывает WebSocket подключения по сессиям портала.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
}

// message отправка события или закрытие подключений сессии.
// Обе операции идут через один канал, чтобы закрытие не обгоняло событие.
type message struct {
	sessionID string
	payload   []byte
	close     bool
}

// NewHub создаёт новый хаб. Цикл обработки запускает Run.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		done:       make(chan struct{}),
	}
}

// Run главный цикл хаба, завершается с отменой ctx.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			if msg.close {
				h.closeClients(msg.sessionID)
				continue
			}
			h.send(msg.sessionID, msg.payload)
		}
	}
}

// Register добавляет клиента. После остановки хаба ничего не делает.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendToSession отправляет событие во все подключения сессии.
func (h *Hub) SendToSession(sessionID, event string, data any) error {
	raw, err := encode(event, data)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- message{sessionID: sessionID, payload: raw}:
	case <-h.done:
	}
	return nil
}

// CloseSession закрывает все подключения сессии, например при выходе.
// Отправленные ранее события успевают уйти клиенту.
func (h *Hub) CloseSession(sessionID string) {
	select {
	case h.broadcast <- message{sessionID: sessionID, close: true}:
	case <-h.done:
		for _, c := range h.snapshot(sessionID) {
			c.Close()
		}
	}
}

func (h *Hub) snapshot(sessionID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.clients[sessionID]))
	for c := range h.clients[sessionID] {
		clients = append(clients, c)
	}
	return clients
}

// closeClients вызывается из Run: Close делает Unregister, поэтому в отдельной горутине.
func (h *Hub) closeClients(sessionID string) {
	for _, c := range h.snapshot(sessionID) {
		goroutine.SafeGo(c.Close)
	}
}

// Count число подключений сессии.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.sessionID]; !ok {
		h.clients[client.sessionID] = make(map[*Client]struct{})
	}
	h.clients[client.sessionID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.sessionID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.sessionID)
		}
	}
}

func (h *Hub) send(sessionID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[sessionID] {
		if !client.enqueue(payload) {
			// медленный клиент, Close вызывает Unregister и не должен блокировать цикл
			goroutine.SafeGo(client.Close)
		}
	}
}
