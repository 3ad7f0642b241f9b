package sse

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID      string
	Subject string
	Events  chan Event
}

// Publisher delivers events to connected clients.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Hub manages the SSE clients of this process
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

// NewHub creates a new SSE Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.logger.Debug("sse client registered",
		zap.String("client_id", client.ID),
		zap.String("subject", client.Subject),
		zap.Int("total", len(h.clients)))
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		h.logger.Debug("sse client unregistered", zap.String("client_id", clientID), zap.Int("total", len(h.clients)))
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to all connected clients. Slow clients with a
// full buffer miss the event.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
			h.logger.Warn("sse client buffer full, skipping event", zap.String("client_id", client.ID))
		}
	}
}

// Publish implements Publisher for a single process.
func (h *Hub) Publish(_ context.Context, event Event) {
	h.Broadcast(event)
}

type changePayload struct {
	CaseID     string `json:"caseId,omitempty"`
	TaskID     string `json:"taskId,omitempty"`
	TemplateID string `json:"templateId,omitempty"`
	Action     string `json:"action"`
}

func newEvent(eventType string, payload changePayload) Event {
	data, _ := json.Marshal(payload)
	return Event{EventType: eventType, Data: string(data)}
}

// TaskUpdate 任务变更事件
func TaskUpdate(caseID, taskID, action string) Event {
	return newEvent("task_update", changePayload{CaseID: caseID, TaskID: taskID, Action: action})
}

// CaseUpdate 案例变更事件（创建、状态变化）
func CaseUpdate(caseID, action string) Event {
	return newEvent("case_update", changePayload{CaseID: caseID, Action: action})
}

// TemplateUpdate 模板变更事件（创建、发布、新版本）
func TemplateUpdate(templateID, action string) Event {
	return newEvent("template_update", changePayload{TemplateID: templateID, Action: action})
}
