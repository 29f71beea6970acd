package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"capyviz/src/datamodels"
)

const wsWriteTimeout = 5 * time.Second

type wsClient struct {
	conn *websocket.Conn
	// gorilla connections allow a single concurrent writer
	writeMu sync.Mutex
}

func (c *wsClient) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// WebsocketDatasetWriter pushes every dataset snapshot to all connected
// viewers. Viewers that cannot be written to are dropped.
type WebsocketDatasetWriter struct {
	clients map[string]*wsClient
	mu      sync.RWMutex
}

func NewWebsocketDatasetWriter() *WebsocketDatasetWriter {
	return &WebsocketDatasetWriter{
		clients: make(map[string]*wsClient),
	}
}

// AddClient registers conn and returns the id it is known by.
func (w *WebsocketDatasetWriter) AddClient(conn *websocket.Conn) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := uuid.NewString()
	w.clients[id] = &wsClient{conn: conn}
	return id
}

func (w *WebsocketDatasetWriter) RemoveClient(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.clients, id)
}

func (w *WebsocketDatasetWriter) ClientCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.clients)
}

// WriteTo sends v as JSON to a single client, serialized with broadcasts.
func (w *WebsocketDatasetWriter) WriteTo(id string, v any) error {
	w.mu.RLock()
	client, ok := w.clients[id]
	w.mu.RUnlock()
	if !ok {
		return fmt.Errorf("websocket client %s not registered", id)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.write(websocket.TextMessage, data)
}

func (w *WebsocketDatasetWriter) Write(ctx context.Context, ds *datamodels.AggregatedDataset) error {
	data, err := json.Marshal(datamodels.NewDatasetSnapshot(ds))
	if err != nil {
		return fmt.Errorf("failed to marshal dataset snapshot: %w", err)
	}

	w.mu.RLock()
	failed := []string{}
	for id, client := range w.clients {
		if err := client.write(websocket.TextMessage, data); err != nil {
			slog.Warn("Dropping websocket client", "client", id, "error", err)
			failed = append(failed, id)
		}
	}
	w.mu.RUnlock()

	if len(failed) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range failed {
		if client, ok := w.clients[id]; ok {
			client.conn.Close()
			delete(w.clients, id)
		}
	}
	return nil
}

func (w *WebsocketDatasetWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, client := range w.clients {
		client.conn.Close()
		delete(w.clients, id)
	}
	return nil
}
