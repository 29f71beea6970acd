package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capyviz/src/datamodels"
)

// newWsPair returns a server side connection registered with writer and the
// matching client connection.
func newWsPair(t *testing.T, writer *WebsocketDatasetWriter) (string, *websocket.Conn) {
	t.Helper()
	ids := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ids <- writer.AddClient(conn)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case id := <-ids:
		return id, client
	case <-time.After(2 * time.Second):
		t.Fatal("websocket client was not registered")
		return "", nil
	}
}

func TestWebsocketDatasetWriterBroadcast(t *testing.T) {
	writer := NewWebsocketDatasetWriter()
	defer writer.Close()
	_, first := newWsPair(t, writer)
	_, second := newWsPair(t, writer)
	assert.Equal(t, 2, writer.ClientCount())

	require.NoError(t, writer.Write(context.Background(), sampleDataset(t)))

	for _, client := range []*websocket.Conn{first, second} {
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		var snapshot datamodels.DatasetSnapshot
		require.NoError(t, client.ReadJSON(&snapshot))
		_, ok := snapshot.Dataset.RammPoolStates.Get("R1")
		assert.True(t, ok)
	}
}

func TestWebsocketDatasetWriterDropsBrokenClients(t *testing.T) {
	writer := NewWebsocketDatasetWriter()
	defer writer.Close()
	id, _ := newWsPair(t, writer)

	writer.mu.RLock()
	writer.clients[id].conn.Close()
	writer.mu.RUnlock()

	assert.NoError(t, writer.Write(context.Background(), datamodels.NewAggregatedDataset()))
	assert.Equal(t, 0, writer.ClientCount())
}

func TestWebsocketDatasetWriterWriteTo(t *testing.T) {
	writer := NewWebsocketDatasetWriter()
	defer writer.Close()
	id, client := newWsPair(t, writer)

	require.NoError(t, writer.WriteTo(id, map[string]string{"hello": "viewer"}))
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]string
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, "viewer", got["hello"])

	writer.RemoveClient(id)
	assert.Error(t, writer.WriteTo(id, "gone"))
}
