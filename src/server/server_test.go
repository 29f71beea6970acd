package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"capyviz/src/datamodels"
	"capyviz/src/metrics"
	"capyviz/src/refresher"
)

func GetCapybotLogPath() string {
	_, thisFile, _, _ := runtime.Caller(0)
	thisDir := filepath.Dir(thisFile)
	return thisDir + "/../../test/data/capybot.log"
}

type ServerTestSuite struct {
	suite.Suite
	wsWriter  *metrics.WebsocketDatasetWriter
	refresher *refresher.Refresher
	httpSrv   *httptest.Server
}

func (s *ServerTestSuite) SetupTest() {
	s.wsWriter = metrics.NewWebsocketDatasetWriter()
	r, err := refresher.NewRefresherBuilder().
		WithPath(GetCapybotLogPath()).
		WithWriter(s.wsWriter).
		Build()
	s.Require().NoError(err)
	s.refresher = r

	srv := NewServer(datamodels.ServerConfig{Port: "0"}).
		WithLog(GetCapybotLogPath(), nil).
		WithDatasetWriter(s.wsWriter).
		WithRefresher(r)
	s.httpSrv = httptest.NewServer(srv.Handler())
}

func (s *ServerTestSuite) TearDownTest() {
	s.wsWriter.Close()
	s.httpSrv.Close()
}

func (s *ServerTestSuite) get(path string) (*http.Response, []byte) {
	resp, err := http.Get(s.httpSrv.URL + path)
	s.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, body
}

func (s *ServerTestSuite) dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.httpSrv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { conn.Close() })
	return conn
}

func (s *ServerTestSuite) readResponse(conn *websocket.Conn) WebSocketResponse {
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var response WebSocketResponse
	s.Require().NoError(conn.ReadJSON(&response))
	return response
}

func (s *ServerTestSuite) TestHealth() {
	resp, body := s.get("/health")
	s.Equal(http.StatusOK, resp.StatusCode)

	var health HealthResponse
	s.Require().NoError(json.Unmarshal(body, &health))
	s.Equal("Capyviz is healthy", health.Status)
	s.Contains(health.System, "num_goroutine")
	s.Contains(health.System, "memory_heap_inuse")
}

func (s *ServerTestSuite) TestVersion() {
	resp, body := s.get("/version")
	s.Equal(http.StatusOK, resp.StatusCode)
	var info map[string]any
	s.Require().NoError(json.Unmarshal(body, &info))
	s.Contains(info, "version")
}

func (s *ServerTestSuite) TestDataset() {
	resp, body := s.get("/dataset")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("application/json", resp.Header.Get("Content-Type"))

	var ds datamodels.AggregatedDataset
	s.Require().NoError(json.Unmarshal(body, &ds))
	s.Equal(2, ds.Prices.Len())
	pool, ok := ds.RammPoolStates.Get("ramm_sui_usdc")
	s.Require().True(ok)
	s.Equal(2, pool.Len())
}

func (s *ServerTestSuite) TestDatasetKeepsLargeBalances() {
	path := filepath.Join(s.T().TempDir(), "capybot.log")
	s.Require().NoError(os.WriteFile(path, []byte(
		`{"msg":"ramm pool state","ramm_id":"R1","time":1000,"data":{"SUI":12345678901234567,"USDC":9007199254740993}}`+"\n"), 0644))

	httpSrv := httptest.NewServer(NewServer(datamodels.ServerConfig{Port: "0"}).WithLog(path, nil).Handler())
	defer httpSrv.Close()

	resp, err := http.Get(httpSrv.URL + "/dataset")
	s.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(body), `"data":[{"SUI":12345678901234567,"USDC":9007199254740993}]`)
}

func (s *ServerTestSuite) TestSummary() {
	resp, body := s.get("/summary")
	s.Equal(http.StatusOK, resp.StatusCode)

	var summary SummaryResponse
	s.Require().NoError(json.Unmarshal(body, &summary))
	s.Equal(2, summary.Summary.Strategies["arb_sui_usdc"].StatusCount)
	s.Equal(17, summary.Ingest.LinesRead)
	s.Equal(datamodels.DefaultArbitrageLimit, summary.Summary.Analysis.ArbitrageLimit)
}

func (s *ServerTestSuite) TestDatasetRejectsPost() {
	resp, err := http.Post(s.httpSrv.URL+"/dataset", "application/json", nil)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
}

func (s *ServerTestSuite) TestSwagger() {
	resp, _ := s.get("/swagger/index.html")
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *ServerTestSuite) TestWebSocketCommands() {
	conn := s.dial()
	welcome := s.readResponse(conn)
	s.True(welcome.Success)

	s.Require().NoError(conn.WriteJSON(map[string]any{
		"message_type": "command",
		"message":      map[string]string{"action": "snapshot"},
	}))
	snapshot := s.readResponse(conn)
	s.True(snapshot.Success)
	data, ok := snapshot.Data.(map[string]any)
	s.Require().True(ok)
	s.Contains(data, "dataset")

	s.Require().NoError(conn.WriteJSON(map[string]any{
		"message_type": "command",
		"message":      map[string]string{"action": "refresh"},
	}))
	s.True(s.readResponse(conn).Success)

	s.Require().NoError(conn.WriteJSON(map[string]any{
		"message_type": "command",
		"message":      map[string]string{"action": "explode"},
	}))
	s.False(s.readResponse(conn).Success)

	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	s.Equal("invalid message", s.readResponse(conn).Error)
}

func (s *ServerTestSuite) TestWebSocketReceivesSnapshots() {
	_, err := s.refresher.RefreshOnce(context.Background())
	s.Require().NoError(err)

	conn := s.dial()
	s.True(s.readResponse(conn).Success)

	// initial snapshot from the latest refresh
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snapshot datamodels.DatasetSnapshot
	s.Require().NoError(conn.ReadJSON(&snapshot))
	s.Equal(2, snapshot.Dataset.Strategies.Len())

	// and one more for every refresh after that
	_, err = s.refresher.RefreshOnce(context.Background())
	s.Require().NoError(err)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	s.Require().NoError(conn.ReadJSON(&snapshot))
	s.Equal(2, snapshot.Dataset.Prices.Len())
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestDatasetErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"missing log", filepath.Join(t.TempDir(), "missing.log"), http.StatusNotFound},
		{"directory", t.TempDir(), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(datamodels.ServerConfig{Port: "0"}).WithLog(tt.path, nil)
			recorder := httptest.NewRecorder()
			srv.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/dataset", nil))
			assert.Equal(t, tt.status, recorder.Code)
		})
	}
}

func TestRefreshCommandWithoutRefresher(t *testing.T) {
	srv := NewServer(datamodels.ServerConfig{Port: "0"}).WithLog(GetCapybotLogPath(), nil)
	response := srv.handleCommand(context.Background(), []byte(`{"action":"refresh"}`))
	assert.False(t, response.Success)
	assert.Equal(t, "refresh is disabled", response.Error)
}

func TestStartRequiresWriter(t *testing.T) {
	srv := NewServer(datamodels.ServerConfig{Port: "0"}).WithLog(GetCapybotLogPath(), nil)
	err := srv.Start(context.Background())
	require.Error(t, err)
}
