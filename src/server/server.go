package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"capyviz/src/config"
	"capyviz/src/datamodels"
	"capyviz/src/ingest"
	"capyviz/src/metrics"
	"capyviz/src/refresher"
	"capyviz/src/utils/errors"
)

type Server struct {
	addr      string
	endpoints datamodels.ServerConfig
	upgrader  websocket.Upgrader
	httpMux   *http.ServeMux
	routes    sync.Once

	logPath   string
	ingester  *ingest.LogIngester
	analysis  datamodels.AnalysisConfig
	wsWriter  *metrics.WebsocketDatasetWriter
	refresher *refresher.Refresher
}

func NewServer(serverConfig datamodels.ServerConfig) *Server {
	serverConfig.HealthEndpoint = endpointOr(serverConfig.HealthEndpoint, "/health")
	serverConfig.DatasetEndpoint = endpointOr(serverConfig.DatasetEndpoint, "/dataset")
	serverConfig.SummaryEndpoint = endpointOr(serverConfig.SummaryEndpoint, "/summary")
	serverConfig.WsEndpoint = endpointOr(serverConfig.WsEndpoint, "/ws")
	return &Server{
		addr:      ":" + serverConfig.Port,
		endpoints: serverConfig,
		upgrader:  config.NewDefaultWSConfig().Upgrader,
		httpMux:   http.NewServeMux(),
		ingester:  ingest.NewLogIngesterBuilder().Build(),
		analysis:  datamodels.NewDefaultAnalysisConfig(),
	}
}

func endpointOr(endpoint, fallback string) string {
	if endpoint == "" {
		return fallback
	}
	return endpoint
}

func (s *Server) WithWSConfig(wsConfig datamodels.WSConfig) *Server {
	s.upgrader = wsConfig.Upgrader
	return s
}

// WithLog sets the log served by the dataset and summary endpoints.
func (s *Server) WithLog(path string, ingester *ingest.LogIngester) *Server {
	s.logPath = path
	if ingester != nil {
		s.ingester = ingester
	}
	return s
}

func (s *Server) WithAnalysisConfig(analysis datamodels.AnalysisConfig) *Server {
	s.analysis = analysis
	return s
}

func (s *Server) WithDatasetWriter(wsWriter *metrics.WebsocketDatasetWriter) *Server {
	s.wsWriter = wsWriter
	return s
}

func (s *Server) WithRefresher(r *refresher.Refresher) *Server {
	s.refresher = r
	return s
}

// Handler returns the mux with every route registered.
func (s *Server) Handler() http.Handler {
	s.routes.Do(func() {
		s.RegisterHealthCheck()
		s.RegisterVersion()
		s.RegisterDataset()
		s.RegisterSummary()
		s.RegisterWebSocketHandler()
		s.RegisterSwagger()
	})
	return s.httpMux
}

func (s *Server) Start(ctx context.Context) error {
	if s.wsWriter == nil {
		return errors.New("websocket dataset writer is nil")
	}
	if s.logPath == "" {
		return errors.New("log path is empty")
	}
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down server", "error", err)
		}
	}()

	slog.Info(fmt.Sprintf("Starting server on %s", s.addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.wsWriter == nil {
		http.Error(w, "live updates are disabled", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	clientId := s.wsWriter.AddClient(conn)
	defer s.wsWriter.RemoveClient(clientId)

	slog.Info("Client connected", "client", clientId)

	welcomeMessage := WebSocketResponse{
		Success: true,
		Data:    "Welcome to the Capyviz WebSocket server",
	}
	if err := s.wsWriter.WriteTo(clientId, welcomeMessage); err != nil {
		slog.Error("Failed to send welcome message", "error", err)
		return
	}
	// new viewers get the current view right away
	if s.refresher != nil {
		if ds, _, _ := s.refresher.Latest(); ds != nil {
			if err := s.wsWriter.WriteTo(clientId, datamodels.NewDatasetSnapshot(ds)); err != nil {
				slog.Error("Failed to send initial snapshot", "error", err)
				return
			}
		}
	}

	for {
		mType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("Error reading message", "client", clientId, "error", err)
			}
			break
		}
		if mType != websocket.TextMessage {
			slog.Debug("Ignoring non-text message", "client", clientId, "type", mType)
			continue
		}

		var wsMessage WebSocketMessage
		if err := json.Unmarshal(msg, &wsMessage); err != nil {
			slog.Warn("Failed to unmarshal message", "error", err)
			if err := s.wsWriter.WriteTo(clientId, WebSocketResponse{Error: "invalid message"}); err != nil {
				return
			}
			continue
		}

		var response WebSocketResponse
		switch wsMessage.MessageType {
		case Command:
			slog.Info("Server websocket received command message", "client", clientId)
			response = s.handleCommand(r.Context(), wsMessage.Message)
		default:
			response = WebSocketResponse{Error: fmt.Sprintf("unknown message type %q", wsMessage.MessageType)}
		}
		if err := s.wsWriter.WriteTo(clientId, response); err != nil {
			slog.Error("Failed to send command response", "error", err)
			return
		}
	}
}
