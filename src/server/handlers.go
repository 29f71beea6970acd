package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"capyviz/src/aggregators"
	"capyviz/src/datamodels"
	"capyviz/src/ingest"
	"capyviz/src/utils/general"
	"capyviz/src/version"
)

// @title Capyviz API
// @version 1.0
// @description Aggregated views of a Capybot trading log
// @host localhost:8080
// @BasePath /

// WebSocketMessageType represents the type of WebSocket message
// @Description Type of message being sent over WebSocket connection
type WebSocketMessageType string

const (
	// Command message type for asking the server to act
	Command WebSocketMessageType = "command"
)

// WebSocketMessage represents a message sent by a viewer
// @Description Message structure for WebSocket communication
type WebSocketMessage struct {
	// Type of the WebSocket message
	// Required: true
	// Enum: command
	MessageType WebSocketMessageType `json:"message_type" example:"command"`
	// JSON message payload
	// Required: true
	Message json.RawMessage `json:"message" swaggertype:"object"`
}

// WebSocketResponse represents a response sent back over WebSocket
// @Description Response structure for WebSocket communication
type WebSocketResponse struct {
	// Whether the operation was successful
	// Required: true
	Success bool `json:"success" example:"true"`
	// Response payload data
	// Required: false
	Data any `json:"data,omitempty"`
	// Error message if operation failed
	// Required: false
	Error string `json:"error,omitempty" example:"unknown action"`
}

type CommandAction string

const (
	// Refresh asks the refresher for an immediate re-ingest, pushed to all viewers
	Refresh CommandAction = "refresh"
	// Snapshot returns a fresh dataset to the asking viewer only
	Snapshot CommandAction = "snapshot"
)

// CommandData represents a command sent over WebSocket
// @Description Data structure for command messages
type CommandData struct {
	// Command action to be performed
	// Required: true
	Action CommandAction `json:"action" example:"refresh"`
}

// SummaryResponse is the body of the summary endpoint
// @Description Per entity summary of the log plus line accounting
type SummaryResponse struct {
	Summary *datamodels.DatasetSummary `json:"summary"`
	Ingest  ingest.IngestStats         `json:"ingest"`
}

// HealthResponse is the body of the health endpoint
// @Description Service status plus process resource usage
type HealthResponse struct {
	Status string `json:"status" example:"Capyviz is healthy"`
	// cpu, goroutine and memory counters of the serving process
	System map[string]string `json:"system"`
}

// RegisterHealthCheck registers the health check endpoint
// @Summary Health check endpoint
// @Description Returns health status and resource usage of the Capyviz service
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (s *Server) RegisterHealthCheck() {
	s.httpMux.HandleFunc(s.endpoints.HealthEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "Capyviz is healthy",
			System: general.GetSystemUsage(),
		})
	})
}

// RegisterVersion registers the build information endpoint
// @Summary Build information
// @Tags health
// @Produce json
// @Success 200 {object} version.BuildInfo
// @Router /version [get]
func (s *Server) RegisterVersion() {
	s.httpMux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, version.GetBuildInfo())
	})
}

// RegisterDataset registers the full dataset endpoint
// @Summary Aggregated dataset
// @Description Re-reads the whole log and returns every per entity series
// @Tags dataset
// @Produce json
// @Success 200 {object} datamodels.AggregatedDataset
// @Failure 404 {string} string "log not found"
// @Failure 500 {string} string "log unreadable"
// @Router /dataset [get]
func (s *Server) RegisterDataset() {
	s.httpMux.HandleFunc(s.endpoints.DatasetEndpoint, func(w http.ResponseWriter, r *http.Request) {
		ds, _, ok := s.ingestForRequest(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, ds)
	})
}

// RegisterSummary registers the dataset summary endpoint
// @Summary Dataset summary
// @Description Re-reads the whole log and returns per entity statistics
// @Tags dataset
// @Produce json
// @Success 200 {object} SummaryResponse
// @Failure 404 {string} string "log not found"
// @Failure 500 {string} string "log unreadable"
// @Router /summary [get]
func (s *Server) RegisterSummary() {
	s.httpMux.HandleFunc(s.endpoints.SummaryEndpoint, func(w http.ResponseWriter, r *http.Request) {
		ds, stats, ok := s.ingestForRequest(w, r)
		if !ok {
			return
		}
		summary, err := aggregators.SummarizeDataset(ds, s.analysis)
		if err != nil {
			slog.Error("Failed to summarize dataset", "error", err)
			http.Error(w, "failed to summarize dataset", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, SummaryResponse{Summary: summary, Ingest: stats})
	})
}

// RegisterWebSocketHandler registers the WebSocket endpoint
// @Summary WebSocket connection endpoint
// @Description Streams a dataset snapshot after every refresh
// @Tags websocket
// @Accept json
// @Produce json
// @Success 101 {string} string "Switching protocols to websocket"
// @Router /ws [get]
func (s *Server) RegisterWebSocketHandler() {
	s.httpMux.HandleFunc(s.endpoints.WsEndpoint, s.handleWebSocket)
}

// RegisterSwagger registers the Swagger documentation endpoint
// @Summary Swagger documentation endpoint
// @Description Serves Swagger API documentation UI and JSON spec
// @Tags docs
// @Produce json,html
// @Success 200 {string} string "Swagger documentation UI"
// @Router /swagger [get]
func (s *Server) RegisterSwagger() {
	s.httpMux.HandleFunc("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

func (s *Server) ingestForRequest(w http.ResponseWriter, r *http.Request) (*datamodels.AggregatedDataset, ingest.IngestStats, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, ingest.IngestStats{}, false
	}
	ds, stats, err := s.ingester.IngestWithStats(r.Context(), s.logPath)
	if err != nil {
		if ingest.IsNotFound(err) {
			http.Error(w, "log not found", http.StatusNotFound)
		} else {
			slog.Error("Failed to ingest log", "path", s.logPath, "error", err)
			http.Error(w, "log unreadable", http.StatusInternalServerError)
		}
		return nil, stats, false
	}
	return ds, stats, true
}

// handleCommand processes incoming command messages over WebSocket
// @Description Handles incoming command data over WebSocket connection
// @Accept json
// @Produce json
// @Param payload body CommandData true "Command payload"
// @Success 200 {object} WebSocketResponse
// @Failure 400 {object} WebSocketResponse
func (s *Server) handleCommand(ctx context.Context, payload []byte) WebSocketResponse {
	var command CommandData
	if err := json.Unmarshal(payload, &command); err != nil {
		slog.Warn("Failed to unmarshal command payload", "error", err)
		return WebSocketResponse{Error: err.Error()}
	}

	switch command.Action {
	case Refresh:
		if s.refresher == nil {
			return WebSocketResponse{Error: "refresh is disabled"}
		}
		s.refresher.Trigger()
		return WebSocketResponse{Success: true, Data: command}
	case Snapshot:
		ds, err := s.ingester.Ingest(ctx, s.logPath)
		if err != nil {
			slog.Error("Failed to ingest log for snapshot", "error", err)
			return WebSocketResponse{Error: "log unreadable"}
		}
		return WebSocketResponse{Success: true, Data: datamodels.NewDatasetSnapshot(ds)}
	default:
		return WebSocketResponse{Error: "unknown action " + string(command.Action)}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
