package config

import (
	"net/http"

	"github.com/gorilla/websocket"

	"capyviz/src/datamodels"
)

// NewDefaultWSConfig accepts viewers from any origin; the server only
// exposes read-only data.
func NewDefaultWSConfig() datamodels.WSConfig {
	return datamodels.WSConfig{
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}
