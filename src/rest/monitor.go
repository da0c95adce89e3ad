// Package rest serves the plant's monitor surface: health and book
// snapshots over HTTP, live updates over websocket, and Prometheus metrics.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"market-plant/src/book"
	"market-plant/src/config"
	"market-plant/src/grpc_control"
	"market-plant/src/interfaces"
	"market-plant/src/logger"
	"market-plant/src/metrics"
	"market-plant/src/models"
	"market-plant/src/serializers"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------

// MonitorServer is the HTTP side door of the plant. The gRPC stream remains
// the primary subscriber surface; this one serves dashboards and browsers.
type MonitorServer struct {
	Name   string
	config *config.Config
	logger *logger.Logger

	books   *book.BookManager
	service *grpc_control.MarketPlantService

	serializer interfaces.ISerializer
	server     *http.Server
	upgrader   websocket.Upgrader
}

// -----------------------------------------------------------------------------

// NewMonitorServer creates the monitor server over the shared books and
// subscriber registry.
func NewMonitorServer(cfg *config.Config, lg *logger.Logger, books *book.BookManager, service *grpc_control.MarketPlantService) *MonitorServer {
	m := &MonitorServer{
		Name:       "MonitorServer",
		config:     cfg,
		logger:     lg,
		books:      books,
		service:    service,
		serializer: serializers.NewJSONSerializer(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/health", m.HealthCheck)
	mux.HandleFunc("GET /rest/books", m.ListBooks)
	mux.HandleFunc("GET /rest/book/{id}", m.BookSnapshot)
	mux.HandleFunc("GET /ws/updates", m.StreamUpdates)
	mux.Handle("GET /metrics", metrics.Handler())

	m.server = &http.Server{
		Addr:    cfg.MonitorAddress(),
		Handler: mux,
	}

	return m
}

// -----------------------------------------------------------------------------

// Start serves until Stop is called. Blocking; run it on its own goroutine.
func (m *MonitorServer) Start() error {
	m.logger.Info("%s : listening on %s", m.Name, m.server.Addr)
	if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("monitor server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (m *MonitorServer) Stop(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// REST handlers
// -----------------------------------------------------------------------------

// HealthCheck reports plant liveness and headline counts.
func (m *MonitorServer) HealthCheck(w http.ResponseWriter, r *http.Request) {
	m.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"name":        m.config.Name,
		"books":       len(m.books.IDs()),
		"subscribers": m.service.SubscriberCount(),
		"timestamp":   time.Now().Unix(),
	})
}

// -----------------------------------------------------------------------------

// ListBooks returns the configured instrument ids.
func (m *MonitorServer) ListBooks(w http.ResponseWriter, r *http.Request) {
	m.writeJSON(w, http.StatusOK, map[string]interface{}{
		"instruments": m.books.IDs(),
	})
}

// -----------------------------------------------------------------------------

// BookSnapshot returns the depth-bounded snapshot of one book.
func (m *MonitorServer) BookSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		http.Error(w, "invalid instrument id", http.StatusBadRequest)
		return
	}

	b, err := m.books.Book(uint32(id))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	m.writeJSON(w, http.StatusOK, &models.MBookUpdate{
		InstrumentID: b.ID(),
		Snapshot:     b.Snapshot(),
	})
}

// -----------------------------------------------------------------------------
// Websocket fan-out
// -----------------------------------------------------------------------------

// StreamUpdates upgrades to a websocket and streams the same frames a gRPC
// subscriber would receive, JSON-encoded. Instruments come from the
// ?instruments=1,2,3 query parameter.
func (m *MonitorServer) StreamUpdates(w http.ResponseWriter, r *http.Request) {
	instruments, err := parseInstruments(r.URL.Query().Get("instruments"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := m.service.AddSubscriber(instruments)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer m.service.RemoveSubscriber(sub.ID())

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("%s : websocket upgrade failed: %v", m.Name, err)
		return
	}
	defer conn.Close()

	metrics.ActiveSubscribers.Inc()
	defer metrics.ActiveSubscribers.Dec()

	m.logger.Info("%s : websocket subscriber %d streaming %d instrument(s)", m.Name, sub.ID(), len(instruments))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The read pump only exists to observe the peer closing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	init := &models.MStreamResponse{
		Init: &models.MInitFrame{
			SubscriberID: sub.ID(),
			SessionKey:   sub.SessionKey(),
		},
	}
	if err := m.writeFrame(conn, init); err != nil {
		return
	}

	for {
		update := sub.WaitDequeue(ctx)
		if update == nil {
			return
		}
		if err := m.writeFrame(conn, update); err != nil {
			m.logger.Warning("%s : write to websocket subscriber %d failed: %v", m.Name, sub.ID(), err)
			return
		}
	}
}

// -----------------------------------------------------------------------------

func (m *MonitorServer) writeFrame(conn *websocket.Conn, frame *models.MStreamResponse) error {
	data, err := m.serializer.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// -----------------------------------------------------------------------------

func (m *MonitorServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, err := m.serializer.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// -----------------------------------------------------------------------------

func parseInstruments(raw string) ([]uint32, error) {
	if raw == "" {
		return nil, fmt.Errorf("instruments query parameter is required")
	}

	parts := strings.Split(raw, ",")
	ids := make([]uint32, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid instrument id '%s'", part)
		}
		ids = append(ids, uint32(id))
	}
	return ids, nil
}
