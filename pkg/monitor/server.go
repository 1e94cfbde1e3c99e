// Package monitor serves a read-only view of the driver station: robot
// messages and link state over WebSocket, session metrics over HTTP.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	utils "github.com/sessamekesh/spanreed-driverstation/pkg/util"
	"go.uber.org/zap"
)

type ServerParams struct {
	ListenAddress string

	// Gatherer backs /metrics. Nil leaves the route out.
	Gatherer prometheus.Gatherer

	SubscriberBufferLength int

	Logger *zap.Logger
}

type subscriber struct {
	conn     *websocket.Conn
	outgoing chan []byte
}

type Server struct {
	upgrader *websocket.Upgrader
	params   ServerParams
	router   chi.Router

	mut_subscribers sync.RWMutex
	subscribers     map[string]*subscriber

	log       *zap.Logger
	stringGen *utils.RandomStringGenerator
}

func CreateServer(params ServerParams) (*Server, error) {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	if params.SubscriberBufferLength <= 0 {
		params.SubscriberBufferLength = 16
	}

	s := &Server{
		upgrader: &websocket.Upgrader{
			// Dashboards are served from anywhere on the field network.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		params: params,

		mut_subscribers: sync.RWMutex{},
		subscribers:     make(map[string]*subscriber),

		log:       logger.With(zap.String("handler", "monitor")),
		stringGen: utils.CreateRandomStringGenerator(time.Now().UnixMicro()),
	}

	router := chi.NewRouter()
	router.Get("/ws", s.onWsRequest)
	if params.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(params.Gatherer, promhttp.HandlerOpts{}))
	}
	s.router = router

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) SubscriberCount() int {
	s.mut_subscribers.RLock()
	defer s.mut_subscribers.RUnlock()
	return len(s.subscribers)
}

// Publish never blocks; a subscriber whose queue is full misses the event.
func (s *Server) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("Failed to marshal monitor event", zap.Error(err))
		return
	}

	s.mut_subscribers.RLock()
	defer s.mut_subscribers.RUnlock()

	for id, sub := range s.subscribers {
		select {
		case sub.outgoing <- payload:
		default:
			s.log.Debug("Subscriber queue full, dropping event", zap.String("wsConnId", id), zap.String("type", ev.Type))
		}
	}
}

func (s *Server) onWsRequest(w http.ResponseWriter, r *http.Request) {
	id := s.stringGen.GetRandomString(6)
	log := s.log.With(zap.String("wsConnId", id))

	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Failed to upgrade HTTP request to WebSocket connection", zap.Error(err))
		return
	}
	defer c.Close()

	sub := &subscriber{
		conn:     c,
		outgoing: make(chan []byte, s.params.SubscriberBufferLength),
	}

	func() {
		s.mut_subscribers.Lock()
		defer s.mut_subscribers.Unlock()
		s.subscribers[id] = sub
	}()
	log.Info("Dashboard subscribed")

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for payload := range sub.outgoing {
			c.SetWriteDeadline(time.Now().Add(time.Second))
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Debug("Write to dashboard failed", zap.Error(err))
				c.Close()
				return
			}
		}
	}()

	// Subscribers never send anything meaningful; reading only detects close.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Warn("Dashboard connection closed unexpectedly", zap.Error(err))
			}
			break
		}
	}

	func() {
		s.mut_subscribers.Lock()
		defer s.mut_subscribers.Unlock()
		delete(s.subscribers, id)
		close(sub.outgoing)
	}()
	wg.Wait()
	log.Info("Dashboard unsubscribed")
}

func (s *Server) closeSubscribers() {
	s.mut_subscribers.RLock()
	defer s.mut_subscribers.RUnlock()
	for _, sub := range s.subscribers {
		sub.conn.Close()
	}
}

// Start serves until ctx is done, then shuts the HTTP server down.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.params.ListenAddress,
		Handler: s.router,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.log.Info("Starting monitor server", zap.String("addr", s.params.ListenAddress))
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			s.log.Error("Unexpected monitor server close", zap.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	// Hijacked WebSocket connections are not closed by Shutdown.
	s.closeSubscribers()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Failed to gracefully shut down monitor server", zap.Error(err))
		return err
	}
	s.log.Info("Successfully shut down monitor server")
	return <-serveErr
}
