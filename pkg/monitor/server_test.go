package monitor

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sessamekesh/spanreed-driverstation/pkg/message/robot"
	"go.uber.org/zap"
)

func createTestServer(t *testing.T, params ServerParams) (*Server, *httptest.Server) {
	t.Helper()
	// Hijacked connection handlers can outlive the test, so no zaptest here.
	params.Logger = zap.NewNop()
	s, err := CreateServer(params)
	if err != nil {
		t.Fatalf("CreateServer() error: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dialSubscriber(t *testing.T, s *Server, ts *httptest.Server, want int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { c.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for s.SubscriberCount() < want {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return c
}

func readEvent(t *testing.T, c *websocket.Conn) Event {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, payload, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.TextMessage {
		t.Fatalf("message type %d, want text", msgType)
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		t.Fatalf("unmarshal %s: %v", payload, err)
	}
	return ev
}

func TestPublishFansOutToEverySubscriber(t *testing.T) {
	s, ts := createTestServer(t, ServerParams{})
	a := dialSubscriber(t, s, ts, 1)
	b := dialSubscriber(t, s, ts, 2)

	s.Publish(GyroEvent(3.14))
	s.Publish(LinkEvent(true))

	for _, c := range []*websocket.Conn{a, b} {
		gyro := readEvent(t, c)
		if gyro.Type != "gyro" || gyro.Value == nil || *gyro.Value != 3.14 {
			t.Errorf("first event %+v, want gyro 3.14", gyro)
		}
		link := readEvent(t, c)
		if link.Type != "link" || link.Connected == nil || !*link.Connected {
			t.Errorf("second event %+v, want link connected", link)
		}
	}
}

func TestSubscriberIsRemovedOnClose(t *testing.T) {
	s, ts := createTestServer(t, ServerParams{})
	c := dialSubscriber(t, s, ts, 1)

	c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after close")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Publishing with nobody listening is a no-op.
	s.Publish(GyroEvent(1))
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "driverstation_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Add(3)

	_, ts := createTestServer(t, ServerParams{Gatherer: reg})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "driverstation_test_total 3") {
		t.Errorf("metrics body missing counter:\n%s", body)
	}
}

func TestMetricsRouteAbsentWithoutGatherer(t *testing.T) {
	_, ts := createTestServer(t, ServerParams{})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, want 404", resp.StatusCode)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := listener.Addr().String()
	listener.Close()

	s, err := CreateServer(ServerParams{ListenAddress: addr, Logger: zap.NewNop()})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("monitor never started listening: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestEventForRobotMessage(t *testing.T) {
	ev, ok := EventForRobotMessage(robot.Gyro{Value: -0.5})
	if !ok || ev.Type != "gyro" || *ev.Value != -0.5 {
		t.Errorf("got %+v, %v", ev, ok)
	}
	if _, ok := EventForRobotMessage(nil); ok {
		t.Error("nil message produced an event")
	}
}
