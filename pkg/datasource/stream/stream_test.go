package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/peter-kozarec/pairs/pkg/bus"
	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

var errStop = errors.New("stop")

func frame(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatal(err)
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestDecode(t *testing.T) {
	ts := time.Date(2024, 5, 6, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		fields  map[string]any
		want    map[string]string
		wantErr bool
	}{
		{"string values", map[string]any{"ts": "1715005800000000000", "SPY": "510.25", "QQQ": "440.5"}, map[string]string{"SPY": "510.25", "QQQ": "440.5"}, false},
		{"number values", map[string]any{"ts": float64(ts.UnixNano()), "SPY": 510.25}, map[string]string{"SPY": "510.25"}, false},
		{"missing ts", map[string]any{"SPY": 510.25}, nil, true},
		{"bad ts", map[string]any{"ts": "yesterday", "SPY": 510.25}, nil, true},
		{"bad price", map[string]any{"ts": "1", "SPY": "n/a"}, nil, true},
		{"negative price", map[string]any{"ts": "1", "SPY": -1.0}, nil, true},
		{"bool price", map[string]any{"ts": "1", "SPY": true}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := Decode(frame(t, tt.fields))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v; wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(obs.Prices) != len(tt.want) {
				t.Errorf("prices = %v; want %v", obs.Prices, tt.want)
			}
			for symbol, want := range tt.want {
				if got := obs.Prices[symbol]; got.String() != want {
					t.Errorf("%s = %s; want %s", symbol, got, want)
				}
			}
			if obs.TimeStamp.Sub(ts).Abs() > time.Microsecond {
				t.Errorf("timestamp = %s; want %s", obs.TimeStamp, ts)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Error("Decode() of garbage should fail")
	}
}

func TestEncode_Decode(t *testing.T) {
	obs := common.Observation{
		Prices:    map[string]fixed.Point{"SPY": fixed.FromFloat64(510.123456), "IWM": fixed.FromInt(200, 0)},
		TimeStamp: time.Date(2024, 5, 6, 14, 30, 0, 123, time.UTC),
	}

	data, err := Encode(obs)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !got.TimeStamp.Equal(obs.TimeStamp) {
		t.Errorf("timestamp = %s; want %s", got.TimeStamp, obs.TimeStamp)
	}
	for symbol, price := range obs.Prices {
		if !got.Prices[symbol].Eq(price) {
			t.Errorf("%s = %s; want %s", symbol, got.Prices[symbol], price)
		}
	}
}

func TestFeed_Run(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan []string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub structpb.Struct
		if err := proto.Unmarshal(msg, &sub); err == nil {
			var symbols []string
			for _, v := range sub.GetFields()[subscribeField].GetListValue().GetValues() {
				symbols = append(symbols, v.GetStringValue())
			}
			subscribed <- symbols
		}

		_ = conn.WriteMessage(websocket.BinaryMessage, frame(t, map[string]any{"ts": "1000", "AAA": "10", "BBB": "20"}))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0xff, 0xff})
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		_ = conn.WriteMessage(websocket.BinaryMessage, frame(t, map[string]any{"ts": "2000", "AAA": "11"}))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_, _, _ = conn.ReadMessage()
	}))
	defer server.Close()

	router := bus.NewRouter(zap.NewNop(), 16)
	var received []common.Observation
	router.OnObservation = func(_ context.Context, obs common.Observation) {
		received = append(received, obs)
	}

	feed := NewFeed(zap.NewNop(), router, "ws"+strings.TrimPrefix(server.URL, "http"), []string{"AAA", "BBB"})
	if err := feed.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	<-router.ExecLoop(context.Background(), func() error { return errStop })

	select {
	case symbols := <-subscribed:
		if strings.Join(symbols, ",") != "AAA,BBB" {
			t.Errorf("subscription = %v", symbols)
		}
	default:
		t.Error("no subscription received")
	}

	if len(received) != 2 {
		t.Fatalf("received %d observations; want 2", len(received))
	}
	if len(received[0].Prices) != 2 || len(received[1].Prices) != 1 {
		t.Errorf("prices = %v, %v", received[0].Prices, received[1].Prices)
	}
	if received[1].TimeStamp.UnixNano() != 2000 {
		t.Errorf("second timestamp = %d", received[1].TimeStamp.UnixNano())
	}
}

func TestFeed_RunDialError(t *testing.T) {
	feed := NewFeed(zap.NewNop(), bus.NewRouter(zap.NewNop(), 1), "ws://127.0.0.1:1", nil)
	if err := feed.Run(context.Background()); err == nil {
		t.Error("Run() against a closed port should fail")
	}
}

func TestFeed_RunCancelled(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	feed := NewFeed(zap.NewNop(), bus.NewRouter(zap.NewNop(), 1), "ws"+strings.TrimPrefix(server.URL, "http"), nil)

	errCh := make(chan error, 1)
	go func() { errCh <- feed.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() after cancel error = %v; want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
