package phoenix_test

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"enchere/adapters/phoenix"
)

func init() {
	// 將日誌輸出重定向到io.Discard
	log.SetOutput(io.Discard)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// fakeFrame 為測試伺服器端看到的 V2 訊息
type fakeFrame struct {
	JoinRef *string
	Ref     *string
	Topic   string
	Event   string
	Payload json.RawMessage
}

func readFrame(t *testing.T, conn *websocket.Conn) fakeFrame {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var parts [5]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &parts))

	var f fakeFrame
	require.NoError(t, json.Unmarshal(parts[0], &f.JoinRef))
	require.NoError(t, json.Unmarshal(parts[1], &f.Ref))
	require.NoError(t, json.Unmarshal(parts[2], &f.Topic))
	require.NoError(t, json.Unmarshal(parts[3], &f.Event))
	f.Payload = parts[4]
	return f
}

func writeFrame(t *testing.T, conn *websocket.Conn, joinRef, ref any, topic, event, payload string) {
	t.Helper()
	data, err := json.Marshal([5]any{joinRef, ref, topic, event, json.RawMessage(payload)})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// fakeChannelServer 模擬 Phoenix 端點:
// 接受 phx_join 並在加入後依序送出給定的推播訊息
func fakeChannelServer(t *testing.T, joinStatus string, pushes []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/websocket"))
		assert.Equal(t, "2.0.0", r.URL.Query().Get("vsn"))

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			f := readFrame(t, conn)
			if f.Event != "phx_join" {
				continue
			}
			reply := `{"status":"` + joinStatus + `","response":{}}`
			writeFrame(t, conn, f.JoinRef, f.Ref, f.Topic, "phx_reply", reply)
			if joinStatus != "ok" {
				return
			}
			for _, push := range pushes {
				writeFrame(t, conn, nil, nil, f.Topic, "outbid", push)
			}
			// 之後保持連線直到客戶端關閉
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/api/socket"
}

func TestSubscriberDeliversEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	server := fakeChannelServer(t, "ok", []string{
		`{"bid":{"id":"bid-1","amount":515000,"participantId":"p-1"}}`,
		`{"bid":{"id":"bid-2","amount":520000,"participantId":"p-2"}}`,
	})
	defer server.Close()

	subscriber := phoenix.NewSubscriber(wsURL(server), "test-token")
	sub, err := subscriber.Subscribe(context.Background(), "auction-1")
	require.NoError(t, err)
	defer sub.Close()

	for _, wantID := range []string{"bid-1", "bid-2"} {
		select {
		case event := <-sub.Events():
			assert.Equal(t, phoenix.EventNewBid, event.Type)
			assert.Equal(t, wantID, event.Bid.ID)
		case <-time.After(time.Second):
			t.Fatal("did not receive event in time")
		}
	}
}

func TestSubscriberJoinRefused(t *testing.T) {
	defer goleak.VerifyNone(t)

	server := fakeChannelServer(t, "error", nil)
	defer server.Close()

	subscriber := phoenix.NewSubscriber(wsURL(server), "test-token")
	sub, err := subscriber.Subscribe(context.Background(), "auction-1")

	// 加入失敗時整條連線拆除，不留下半開的資源
	assert.Error(t, err)
	assert.Nil(t, sub)
}

func TestSubscriberConnectFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	subscriber := phoenix.NewSubscriber("ws://127.0.0.1:1/api/socket", "test-token")
	sub, err := subscriber.Subscribe(context.Background(), "auction-1")
	assert.Error(t, err)
	assert.Nil(t, sub)
}

func TestHandleCloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	server := fakeChannelServer(t, "ok", nil)
	defer server.Close()

	subscriber := phoenix.NewSubscriber(wsURL(server), "test-token")
	sub, err := subscriber.Subscribe(context.Background(), "auction-1")
	require.NoError(t, err)

	sub.Close()
	sub.Close()

	// 關閉後事件通道隨之關閉
	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("events channel not closed")
	}
}

func TestSocketHeartbeat(t *testing.T) {
	defer goleak.VerifyNone(t)

	heartbeats := make(chan fakeFrame, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var parts [5]json.RawMessage
			require.NoError(t, json.Unmarshal(data, &parts))
			var f fakeFrame
			require.NoError(t, json.Unmarshal(parts[2], &f.Topic))
			require.NoError(t, json.Unmarshal(parts[3], &f.Event))
			if f.Event == "heartbeat" {
				select {
				case heartbeats <- f:
				default:
				}
			}
		}
	}))
	defer server.Close()

	sock := phoenix.NewSocket(wsURL(server), "test-token",
		phoenix.WithHeartbeatInterval(50*time.Millisecond))
	require.NoError(t, sock.Connect(context.Background()))
	defer sock.Close()

	select {
	case f := <-heartbeats:
		// 心跳走 phoenix 控制 topic
		assert.Equal(t, "phoenix", f.Topic)
	case <-time.After(time.Second):
		t.Fatal("no heartbeat received")
	}
}
