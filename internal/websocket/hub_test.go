package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/quant-curve-engine/internal/curve"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/internal/request"
	"github.com/rzzdr/quant-curve-engine/internal/store"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

func init() {
	logger.UseNop()
}

func saveSnapshot(t *testing.T, s store.SnapshotStore, name string) *store.Snapshot {
	t.Helper()
	b := market.NewBundle()
	require.NoError(t, b.SetDiscountCurve(models.EUR, curve.NewFlatYieldCurve("EUR-DSC", 0.02)))
	snap, err := s.Save(name, b, &request.CalibrationResponse{Name: name})
	require.NoError(t, err)
	return snap
}

func TestHandleMessage(t *testing.T) {
	s := store.NewInMemorySnapshotStore(0)
	saveSnapshot(t, s, "eur")
	h := NewHub(s)
	c := &Client{hub: h, id: "c1"}

	replies := h.handleMessage(c, []byte(`{"type":"subscribe","snapshots":["eur","usd"],"id":"1"}`))
	require.Len(t, replies, 2)
	assert.Equal(t, TypeSnapshot, replies[0].Type)
	assert.Equal(t, "eur", replies[0].Snapshot)
	assert.Equal(t, 1, replies[0].Version)
	assert.Equal(t, TypeSubscribed, replies[1].Type)
	assert.Equal(t, "1", replies[1].ID)
	assert.Equal(t, 1, h.Subscribers("eur"))
	assert.Equal(t, 1, h.Subscribers("usd"))

	replies = h.handleMessage(c, []byte(`{"type":"unsubscribe","snapshots":["usd"]}`))
	require.Len(t, replies, 1)
	assert.Equal(t, TypeUnsubscribed, replies[0].Type)
	assert.Equal(t, 0, h.Subscribers("usd"))

	replies = h.handleMessage(c, []byte(`{"type":"ping","id":"p"}`))
	assert.Equal(t, []Message{{Type: TypePong, ID: "p"}}, replies)

	replies = h.handleMessage(c, []byte(`{"type":"subscribe"}`))
	assert.Equal(t, TypeError, replies[0].Type)

	replies = h.handleMessage(c, []byte(`{"type":"bogus"}`))
	assert.Equal(t, TypeError, replies[0].Type)

	replies = h.handleMessage(c, []byte(`not json`))
	assert.Equal(t, TypeError, replies[0].Type)

	h.removeClientSubscriptions(c)
	assert.Equal(t, 0, h.Subscribers("eur"))
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestPublishReachesSubscribers(t *testing.T) {
	s := store.NewInMemorySnapshotStore(0)
	h := NewHub(s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	eurConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer eurConn.Close()
	allConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer allConn.Close()

	require.NoError(t, eurConn.WriteJSON(SubscriptionMessage{Type: "subscribe", Snapshots: []string{"eur"}}))
	assert.Equal(t, TypeSubscribed, readMessage(t, eurConn).Type)
	require.NoError(t, allConn.WriteJSON(SubscriptionMessage{Type: "subscribe", Snapshots: []string{AllSnapshots}}))
	assert.Equal(t, TypeSubscribed, readMessage(t, allConn).Type)

	h.PublishSnapshot(saveSnapshot(t, s, "usd"))
	h.PublishSnapshot(saveSnapshot(t, s, "eur"))

	// the eur subscriber only sees eur
	msg := readMessage(t, eurConn)
	assert.Equal(t, TypeSnapshot, msg.Type)
	assert.Equal(t, "eur", msg.Snapshot)

	msg = readMessage(t, allConn)
	assert.Equal(t, "usd", msg.Snapshot)
	msg = readMessage(t, allConn)
	assert.Equal(t, "eur", msg.Snapshot)

	h.PublishDeleted("eur")
	msg = readMessage(t, eurConn)
	assert.Equal(t, TypeDeleted, msg.Type)
	assert.Equal(t, "eur", msg.Snapshot)
}

func TestUpgradeAfterShutdownIsClosed(t *testing.T) {
	h := NewHub(store.NewInMemorySnapshotStore(0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Run(ctx)

	served := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleWebSocket(w, r)
		close(served)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("handler blocked on a stopped hub")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected read error: %v", err)
}
