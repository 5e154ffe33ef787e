package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scanndine/model"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()

	hub := NewHub(nil, log, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws/:channel", func(c *gin.Context) {
		hub.Serve(c, strings.Split(c.Param("channel"), ","))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, channels string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + channels
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) OrderEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev OrderEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHubDeliversToSubscribedChannels(t *testing.T) {
	hub, srv := newTestHub(t)
	staff := dial(t, srv, StaffChannel)
	table := dial(t, srv, TableChannel(3))
	other := dial(t, srv, TableChannel(4))
	require.Eventually(t, func() bool { return hub.Connected() == 3 }, 2*time.Second, 10*time.Millisecond)

	n := NewNotifier(hub, nil, logrus.New())
	n.NotifyOrder(context.Background(), OrderEvent{
		Type:  EventOrderPlaced,
		Order: &model.Order{ID: 11, TableID: 3, Status: model.OrderPlaced},
	})

	got := readEvent(t, staff)
	assert.Equal(t, EventOrderPlaced, got.Type)
	assert.Equal(t, uint(11), got.Order.ID)

	got = readEvent(t, table)
	assert.Equal(t, uint(3), got.Order.TableID)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "table 4 must not hear about table 3")
}

func TestHubSendsOnceToMultiChannelClient(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, StaffChannel+","+UserChannel(9))
	require.Eventually(t, func() bool { return hub.Connected() == 1 }, 2*time.Second, 10*time.Millisecond)

	userID := uint(9)
	order := &model.Order{ID: 1, TableID: 2, UserID: &userID, Status: model.OrderReady}
	hub.Broadcast(OrderEvent{Order: order}.Channels(), []byte(`{"type":"order.status","order":{"id":1}}`))

	got := readEvent(t, conn)
	assert.Equal(t, EventOrderStatus, got.Type)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, StaffChannel)
	require.Eventually(t, func() bool { return hub.Connected() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Connected() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestOrderEventChannels(t *testing.T) {
	guest := OrderEvent{Order: &model.Order{TableID: 5}}
	assert.Equal(t, []string{"staff", "table:5"}, guest.Channels())

	uid := uint(8)
	customer := OrderEvent{Order: &model.Order{TableID: 5, UserID: &uid}}
	assert.Equal(t, []string{"staff", "table:5", "user:8"}, customer.Channels())
}
