package live

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cookbook/mq"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*Hub, *mq.Emitter, string) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	emitter := mq.NewEmitter(zap.NewNop())
	t.Cleanup(hub.Attach(emitter))

	router := httprouter.New()
	router.GET("/ws/recipes", hub.ServeWS)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return hub, emitter, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/recipes"
}

func dial(t *testing.T, hub *Hub, url string, want int) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.Len() == want }, time.Second, 10*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) mq.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev mq.Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	return ev
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub, emitter, url := startHub(t)
	conn := dial(t, hub, url, 1)

	emitter.Emit(mq.RecipeCreated, mq.Event{EntityType: "recipe", EntityID: "r1", UserID: "ann"})

	ev := readEvent(t, conn)
	assert.Equal(t, mq.RecipeCreated, ev.Name)
	assert.Equal(t, "r1", ev.EntityID)
}

func TestHubFiltersByRecipe(t *testing.T) {
	hub, emitter, url := startHub(t)
	conn := dial(t, hub, url+"?recipe=r2", 1)

	emitter.Emit(mq.RecipeRated, mq.Event{EntityType: "recipe", EntityID: "r1"})
	emitter.Emit(mq.RecipeSaved, mq.Event{EntityType: "recipe", EntityID: "r2"})

	ev := readEvent(t, conn)
	assert.Equal(t, mq.RecipeSaved, ev.Name)
	assert.Equal(t, "r2", ev.EntityID)
}

func TestHubForgetsClosedClients(t *testing.T) {
	hub, _, url := startHub(t)
	conn := dial(t, hub, url, 1)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
