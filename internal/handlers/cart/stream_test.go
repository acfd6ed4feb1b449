package cart

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podreseller_back_end/internal/middleware"
	"podreseller_back_end/internal/models"
	"podreseller_back_end/internal/services"
	"podreseller_back_end/internal/testutil"
	"podreseller_back_end/internal/utils"
)

type streamServer struct {
	srv    *httptest.Server
	store  *testutil.Store
	feed   *testutil.CartFeed
	tokens *utils.TokenService
}

func newStreamServer(t *testing.T, feed Feed) *streamServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := utils.NewTokenService("stream-secret")
	require.NoError(t, err)
	s := &streamServer{store: testutil.NewStore(), tokens: tokens}
	if fake, ok := feed.(*testutil.CartFeed); ok {
		s.feed = fake
	}

	h := NewHandler(s.store.Carts(), feed)
	auth := middleware.NewAuthorizer(tokens, nil)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.POST("/carts", h.Add)
	r.DELETE("/carts/:id", h.Remove)
	r.GET("/carts/ws", auth.RequireIdentity(), h.Stream)

	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *streamServer) dial(t *testing.T, email string) *websocket.Conn {
	t.Helper()
	token, err := s.tokens.Issue(email, "")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/carts/ws?access_token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) Snapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var snap Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	return snap
}

func TestStreamPushesCartChanges(t *testing.T) {
	s := newStreamServer(t, testutil.NewCartFeed())
	s.store.Carts().Insert(t.Context(), &models.CartItem{Email: "a@example.com", Name: "Tee", Price: 10})

	conn := s.dial(t, "a@example.com")

	snap := readSnapshot(t, conn)
	assert.Equal(t, "cart_updated", snap.Type)
	assert.Equal(t, streamConnected, snap.Event)
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, 10.0, snap.Total)

	resp, err := http.Post(s.srv.URL+"/carts", "application/json",
		bytes.NewBufferString(`{"email":"a@example.com","name":"Mug","price":5.5}`))
	require.NoError(t, err)
	resp.Body.Close()

	snap = readSnapshot(t, conn)
	assert.Equal(t, services.CartUpdated, snap.Event)
	assert.Equal(t, 2, snap.Count)
	assert.Equal(t, 15.5, snap.Total)

	// Another shopper's cart is not streamed here.
	resp, err = http.Post(s.srv.URL+"/carts", "application/json",
		bytes.NewBufferString(`{"email":"b@example.com","name":"Cap"}`))
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, s.feed.Publish(t.Context(), "a@example.com", services.CartCleared))
	snap = readSnapshot(t, conn)
	assert.Equal(t, services.CartCleared, snap.Event)
	assert.Equal(t, 2, snap.Count)
}

func TestStreamUnsubscribesOnClose(t *testing.T) {
	s := newStreamServer(t, testutil.NewCartFeed())
	conn := s.dial(t, "a@example.com")
	readSnapshot(t, conn)
	require.Equal(t, 1, s.feed.Subscribers("a@example.com"))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.feed.Subscribers("a@example.com") == 0 },
		5*time.Second, 10*time.Millisecond)
}

func TestStreamRequiresIdentity(t *testing.T) {
	s := newStreamServer(t, testutil.NewCartFeed())

	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/carts/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStreamWithoutFeed(t *testing.T) {
	var events *services.CartEvents
	s := newStreamServer(t, events)

	token, err := s.tokens.Issue("a@example.com", "")
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/carts/ws?access_token=" + token
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
