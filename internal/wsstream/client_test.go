package wsstream

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/meetbot/core/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func TestSendMixedAudio_RoundTripsToServer(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		received <- msg
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	logger, _ := logging.NewApplicationLogger()
	c := New(wsURL, 16000, nil, logger)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	require.NoError(t, c.SendMixedAudio([]byte{1, 2, 3, 4}))

	select {
	case msg := <-received:
		assert.Contains(t, string(msg), `"trigger":"realtime_audio.mixed"`)
		assert.Contains(t, string(msg), base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4}))
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive message")
	}
}

func TestReadLoop_DeliversBotOutputAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		payload := `{"trigger":"realtime_audio.bot_output","data":{"chunk":"AQIDBA==","sample_rate":16000}}`
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	gotCh := make(chan []byte, 1)
	logger, _ := logging.NewApplicationLogger()
	c := New(wsURL, 16000, func(pcm []byte, sampleRate int) {
		assert.Equal(t, 16000, sampleRate)
		gotCh <- pcm
	}, logger)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	select {
	case pcm := <-gotCh:
		assert.Equal(t, []byte{1, 2, 3, 4}, pcm)
	case <-time.After(2 * time.Second):
		t.Fatal("audio callback was not invoked")
	}
}

func TestSendMixedAudio_BeforeConnectFails(t *testing.T) {
	logger, _ := logging.NewApplicationLogger()
	c := New("ws://example.invalid", 16000, nil, logger)
	assert.Error(t, c.SendMixedAudio([]byte{1}))
}
