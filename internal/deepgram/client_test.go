package deepgram

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestStreamURL(t *testing.T) {
	got := StreamURL("stream.example.com", "tok-123", "en-US", "deepgram")

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("StreamURL produced an unparseable URL: %v", err)
	}

	if u.Scheme != "wss" {
		t.Errorf("scheme = %q, want wss", u.Scheme)
	}
	if u.Host != "stream.example.com" {
		t.Errorf("host = %q, want stream.example.com", u.Host)
	}
	if u.Path != "/v1/listen" {
		t.Errorf("path = %q, want /v1/listen", u.Path)
	}

	q := u.Query()
	if q.Get("access_token") != "tok-123" {
		t.Errorf("access_token = %q, want tok-123", q.Get("access_token"))
	}
	if q.Get("language") != "en-US" {
		t.Errorf("language = %q, want en-US", q.Get("language"))
	}
	if q.Get("service") != "deepgram" {
		t.Errorf("service = %q, want deepgram", q.Get("service"))
	}
}

func TestHandleMessageRouting(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantText   string
		wantFinal  bool
		wantResult bool
		wantAPIErr string
	}{
		{
			name:       "interim result",
			raw:        `{"channel":{"alternatives":[{"transcript":"hi"}]},"is_final":false}`,
			wantResult: true,
			wantText:   "hi",
			wantFinal:  false,
		},
		{
			name:       "final result",
			raw:        `{"channel":{"alternatives":[{"transcript":"hi there"}]},"is_final":true}`,
			wantResult: true,
			wantText:   "hi there",
			wantFinal:  true,
		},
		{
			name:       "error frame",
			raw:        `{"error":"quota exceeded"}`,
			wantAPIErr: "quota exceeded",
		},
		{
			name: "no alternatives is a no-op",
			raw:  `{"channel":{"alternatives":[]},"is_final":true}`,
		},
		{
			name: "invalid json is dropped",
			raw:  `{not json`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotText, gotAPIErr string
			var gotFinal, gotResult bool

			c := NewClient(nil, Callbacks{
				OnResult: func(text string, isFinal bool) {
					gotResult = true
					gotText = text
					gotFinal = isFinal
				},
				OnAPIError: func(msg string) { gotAPIErr = msg },
			}, testLogger())

			c.handleMessage([]byte(tt.raw))

			if gotResult != tt.wantResult {
				t.Fatalf("OnResult fired = %v, want %v", gotResult, tt.wantResult)
			}
			if gotResult && (gotText != tt.wantText || gotFinal != tt.wantFinal) {
				t.Errorf("OnResult(%q, %v), want (%q, %v)", gotText, gotFinal, tt.wantText, tt.wantFinal)
			}
			if gotAPIErr != tt.wantAPIErr {
				t.Errorf("OnAPIError = %q, want %q", gotAPIErr, tt.wantAPIErr)
			}
		})
	}
}

func TestSendWithoutConnectionIsDropped(t *testing.T) {
	c := NewClient(nil, Callbacks{}, testLogger())

	// Must not panic or block: frames before the socket opens are dropped.
	c.Send([]byte{0x00, 0x01})

	if c.IsOpen() {
		t.Error("client should not report open before Connect")
	}
}

func TestCloseWithoutConnectionIsNoop(t *testing.T) {
	c := NewClient(nil, Callbacks{}, testLogger())
	if err := c.Close(); err != nil {
		t.Errorf("Close with nothing held should be a no-op, got %v", err)
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// transcriptTestServer upgrades, sends the given frames, then closes with code.
func transcriptTestServer(t *testing.T, frames []string, closeCode int, gotAudio chan<- []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		// Read one binary frame first so the test can assert on it.
		if gotAudio != nil {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.BinaryMessage {
				gotAudio <- data
			}
		}

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}

		msg := websocket.FormatCloseMessage(closeCode, "")
		conn.WriteMessage(websocket.CloseMessage, msg)
		// Wait for the client's close response before tearing down.
		conn.ReadMessage()
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectStreamAndClose(t *testing.T) {
	gotAudio := make(chan []byte, 1)
	frames := []string{
		`{"channel":{"alternatives":[{"transcript":"partial"}]},"is_final":false}`,
		`{"channel":{"alternatives":[{"transcript":"final text"}]},"is_final":true}`,
	}
	srv := transcriptTestServer(t, frames, websocket.CloseNormalClosure, gotAudio)
	defer srv.Close()

	results := make(chan string, 4)
	closed := make(chan int, 1)
	opened := false

	c := NewClient(nil, Callbacks{
		OnOpen:   func() { opened = true },
		OnResult: func(text string, isFinal bool) { results <- text },
		OnClose:  func(code int, reason string) { closed <- code },
	}, testLogger())

	if err := c.Connect(wsURL(srv)); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !opened {
		t.Error("OnOpen should fire before Connect returns")
	}
	if !c.IsOpen() {
		t.Error("IsOpen should report true after Connect")
	}

	c.Send([]byte{0xAA, 0xBB})
	select {
	case data := <-gotAudio:
		if len(data) != 2 || data[0] != 0xAA || data[1] != 0xBB {
			t.Errorf("server received %v, want [AA BB]", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the audio frame")
	}

	for _, want := range []string{"partial", "final text"} {
		select {
		case got := <-results:
			if got != want {
				t.Errorf("result = %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for result %q", want)
		}
	}

	select {
	case code := <-closed:
		if code != websocket.CloseNormalClosure {
			t.Errorf("close code = %d, want 1000", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for close")
	}

	if c.IsOpen() {
		t.Error("client should not report open after the server closed")
	}
}

func TestAbnormalCloseSurfacesCode(t *testing.T) {
	srv := transcriptTestServer(t, nil, websocket.CloseInternalServerErr, nil)
	defer srv.Close()

	closed := make(chan int, 1)
	c := NewClient(nil, Callbacks{
		OnClose: func(code int, reason string) { closed <- code },
	}, testLogger())

	if err := c.Connect(wsURL(srv)); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case code := <-closed:
		if code != websocket.CloseInternalServerErr {
			t.Errorf("close code = %d, want %d", code, websocket.CloseInternalServerErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for close")
	}
}

func TestConnectFailure(t *testing.T) {
	c := NewClient(nil, Callbacks{}, testLogger())
	if err := c.Connect("ws://127.0.0.1:1/v1/listen"); err == nil {
		t.Fatal("expected Connect to fail against a dead endpoint")
	}
	if c.IsOpen() {
		t.Error("client must not report open after a failed dial")
	}
}
