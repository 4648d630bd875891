// Package deepgram is a client for the realtime transcription WebSocket
// endpoint. It forwards binary PCM frames upstream and routes inbound JSON
// results to registered callbacks.
package deepgram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const listenPath = "/v1/listen"

// Dialer establishes WebSocket connections. *websocket.Dialer satisfies it;
// tests inject their own.
type Dialer interface {
	Dial(urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// StreamURL builds the streaming endpoint URL with the credential, language
// and service provider as query parameters.
func StreamURL(host, accessToken, language, service string) string {
	u := url.URL{Scheme: "wss", Host: host, Path: listenPath}
	q := u.Query()
	q.Set("access_token", accessToken)
	q.Set("language", language)
	q.Set("service", service)
	u.RawQuery = q.Encode()
	return u.String()
}

// Client owns one WebSocket connection to the streaming endpoint.
type Client struct {
	dialer Dialer
	logger *log.Logger
	cb     Callbacks

	mu   sync.Mutex
	conn *websocket.Conn
	open bool
}

func NewClient(dialer Dialer, cb Callbacks, logger *log.Logger) *Client {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Client{
		dialer: dialer,
		logger: logger,
		cb:     cb,
	}
}

// Connect dials the given streaming URL and starts the read loop. OnOpen
// fires before Connect returns.
func (c *Client) Connect(streamURL string) error {
	conn, _, err := c.dialer.Dial(streamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to streaming endpoint: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.open = true
	c.mu.Unlock()

	c.logger.Info("open", "host", conn.RemoteAddr())
	if c.cb.OnOpen != nil {
		c.cb.OnOpen()
	}

	go c.readLoop(conn)

	return nil
}

// Send writes one binary PCM frame. Frames sent while the socket is not
// open are dropped; there is no buffering or backpressure on this path.
func (c *Client) Send(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || c.conn == nil {
		return
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.logger.Error("failed to send audio frame", "error", err)
	}
}

// IsOpen reports whether the socket is currently open.
func (c *Client) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Close sends a normal-closure message and closes the socket. Calling it
// when nothing is open is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client stopping")
	if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		c.logger.Debug("close message not delivered", "error", err)
	}

	err := c.conn.Close()
	c.conn = nil
	c.open = false
	return err
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}
		c.handleMessage(message)
	}
}

func (c *Client) handleReadError(err error) {
	c.mu.Lock()
	wasOpen := c.open
	c.open = false
	c.mu.Unlock()

	if !wasOpen {
		// Close() already tore the connection down.
		return
	}

	if closeErr, ok := err.(*websocket.CloseError); ok {
		if closeErr.Code == websocket.CloseNormalClosure {
			c.logger.Info("closed", "code", closeErr.Code)
		} else {
			c.logger.Warn("abnormal close", "code", closeErr.Code, "reason", closeErr.Text)
		}
		if c.cb.OnClose != nil {
			c.cb.OnClose(closeErr.Code, closeErr.Text)
		}
		return
	}

	c.logger.Error("socket failure", "error", err)
	if c.cb.OnError != nil {
		c.cb.OnError(err)
	}
}

func (c *Client) handleMessage(raw []byte) {
	var msg resultMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		// One bad frame is dropped; the session continues.
		c.logger.Warn("dropping unparseable frame", "error", err)
		return
	}

	if msg.Error != "" {
		c.logger.Error("server error", "error", msg.Error)
		if c.cb.OnAPIError != nil {
			c.cb.OnAPIError(msg.Error)
		}
		return
	}

	if len(msg.Channel.Alternatives) == 0 {
		return
	}

	if c.cb.OnResult != nil {
		c.cb.OnResult(msg.Channel.Alternatives[0].Transcript, msg.IsFinal)
	}
}
