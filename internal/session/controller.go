// Package session owns the lifecycle of one transcription attempt: obtain a
// credential, open the microphone, connect the streaming socket, pump PCM
// frames, and route inbound results into the transcript buffer.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/rakhabit/deepgram-realtime-transcription/internal/audio"
	"github.com/rakhabit/deepgram-realtime-transcription/internal/auth"
	"github.com/rakhabit/deepgram-realtime-transcription/internal/deepgram"
	"github.com/rakhabit/deepgram-realtime-transcription/internal/pcm"
	"github.com/rakhabit/deepgram-realtime-transcription/internal/transcript"
)

// CredentialProvider issues streaming credentials. *auth.Provider satisfies
// it; tests inject their own.
type CredentialProvider interface {
	Grant(ctx context.Context, bearerOverride string) (auth.Credential, error)
}

// Options configures a Controller.
type Options struct {
	Provider CredentialProvider
	Source   audio.Source
	// Dialer is passed through to the streaming client; nil means the
	// default gorilla dialer.
	Dialer deepgram.Dialer

	StreamingHost string
	Language      string
	Service       string

	// OnUpdate, when set, fires after every transcript change with the
	// finalized segments and the current interim segment.
	OnUpdate func(final []string, interim string)

	Logger *log.Logger
}

// Controller is the session state machine. One Start/Stop cycle is one
// transcription attempt; the credential cache survives across attempts.
type Controller struct {
	opts   Options
	logger *log.Logger
	buffer *transcript.Buffer

	mu      sync.Mutex
	state   State
	client  *deepgram.Client
	capture bool // microphone currently held
	cred    auth.Credential
	hasCred bool
	id      string
	started time.Time

	// now is replaceable in tests for expiry checks.
	now func() time.Time
}

func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		opts:   opts,
		logger: logger,
		buffer: transcript.NewBuffer(),
		state:  StateIdle,
		now:    time.Now,
	}
}

// State returns the current connection state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ID returns the ULID of the current or most recent session.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Transcript exposes the transcript buffer.
func (c *Controller) Transcript() *transcript.Buffer {
	return c.buffer
}

// Start runs one startup sequence: credential, microphone, socket. It is
// valid only from idle or error; any step failing aborts the sequence and
// leaves the controller in the error state with resources acquired so far
// still held, to be released by Stop.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot start while %s", state)
	}
	c.state = StateConnecting
	c.id = ulid.Make().String()
	c.started = c.now()
	c.mu.Unlock()

	c.logger.Info("starting", "session", c.id)

	cred, err := c.credential(ctx)
	if err != nil {
		c.setState(StateError)
		return err
	}

	client := deepgram.NewClient(c.opts.Dialer, deepgram.Callbacks{
		OnResult:   c.handleResult,
		OnAPIError: c.handleAPIError,
		OnError:    c.handleSocketError,
		OnClose:    c.handleClose,
	}, c.logger)

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	// Microphone comes after the credential and before the socket. Frames
	// captured before the socket opens are dropped by Send.
	if err := c.opts.Source.Start(func(frame []float32) {
		client.Send(pcm.Bytes(frame))
	}); err != nil {
		c.setState(StateError)
		return err
	}
	c.mu.Lock()
	c.capture = true
	c.mu.Unlock()

	streamURL := deepgram.StreamURL(c.opts.StreamingHost, cred.AccessToken, c.opts.Language, c.opts.Service)
	if err := client.Connect(streamURL); err != nil {
		c.setState(StateError)
		return &SocketError{Err: err}
	}

	c.setState(StateConnected)
	return nil
}

// credential returns the cached credential when still valid, otherwise
// requests a fresh one and caches it.
func (c *Controller) credential(ctx context.Context) (auth.Credential, error) {
	c.mu.Lock()
	cred, ok := c.cred, c.hasCred
	c.mu.Unlock()

	if ok && !cred.Expired(c.now()) {
		return cred, nil
	}

	cred, err := c.opts.Provider.Grant(ctx, "")
	if err != nil {
		return auth.Credential{}, err
	}

	c.mu.Lock()
	c.cred = cred
	c.hasCred = true
	c.mu.Unlock()

	return cred, nil
}

// Stop releases everything the session holds: the microphone first, then
// the socket. It is valid from any state and idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	client := c.client
	capture := c.capture
	started := c.started
	c.client = nil
	c.capture = false
	c.state = StateIdle
	c.mu.Unlock()

	if capture {
		if err := c.opts.Source.Stop(); err != nil {
			c.logger.Error("failed to stop capture", "error", err)
		}
	}
	if client != nil {
		if err := client.Close(); err != nil {
			c.logger.Debug("socket close", "error", err)
		}
		c.logger.Info("stopped", "session", c.id, "duration", time.Since(started).Round(time.Millisecond))
	}
}

// ClearTranscript empties the transcript buffer. Valid only when idle.
func (c *Controller) ClearTranscript() error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state != StateIdle {
		return fmt.Errorf("cannot clear transcript while %s", state)
	}
	c.buffer.Clear()
	c.notify()
	return nil
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) handleResult(text string, isFinal bool) {
	if isFinal {
		c.buffer.Final(text)
	} else {
		c.buffer.Partial(text)
	}
	c.notify()
}

func (c *Controller) handleAPIError(msg string) {
	// Reported only; the server decides whether the session survives.
	c.logger.Error("transcription error", "session", c.id, "error", msg)
}

func (c *Controller) handleSocketError(err error) {
	c.logger.Error("session failed", "session", c.id, "error", err)
	c.setState(StateError)
}

// handleClose runs when the socket closes from the server side. The
// microphone is released here because close is not guaranteed to follow an
// explicit Stop.
func (c *Controller) handleClose(code int, reason string) {
	c.mu.Lock()
	capture := c.capture
	c.capture = false
	c.client = nil
	c.state = StateIdle
	c.mu.Unlock()

	if capture {
		if err := c.opts.Source.Stop(); err != nil {
			c.logger.Error("failed to stop capture", "error", err)
		}
	}
}

func (c *Controller) notify() {
	if c.opts.OnUpdate != nil {
		c.opts.OnUpdate(c.buffer.Segments(), c.buffer.Interim())
	}
}
