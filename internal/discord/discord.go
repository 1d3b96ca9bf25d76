// Package discord is a Rich Presence client speaking the Discord desktop
// client's local IPC protocol.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/llehouerou/nowscrobble/internal/presence"
)

// ErrNotRunning is returned when no Discord IPC endpoint accepts a connection.
var ErrNotRunning = errors.New("discord is not running")

const defaultIOTimeout = 5 * time.Second

// Dialer opens the IPC transport.
type Dialer func(ctx context.Context) (net.Conn, error)

// Client sets the user's activity. It connects lazily and reconnects after
// transport errors; calls are serialized.
type Client struct {
	clientID string
	pid      int
	dial     Dialer
	log      *zap.Logger

	mu   sync.Mutex
	conn net.Conn
}

var _ presence.Sink = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the platform IPC dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithPID sets the process id reported with activities.
func WithPID(pid int) Option {
	return func(c *Client) { c.pid = pid }
}

// New returns a client for the Discord application clientID.
func New(clientID string, opts ...Option) *Client {
	c := &Client{
		clientID: clientID,
		pid:      os.Getpid(),
		dial:     dialIPC,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the IPC connection and completes the handshake. It is
// a no-op when already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

// SetActivity shows a as the user's activity.
func (c *Client) SetActivity(ctx context.Context, a presence.Activity) error {
	return c.setActivity(ctx, toWire(a))
}

// ClearActivity removes the activity.
func (c *Client) ClearActivity(ctx context.Context) error {
	return c.setActivity(ctx, nil)
}

// Close sends a close frame and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = writeFrame(c.conn, opClose, struct{}{})
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) setActivity(ctx context.Context, a *wireActivity) error {
	args, err := json.Marshal(setActivityArgs{PID: c.pid, Activity: a})
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return err
	}

	resp, err := c.request(ctx, command{Cmd: "SET_ACTIVITY", Args: args, Nonce: uuid.NewString()})
	if err != nil {
		c.dropLocked()
		return err
	}
	if resp.Evt == "ERROR" {
		return decodeError(resp.Data)
	}
	return nil
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.conn = conn
	c.setDeadline(ctx)

	if err := writeFrame(conn, opHandshake, handshake{V: 1, ClientID: c.clientID}); err != nil {
		c.dropLocked()
		return fmt.Errorf("handshake: %w", err)
	}

	resp, err := c.readResponse()
	if err != nil {
		c.dropLocked()
		return fmt.Errorf("handshake: %w", err)
	}
	if resp.Evt != "READY" {
		c.dropLocked()
		return fmt.Errorf("handshake: unexpected %s event", resp.Evt)
	}

	c.log.Debug("discord ipc connected")
	return nil
}

// request writes cmd and waits for the response carrying its nonce.
func (c *Client) request(ctx context.Context, cmd command) (response, error) {
	c.setDeadline(ctx)
	if err := writeFrame(c.conn, opFrame, cmd); err != nil {
		return response{}, fmt.Errorf("write %s: %w", cmd.Cmd, err)
	}
	for {
		resp, err := c.readResponse()
		if err != nil {
			return response{}, fmt.Errorf("read %s: %w", cmd.Cmd, err)
		}
		if resp.Nonce == cmd.Nonce {
			return resp, nil
		}
	}
}

// readResponse reads frames until a dispatch arrives, answering pings.
func (c *Client) readResponse() (response, error) {
	for {
		op, payload, err := readFrame(c.conn)
		if err != nil {
			return response{}, err
		}
		switch op {
		case opFrame:
			var resp response
			if err := json.Unmarshal(payload, &resp); err != nil {
				return response{}, fmt.Errorf("decode frame: %w", err)
			}
			return resp, nil
		case opPing:
			var pong any = struct{}{}
			if json.Valid(payload) {
				pong = json.RawMessage(payload)
			}
			if err := writeFrame(c.conn, opPong, pong); err != nil {
				return response{}, err
			}
		case opClose:
			return response{}, fmt.Errorf("closed by discord: %w", decodeError(payload))
		}
	}
}

func (c *Client) setDeadline(ctx context.Context) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultIOTimeout)
	}
	_ = c.conn.SetDeadline(deadline)
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func decodeError(data []byte) error {
	var e errorData
	if err := json.Unmarshal(data, &e); err != nil || (e.Code == 0 && e.Message == "") {
		return errors.New("discord error")
	}
	return fmt.Errorf("discord error %d: %s", e.Code, e.Message)
}
