package discord

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/nowscrobble/internal/presence"
)

// fakeDiscord serves the client side of net.Pipe connections.
type fakeDiscord struct {
	t *testing.T

	mu         sync.Mutex
	handshakes []handshake
	commands   []command
	dials      int

	// errorEvent makes every command fail with an ERROR dispatch.
	errorEvent bool
	// pingFirst sends a ping before each response.
	pingFirst bool
	// rejectHandshake answers the handshake with a close frame.
	rejectHandshake bool
	// hangupAfter closes the connection after that many commands (0 = never).
	hangupAfter int
}

func (f *fakeDiscord) dial(context.Context) (net.Conn, error) {
	client, server := net.Pipe()
	f.mu.Lock()
	f.dials++
	f.mu.Unlock()
	go f.serve(server)
	return client, nil
}

func (f *fakeDiscord) serve(conn net.Conn) {
	defer conn.Close()

	op, payload, err := readFrame(conn)
	if err != nil || op != opHandshake {
		return
	}
	var hs handshake
	_ = json.Unmarshal(payload, &hs)
	f.mu.Lock()
	f.handshakes = append(f.handshakes, hs)
	f.mu.Unlock()

	f.mu.Lock()
	reject, ping, fail := f.rejectHandshake, f.pingFirst, f.errorEvent
	f.mu.Unlock()

	if reject {
		_ = writeFrame(conn, opClose, errorData{Code: 4000, Message: "Invalid Client ID"})
		return
	}
	_ = writeFrame(conn, opFrame, response{Cmd: "DISPATCH", Evt: "READY", Data: json.RawMessage(`{"v":1}`)})

	served := 0
	for {
		op, payload, err := readFrame(conn)
		if err != nil || op == opClose {
			return
		}
		if op != opFrame {
			continue
		}
		var cmd command
		_ = json.Unmarshal(payload, &cmd)
		f.mu.Lock()
		f.commands = append(f.commands, cmd)
		f.mu.Unlock()

		served++
		f.mu.Lock()
		hangup := f.hangupAfter > 0 && served >= f.hangupAfter
		f.mu.Unlock()
		if hangup {
			return
		}

		if ping {
			_ = writeFrame(conn, opPing, map[string]int{"n": served})
			if op, _, err := readFrame(conn); err != nil || op != opPong {
				f.t.Errorf("expected pong, got op %d err %v", op, err)
				return
			}
		}

		resp := response{Cmd: cmd.Cmd, Nonce: cmd.Nonce, Data: json.RawMessage(`{}`)}
		if fail {
			resp.Evt = "ERROR"
			resp.Data = json.RawMessage(`{"code":4000,"message":"child \"activity\" fails"}`)
		}
		_ = writeFrame(conn, opFrame, resp)
	}
}

func (f *fakeDiscord) snapshot() ([]handshake, []command, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]handshake(nil), f.handshakes...), append([]command(nil), f.commands...), f.dials
}

func newTestClient(f *fakeDiscord) *Client {
	return New("123456", WithDialer(f.dial), WithPID(4242))
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_SetActivity(t *testing.T) {
	f := &fakeDiscord{t: t}
	c := newTestClient(f)
	defer c.Close()

	start := time.Unix(1700000000, 0)
	err := c.SetActivity(testContext(t), presence.Activity{
		Details:        "Title",
		State:          "by Artist • Album",
		Start:          start,
		End:            start.Add(200 * time.Second),
		LargeImageKey:  "https://i.scdn.co/image/abc",
		LargeImageText: "Title",
		SmallImageKey:  "spotify",
		SmallImageText: "Spotify",
		Buttons:        []presence.Button{{Label: "Listen on Spotify", URL: "https://open.spotify.com/track/xyz"}},
	})
	require.NoError(t, err)

	handshakes, commands, _ := f.snapshot()
	require.Len(t, handshakes, 1)
	assert.Equal(t, handshake{V: 1, ClientID: "123456"}, handshakes[0])

	require.Len(t, commands, 1)
	cmd := commands[0]
	assert.Equal(t, "SET_ACTIVITY", cmd.Cmd)
	assert.NotEmpty(t, cmd.Nonce)

	var args map[string]any
	require.NoError(t, json.Unmarshal(cmd.Args, &args))
	assert.InDelta(t, 4242, args["pid"], 0)

	activity := args["activity"].(map[string]any)
	assert.Equal(t, "Title", activity["details"])
	assert.Equal(t, "by Artist • Album", activity["state"])
	assert.Equal(t, false, activity["instance"])

	ts := activity["timestamps"].(map[string]any)
	assert.InDelta(t, 1700000000, ts["start"], 0)
	assert.InDelta(t, 1700000200, ts["end"], 0)

	assets := activity["assets"].(map[string]any)
	assert.Equal(t, "https://i.scdn.co/image/abc", assets["large_image"])
	assert.Equal(t, "Title", assets["large_text"])
	assert.Equal(t, "spotify", assets["small_image"])
	assert.Equal(t, "Spotify", assets["small_text"])

	buttons := activity["buttons"].([]any)
	require.Len(t, buttons, 1)
	assert.Equal(t, map[string]any{"label": "Listen on Spotify", "url": "https://open.spotify.com/track/xyz"}, buttons[0])
}

func TestClient_NoEndTimestampWhenUnknown(t *testing.T) {
	f := &fakeDiscord{t: t}
	c := newTestClient(f)
	defer c.Close()

	require.NoError(t, c.SetActivity(testContext(t), presence.Activity{Details: "Title", Start: time.Unix(10, 0)}))

	_, commands, _ := f.snapshot()
	require.Len(t, commands, 1)
	assert.NotContains(t, string(commands[0].Args), `"end"`)
	assert.NotContains(t, string(commands[0].Args), `"buttons"`)
}

func TestClient_ClearActivity(t *testing.T) {
	f := &fakeDiscord{t: t}
	c := newTestClient(f)
	defer c.Close()

	require.NoError(t, c.ClearActivity(testContext(t)))
	require.NoError(t, c.ClearActivity(testContext(t)))

	_, commands, dials := f.snapshot()
	require.Len(t, commands, 2)
	assert.JSONEq(t, `{"pid":4242,"activity":null}`, string(commands[0].Args))
	assert.Equal(t, 1, dials, "connection is reused")
}

func TestClient_ErrorEventKeepsConnection(t *testing.T) {
	f := &fakeDiscord{t: t, errorEvent: true}
	c := newTestClient(f)
	defer c.Close()

	err := c.SetActivity(testContext(t), presence.Activity{Details: "Title"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4000")

	_ = c.SetActivity(testContext(t), presence.Activity{Details: "Title"})
	_, _, dials := f.snapshot()
	assert.Equal(t, 1, dials)
}

func TestClient_ReconnectsAfterHangup(t *testing.T) {
	f := &fakeDiscord{t: t, hangupAfter: 1}
	c := newTestClient(f)
	defer c.Close()

	require.Error(t, c.SetActivity(testContext(t), presence.Activity{Details: "One"}))

	f.mu.Lock()
	f.hangupAfter = 0
	f.mu.Unlock()

	require.NoError(t, c.SetActivity(testContext(t), presence.Activity{Details: "Two"}))
	_, commands, dials := f.snapshot()
	assert.Equal(t, 2, dials)
	assert.Len(t, commands, 2)
}

func TestClient_AnswersPing(t *testing.T) {
	f := &fakeDiscord{t: t, pingFirst: true}
	c := newTestClient(f)
	defer c.Close()

	require.NoError(t, c.SetActivity(testContext(t), presence.Activity{Details: "Title"}))
}

func TestClient_HandshakeRejected(t *testing.T) {
	f := &fakeDiscord{t: t, rejectHandshake: true}
	c := newTestClient(f)

	err := c.Connect(testContext(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Client ID")
}

func TestClient_DialFailure(t *testing.T) {
	c := New("1", WithDialer(func(context.Context) (net.Conn, error) { return nil, ErrNotRunning }))

	err := c.SetActivity(testContext(t), presence.Activity{Details: "Title"})
	require.ErrorIs(t, err, ErrNotRunning)
	require.NoError(t, c.Close())
}

func TestFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, opFrame, map[string]string{"cmd": "X"}))

	raw := buf.Bytes()
	assert.Equal(t, opFrame, binary.LittleEndian.Uint32(raw[0:4]))
	assert.Equal(t, uint32(len(raw)-8), binary.LittleEndian.Uint32(raw[4:8]))

	op, payload, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, opFrame, op)
	assert.JSONEq(t, `{"cmd":"X"}`, string(payload))
}

func TestFrame_RejectsOversizedPayload(t *testing.T) {
	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], opFrame)
	binary.LittleEndian.PutUint32(header[4:8], maxFrameSize+1)

	_, _, err := readFrame(bytes.NewReader(header[:]))
	require.Error(t, err)
}

func TestFitText(t *testing.T) {
	long := strings.Repeat("é", 100)

	tests := []struct {
		name string
		in   string
		want func(t *testing.T, got string)
	}{
		{"empty stays empty", "", func(t *testing.T, got string) { assert.Empty(t, got) }},
		{"single char padded", "X", func(t *testing.T, got string) { assert.Equal(t, "X ", got) }},
		{"normal unchanged", "Title", func(t *testing.T, got string) { assert.Equal(t, "Title", got) }},
		{"long truncated", long, func(t *testing.T, got string) {
			assert.LessOrEqual(t, len(got), maxTextLen)
			assert.True(t, strings.HasSuffix(got, "..."))
			assert.True(t, strings.HasPrefix(long, strings.TrimSuffix(got, "...")))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, fitText(tt.in))
		})
	}
}

func TestDecodeError(t *testing.T) {
	err := decodeError([]byte(`{"code":4000,"message":"bad"}`))
	assert.EqualError(t, err, "discord error 4000: bad")
	assert.EqualError(t, decodeError([]byte(`garbage`)), "discord error")
	assert.False(t, errors.Is(err, ErrNotRunning))
}
