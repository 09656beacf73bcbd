package player

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// ipcConn speaks mpv's JSON IPC protocol: one JSON object per line, replies
// matched by request_id, unsolicited event lines interleaved.
type ipcConn struct {
	conn    net.Conn
	r       *bufio.Reader
	nextID  int
	timeout time.Duration
}

type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id"`
}

type ipcReply struct {
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	RequestID int             `json:"request_id"`
	Event     string          `json:"event"`
}

// dialIPC connects to the socket at path, retrying until the player has
// created it or timeout passes.
func dialIPC(ctx context.Context, path string, timeout, retry time.Duration) (*ipcConn, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return &ipcConn{conn: conn, r: bufio.NewReader(conn), timeout: 2 * time.Second}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("dial player ipc %s: %w", path, err)
		case <-time.After(retry):
		}
	}
}

func (c *ipcConn) Close() error { return c.conn.Close() }

// getProperty returns the raw value of an mpv property. ok is false when the
// property is currently unavailable (no file loaded yet).
func (c *ipcConn) getProperty(name string) (json.RawMessage, bool, error) {
	c.nextID++
	id := c.nextID

	req, err := json.Marshal(ipcRequest{Command: []any{"get_property", name}, RequestID: id})
	if err != nil {
		return nil, false, err
	}
	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, false, err
	}
	if _, err := c.conn.Write(append(req, '\n')); err != nil {
		return nil, false, err
	}

	for {
		line, err := c.r.ReadBytes('\n')
		if err != nil {
			return nil, false, err
		}
		var reply ipcReply
		if err := json.Unmarshal(line, &reply); err != nil {
			continue
		}
		if reply.Event != "" || reply.RequestID != id {
			continue
		}
		if reply.Error != "success" {
			return nil, false, nil
		}
		return reply.Data, true, nil
	}
}

// percentPos returns how much of the current file has played, 0-100.
func (c *ipcConn) percentPos() (float64, bool, error) {
	raw, ok, err := c.getProperty("percent-pos")
	if err != nil || !ok {
		return 0, false, err
	}
	var pct float64
	if err := json.Unmarshal(raw, &pct); err != nil {
		return 0, false, nil
	}
	return pct, true, nil
}
