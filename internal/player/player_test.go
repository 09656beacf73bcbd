package player

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/mmcdole/elevate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLauncher struct {
	t       *testing.T
	ipc     bool
	err     error
	serve   func(ln net.Listener)
	url     string
	ipcPath string
}

func (f *fakeLauncher) Launch(url, ipcPath string) (Launch, error) {
	f.url, f.ipcPath = url, ipcPath
	if f.err != nil {
		return Launch{}, f.err
	}
	if ipcPath != "" && f.serve != nil {
		ln, err := net.Listen("unix", ipcPath)
		require.NoError(f.t, err)
		go f.serve(ln)
	}
	return Launch{Player: "mpv", IPC: f.ipc}, nil
}

// serveMPV answers percent-pos queries with the given values, interleaving
// event lines, then hangs up like an exiting player.
func serveMPV(percents []float64) func(net.Listener) {
	return func(ln net.Listener) {
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		for i := 0; i <= len(percents); i++ {
			line, err := r.ReadBytes('\n')
			if err != nil {
				return
			}
			var req ipcRequest
			if err := json.Unmarshal(line, &req); err != nil {
				return
			}
			fmt.Fprintln(conn, `{"event":"playback-restart"}`)
			if i == 0 {
				fmt.Fprintf(conn, `{"request_id":%d,"error":"property unavailable"}`+"\n", req.RequestID)
				continue
			}
			fmt.Fprintf(conn, `{"data":%v,"request_id":%d,"error":"success"}`+"\n", percents[i-1], req.RequestID)
		}
	}
}

func shortTempDir(t *testing.T) string {
	t.Helper()
	// unix socket paths are length-limited
	dir, err := os.MkdirTemp("", "elv")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func collect(t *testing.T, ch <-chan domain.Telemetry) []domain.Telemetry {
	t.Helper()
	var out []domain.Telemetry
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("telemetry channel never closed")
		}
	}
}

func TestPlay_StreamsTelemetryUntilPlayerExits(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no unix sockets")
	}
	fl := &fakeLauncher{t: t, ipc: true, serve: serveMPV([]float64{10, 50.5, 85})}
	p := New(fl, WithSocketDir(shortTempDir(t)), WithPollInterval(5*time.Millisecond))

	ch, err := p.Play(context.Background(), domain.Lesson{ID: "L1", VideoURL: "https://cdn.example.com/l1.mp4"})
	require.NoError(t, err)

	got := collect(t, ch)
	assert.Equal(t, []domain.Telemetry{
		{LessonID: "L1", Percent: 10},
		{LessonID: "L1", Percent: 50.5},
		{LessonID: "L1", Percent: 85},
	}, got)
	assert.Equal(t, "https://cdn.example.com/l1.mp4", fl.url)
	assert.NotEmpty(t, fl.ipcPath)

	_, statErr := os.Stat(fl.ipcPath)
	assert.True(t, os.IsNotExist(statErr), "socket removed after playback")
}

func TestPlay_YouTubeIsNotTracked(t *testing.T) {
	fl := &fakeLauncher{t: t, ipc: true}
	p := New(fl)

	ch, err := p.Play(context.Background(), domain.Lesson{ID: "L1", VideoURL: "https://www.youtube.com/embed/abc"})
	require.NoError(t, err)
	assert.Empty(t, collect(t, ch))
	assert.Empty(t, fl.ipcPath)
}

func TestPlay_PlayerWithoutIPC(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no unix sockets")
	}
	fl := &fakeLauncher{t: t, ipc: false}
	p := New(fl, WithSocketDir(shortTempDir(t)))

	ch, err := p.Play(context.Background(), domain.Lesson{ID: "L1", VideoURL: "https://cdn.example.com/l1.mp4"})
	require.NoError(t, err)
	assert.Empty(t, collect(t, ch))
}

func TestPlay_Errors(t *testing.T) {
	p := New(&fakeLauncher{t: t})
	_, err := p.Play(context.Background(), domain.Lesson{ID: "L1"})
	assert.ErrorIs(t, err, ErrNoVideo)

	boom := errors.New("no player")
	p = New(&fakeLauncher{t: t, err: boom})
	_, err = p.Play(context.Background(), domain.Lesson{ID: "L1", VideoURL: "https://cdn.example.com/a.mp4"})
	assert.ErrorIs(t, err, boom)
}

func TestPlay_DialTimeoutClosesChannel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no unix sockets")
	}
	p := New(&fakeLauncher{t: t, ipc: true}, WithSocketDir(shortTempDir(t)), WithDialTimeout(50*time.Millisecond))

	ch, err := p.Play(context.Background(), domain.Lesson{ID: "L1", VideoURL: "https://cdn.example.com/a.mp4"})
	require.NoError(t, err)
	assert.Empty(t, collect(t, ch))
}

func TestIsTrackable(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://cdn.example.com/video.mp4", true},
		{"https://www.youtube.com/watch?v=abc", false},
		{"https://youtube.com/embed/abc", false},
		{"https://youtu.be/abc", false},
		{"https://m.youtube.com/watch?v=abc", false},
		{"https://www.youtube-nocookie.com/embed/abc", false},
		{"https://notyoutube.com/v.mp4", true},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTrackable(tt.url), tt.url)
	}
}
