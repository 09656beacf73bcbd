package player

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/elevate/internal/domain"
)

// ErrNoVideo indicates the lesson has no video URL, usually because the user
// is not enrolled.
var ErrNoVideo = errors.New("lesson has no video")

// launcher abstracts player launching (consumer-defined interface)
type launcher interface {
	Launch(url, ipcPath string) (Launch, error)
}

// Player plays lessons and reports how much of each has been watched.
type Player struct {
	launcher    launcher
	interval    time.Duration
	dialTimeout time.Duration
	socketDir   string
	logger      *slog.Logger
}

// Option configures a Player.
type Option func(*Player)

// WithPollInterval sets how often the watched percentage is sampled.
func WithPollInterval(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithDialTimeout bounds the wait for the player's IPC socket.
func WithDialTimeout(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.dialTimeout = d
		}
	}
}

// WithSocketDir sets where IPC sockets are created.
func WithSocketDir(dir string) Option {
	return func(p *Player) { p.socketDir = dir }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Player) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Player.
func New(l launcher, opts ...Option) *Player {
	p := &Player{
		launcher:    l,
		interval:    time.Second,
		dialTimeout: 10 * time.Second,
		socketDir:   os.TempDir(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play launches lesson and returns a channel of watch-time samples. The
// channel closes when the player exits or ctx is done; it closes at once when
// the video cannot report telemetry.
func (p *Player) Play(ctx context.Context, lesson domain.Lesson) (<-chan domain.Telemetry, error) {
	if lesson.VideoURL == "" {
		return nil, ErrNoVideo
	}

	trackable := IsTrackable(lesson.VideoURL) && runtime.GOOS != "windows"
	var ipcPath string
	if trackable {
		ipcPath = filepath.Join(p.socketDir, "elevate-"+uuid.NewString()+".sock")
	}

	launch, err := p.launcher.Launch(lesson.VideoURL, ipcPath)
	if err != nil {
		p.logger.Error("failed to launch player", "lessonID", lesson.ID, "error", err)
		return nil, err
	}
	p.logger.Info("playing lesson", "lessonID", lesson.ID, "player", launch.Player, "tracked", trackable && launch.IPC)

	ch := make(chan domain.Telemetry)
	if !trackable || !launch.IPC {
		close(ch)
		return ch, nil
	}

	go p.poll(ctx, lesson.ID, ipcPath, ch)
	return ch, nil
}

func (p *Player) poll(ctx context.Context, lessonID domain.ID, ipcPath string, ch chan<- domain.Telemetry) {
	defer close(ch)
	defer os.Remove(ipcPath)

	conn, err := dialIPC(ctx, ipcPath, p.dialTimeout, 100*time.Millisecond)
	if err != nil {
		p.logger.Warn("player ipc unavailable, watch time not tracked", "lessonID", lessonID, "error", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		pct, ok, err := conn.percentPos()
		if err != nil {
			p.logger.Debug("player ipc closed", "lessonID", lessonID, "error", err)
			return
		}
		if ok {
			select {
			case ch <- domain.Telemetry{LessonID: lessonID, Percent: pct}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

var untrackedHosts = []string{"youtube.com", "youtu.be", "youtube-nocookie.com"}

// IsTrackable reports whether the video at rawURL can report watch time.
// Embedded YouTube videos never do.
func IsTrackable(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range untrackedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return false
		}
	}
	return true
}
