package player

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Launcher starts lesson videos in an external player
type Launcher struct {
	command string   // configured player command, empty to auto-detect
	args    []string // additional arguments for the player
	ipcFlag string   // IPC socket flag prefix, e.g. "--input-ipc-server="
	logger  *slog.Logger

	lookPath func(file string) (string, error)
	start    func(name string, args ...string) error
	run      func(name string, args ...string) error
}

// launchPath defines a single way to launch a player
type launchPath struct {
	path      string   // command path: "mpv" or "open-a:AppName"
	openFlags []string // for "open-a:" paths only, flags for the macOS open command
}

// playerConfig defines how a player is launched and whether it exposes mpv's IPC
type playerConfig struct {
	ipcFlag   string                  // empty when the player cannot report watch time
	platforms map[string][]launchPath // platform -> launch paths to try in order
}

// players registry
var players = map[string]playerConfig{
	"mpv": {
		ipcFlag: "--input-ipc-server=",
		platforms: map[string][]launchPath{
			"darwin":  {{path: "mpv"}},
			"linux":   {{path: "mpv"}},
			"windows": {{path: "mpv"}},
		},
	},
	"iina": {
		ipcFlag: "--mpv-input-ipc-server=",
		platforms: map[string][]launchPath{
			"darwin": {{path: "open-a:IINA", openFlags: []string{"-n"}}},
		},
	},
	"celluloid": {
		ipcFlag: "--mpv-input-ipc-server=",
		platforms: map[string][]launchPath{
			"linux": {{path: "celluloid"}},
		},
	},
	"vlc": {
		platforms: map[string][]launchPath{
			"darwin":  {{path: "vlc"}, {path: "open-a:VLC"}},
			"linux":   {{path: "vlc"}},
			"windows": {{path: "vlc"}},
		},
	},
}

// candidatePlayers is the preferred order per platform. Players that report
// watch time come first.
var candidatePlayers = map[string][]string{
	"darwin":  {"iina", "mpv", "vlc"},
	"linux":   {"mpv", "celluloid", "vlc"},
	"windows": {"mpv", "vlc"},
}

// Launch describes how a video was started.
type Launch struct {
	Player string // registry name, the configured command, or "default"
	IPC    bool   // the player was given the IPC socket
}

// NewLauncher creates a Launcher. An empty command auto-detects a player.
func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}

	var ipcFlag string
	if command != "" {
		if cfg, ok := players[playerName(command)]; ok {
			ipcFlag = cfg.ipcFlag
			logger.Debug("auto-detected player IPC flag", "player", playerName(command), "flag", ipcFlag)
		}
	}

	return &Launcher{
		command:  command,
		args:     args,
		ipcFlag:  ipcFlag,
		logger:   logger,
		lookPath: exec.LookPath,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

func playerName(command string) string {
	base := filepath.Base(command)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToLower(base)
}

// Launch opens url in the configured player, a detected player, or the system
// default, in that order. ipcPath is handed to players that support it.
func (l *Launcher) Launch(url, ipcPath string) (Launch, error) {
	if l.command != "" {
		l.logger.Info("using configured player", "command", l.command)
		return l.launchConfigured(url, ipcPath)
	}

	if launch, err := l.detectAndLaunch(url, ipcPath); err == nil {
		return launch, nil
	}

	l.logger.Info("no candidate players found, using system default")
	if err := l.OpenURL(url); err != nil {
		return Launch{}, err
	}
	return Launch{Player: "default"}, nil
}

func ipcArgs(flag, ipcPath string) []string {
	if flag == "" || ipcPath == "" {
		return nil
	}
	return []string{flag + ipcPath}
}

// detectAndLaunch tries candidate players in order
func (l *Launcher) detectAndLaunch(url, ipcPath string) (Launch, error) {
	candidates, ok := candidatePlayers[runtime.GOOS]
	if !ok {
		candidates = candidatePlayers["linux"]
	}

	for _, name := range candidates {
		cfg := players[name]
		paths, ok := cfg.platforms[runtime.GOOS]
		if !ok {
			continue
		}
		args := ipcArgs(cfg.ipcFlag, ipcPath)

		for _, lp := range paths {
			var err error
			if app, found := strings.CutPrefix(lp.path, "open-a:"); found {
				err = l.openWithApp(app, url, args, lp.openFlags)
			} else {
				err = l.launchCommand(lp.path, url, args)
			}
			if err == nil {
				l.logger.Info("launched with detected player", "player", name, "path", lp.path)
				return Launch{Player: name, IPC: len(args) > 0}, nil
			}
			l.logger.Debug("launch path not available", "player", name, "path", lp.path, "error", err)
		}
	}

	return Launch{}, fmt.Errorf("no candidate players found")
}

// openWithApp opens url with a macOS app using "open -a"
func (l *Launcher) openWithApp(app, url string, playerArgs, openFlags []string) error {
	cmdArgs := append([]string{}, openFlags...)
	cmdArgs = append(cmdArgs, "-a", app)
	if len(playerArgs) > 0 {
		cmdArgs = append(cmdArgs, "--args")
		cmdArgs = append(cmdArgs, playerArgs...)
	}
	cmdArgs = append(cmdArgs, url)
	// run waits so a missing app is reported
	return l.run("open", cmdArgs...)
}

// launchCommand starts a CLI player found in PATH
func (l *Launcher) launchCommand(command, url string, args []string) error {
	if _, err := l.lookPath(command); err != nil {
		return err
	}
	return l.start(command, append(append([]string{}, args...), url)...)
}

// launchConfigured launches url with the configured player
func (l *Launcher) launchConfigured(url, ipcPath string) (Launch, error) {
	args := append([]string{}, l.args...)
	extra := ipcArgs(l.ipcFlag, ipcPath)
	args = append(args, extra...)

	l.logger.Info("launching player", "command", l.command, "args", args, "url", url)

	if runtime.GOOS == "darwin" {
		if _, err := l.lookPath(l.command); err != nil {
			var openFlags []string
			if cfg, ok := players[playerName(l.command)]; ok {
				for _, lp := range cfg.platforms["darwin"] {
					if strings.HasPrefix(lp.path, "open-a:") {
						openFlags = lp.openFlags
						break
					}
				}
			}
			if err := l.openWithApp(l.command, url, args, openFlags); err != nil {
				return Launch{}, err
			}
			return Launch{Player: l.command, IPC: len(extra) > 0}, nil
		}
	}

	if err := l.start(l.command, append(args, url)...); err != nil {
		return Launch{}, fmt.Errorf("launch %s: %w", l.command, err)
	}
	return Launch{Player: l.command, IPC: len(extra) > 0}, nil
}

// OpenURL opens url with the system default handler. The checkout page is
// opened this way too.
func (l *Launcher) OpenURL(url string) error {
	var name string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		name, args = "open", []string{url}
	case "windows":
		name, args = "cmd", []string{"/c", "start", "", url}
	default:
		name, args = "xdg-open", []string{url}
	}

	l.logger.Info("launching with system default", "os", runtime.GOOS, "url", url)
	return l.start(name, args...)
}
