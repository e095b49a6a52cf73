// Package launcher manages the local browser process: find the binary,
// compose the flags, launch with remote debugging enabled, stop the
// instances launched by us. It also resolves the websocket control URL
// from the plain HTTP discovery endpoint.
package launcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chromectl/chromectl/lib/defaults"
	"github.com/chromectl/chromectl/lib/utils"
	"github.com/ysmood/kit"
	"github.com/ysmood/leakless"
)

// ProfileMarker is part of every default user-data-dir. The stop command
// recognizes the instances we launched by this marker in their command line.
const ProfileMarker = "chromectl"

// Launcher is a helper to launch the browser binary smartly
type Launcher struct {
	Flags map[string][]string `json:"flags"`

	bin      string
	leakless bool
	reap     bool
	logger   utils.Logger
	parser   *URLParser
	pid      int
	exit     chan struct{}
}

// New returns the default arguments to start the browser.
// "--" is optional, with or without it won't affect the result.
func New() *Launcher {
	dir := defaults.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), ProfileMarker, "profile-"+kit.RandString(8))
	}

	defaultFlags := map[string][]string{
		"user-data-dir":         {dir},
		"remote-debugging-port": {defaults.Port},

		"remote-allow-origins":     {"*"},
		"no-first-run":             nil,
		"no-default-browser-check": nil,
		"disable-features":         {"PrivacySandboxSettings4"},

		"headless": nil,
	}

	if defaults.Show {
		delete(defaultFlags, "headless")
	}

	return &Launcher{
		Flags:    defaultFlags,
		bin:      defaults.Bin,
		leakless: true,
		reap:     true,
		logger:   utils.LoggerQuiet,
		parser:   NewURLParser(),
		exit:     make(chan struct{}),
	}
}

// Get the value of a flag
func (l *Launcher) Get(name string) (string, bool) {
	v, has := l.Flags[l.normalize(name)]
	if !has {
		return "", false
	}
	return strings.Join(v, ","), true
}

// Set a flag
func (l *Launcher) Set(name string, values ...string) *Launcher {
	l.Flags[l.normalize(name)] = values
	return l
}

// Delete a flag
func (l *Launcher) Delete(name string) *Launcher {
	delete(l.Flags, l.normalize(name))
	return l
}

func (l *Launcher) normalize(name string) string {
	return strings.TrimLeft(name, "-")
}

// Bin sets the browser binary path, empty means auto detect
func (l *Launcher) Bin(path string) *Launcher {
	l.bin = path
	return l
}

// Headless switch
func (l *Launcher) Headless(enable bool) *Launcher {
	if enable {
		return l.Set("headless")
	}
	return l.Delete("headless")
}

// UserDataDir sets the browser profile dir
func (l *Launcher) UserDataDir(dir string) *Launcher {
	return l.Set("user-data-dir", dir)
}

// RemoteDebuggingPort of the launched browser, "0" means a random port
func (l *Launcher) RemoteDebuggingPort(port string) *Launcher {
	return l.Set("remote-debugging-port", port)
}

// Leakless switch. When enabled a headless launch is supervised by the
// leakless helper so the browser dies with us.
func (l *Launcher) Leakless(enable bool) *Launcher {
	l.leakless = enable
	return l
}

// Reap switch for zombie child reaping, useful when running as PID 1
func (l *Launcher) Reap(enable bool) *Launcher {
	l.reap = enable
	return l
}

// Logger sets the logger for the launch diagnostics
func (l *Launcher) Logger(logger utils.Logger) *Launcher {
	l.logger = logger
	return l
}

// FormatArgs to the final command line arguments
func (l *Launcher) FormatArgs() []string {
	execArgs := []string{}
	for k, v := range l.Flags {
		if k == "" {
			continue
		}
		str := "--" + k
		if v != nil {
			str += "=" + strings.Join(v, ",")
		}
		execArgs = append(execArgs, str)
	}
	sort.Strings(execArgs)
	return append(execArgs, l.Flags[""]...)
}

// PID returns the browser process id after a successful Launch, 0 when an
// already-running instance was reused instead of launching one.
func (l *Launcher) PID() int {
	return l.pid
}

// Launch the browser and return the control URL (such as http://127.0.0.1:9222).
// When a fixed debugging port is already serving, the running instance is
// reused instead of launching a second one.
func (l *Launcher) Launch() (string, error) {
	if port, _ := l.Get("remote-debugging-port"); port != "0" && port != "" {
		u := "http://" + defaults.Host + ":" + port
		if ws, err := GetWebSocketDebuggerURL(u); err == nil && ws != "" {
			return u, nil
		}
	}

	// only needed once we own a child process
	if l.reap {
		runReaper()
	}

	bin := l.bin
	if bin == "" {
		var err error
		bin, err = LookBin()
		if err != nil {
			return "", err
		}
	}

	if dir, has := l.Get("user-data-dir"); has {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", err
		}
	}

	var ll *leakless.Launcher
	var cmd *exec.Cmd

	_, headless := l.Get("headless")

	if headless && l.leakless && leakless.Support() {
		ll = leakless.New()
		cmd = ll.Command(bin, l.FormatArgs()...)
	} else {
		cmd = exec.Command(bin, l.FormatArgs()...)
	}

	l.osSetupCmd(cmd)

	// the browser prints "DevTools listening on ws://..." to stderr
	cmd.Stderr = l.parser
	cmd.Stdout = l.parser

	l.logger.Println("launch:", bin, strings.Join(l.FormatArgs(), " "))

	err := cmd.Start()
	if err != nil {
		return "", err
	}

	if ll == nil {
		l.pid = cmd.Process.Pid
	} else {
		select {
		case pid := <-ll.Pid():
			l.pid = pid
			if ll.Err() != "" {
				return "", errors.New(ll.Err())
			}
		case <-time.After(launchTimeout):
			return "", fmt.Errorf("launcher: timeout waiting for the leakless pid")
		}
	}

	go func() {
		_ = cmd.Wait()
		close(l.exit)
	}()

	u, err := l.parser.Read(launchTimeout)
	if err != nil {
		l.Kill()
		return "", err
	}

	return u, nil
}

// MustLaunch is similar to Launch
func (l *Launcher) MustLaunch() string {
	u, err := l.Launch()
	utils.E(err)
	return u
}

// Kill the browser process group
func (l *Launcher) Kill() {
	if l.pid != 0 {
		killGroup(l.pid)
	}
}

var launchTimeout = time.Minute
