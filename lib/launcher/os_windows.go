//go:build windows

package launcher

import (
	"os/exec"
	"strconv"
)

func killGroup(pid int) {
	_ = exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid)).Run()
}

func (l *Launcher) osSetupCmd(_ *exec.Cmd) {}
