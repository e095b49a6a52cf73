//go:build !windows

package launcher

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// StopResult reports what happened to one managed browser process.
type StopResult struct {
	PID int
	Err error
}

// StopAll sends SIGTERM to every browser instance we launched. Instances
// are recognized by the profile marker in their user-data-dir flag.
func StopAll() ([]StopResult, error) {
	out, err := exec.Command("ps", "axo", "pid=,args=").Output()
	if err != nil {
		return nil, err
	}

	results := []StopResult{}
	for _, pid := range ManagedPIDs(string(out)) {
		results = append(results, StopResult{PID: pid, Err: terminate(pid)})
	}
	return results, nil
}

// ManagedPIDs extracts the pids of chromectl-managed browser processes from
// "ps axo pid=,args=" output. Only top level browser processes count, the
// renderer children (--type=...) die with their parent.
func ManagedPIDs(psOutput string) []int {
	pids := []int{}
	for _, line := range strings.Split(psOutput, "\n") {
		line = strings.TrimSpace(line)
		if line == "" ||
			!strings.Contains(line, "--user-data-dir=") ||
			!strings.Contains(line, ProfileMarker) ||
			strings.Contains(line, "--type=") {
			continue
		}

		fields := strings.Fields(line)
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}

func terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	err = proc.Signal(syscall.SIGTERM)
	if err == os.ErrProcessDone {
		return nil
	}
	return err
}
