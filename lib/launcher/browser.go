package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// binCandidates per OS, ordered by preference. The env var CHROMECTL_BIN
// and the config override win over all of them.
var binCandidates = map[string][]string{
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
	},
	"linux": {
		"google-chrome",
		"google-chrome-stable",
		"chromium",
		"chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
	},
	"windows": {
		"chrome",
		"edge",
	},
}

func init() {
	if runtime.GOOS == "windows" {
		binCandidates["windows"] = append(
			binCandidates["windows"],
			expandWindowsExePaths(
				`Google\Chrome\Application\chrome.exe`,
				`Microsoft\Edge\Application\msedge.exe`,
			)...,
		)
	}
}

// LookBin finds the browser executable on the host: the CHROMECTL_BIN env
// var first, then the per-OS well known locations, then PATH lookup.
func LookBin() (string, error) {
	if env := os.Getenv("CHROMECTL_BIN"); env != "" {
		if _, err := os.Stat(env); err == nil {
			return env, nil
		}
		return "", fmt.Errorf("launcher: CHROMECTL_BIN is set but not usable: %s", env)
	}

	for _, path := range binCandidates[runtime.GOOS] {
		found, err := exec.LookPath(path)
		if err == nil {
			return found, nil
		}
	}

	return "", fmt.Errorf("launcher: no browser binary found, set CHROMECTL_BIN or install Chrome/Chromium")
}

func expandWindowsExePaths(list ...string) []string {
	newList := []string{}
	for _, p := range list {
		newList = append(
			newList,
			filepath.Join(os.Getenv("ProgramFiles"), p),
			filepath.Join(os.Getenv("ProgramFiles(x86)"), p),
			filepath.Join(os.Getenv("LocalAppData"), p),
		)
	}
	return newList
}
