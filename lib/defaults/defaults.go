// Package defaults holds the commonly used options parsed from env var "chromectl".
// Set them will set the default value of options used by chromectl.
// Each value is separated by a ",", key and value are separated by "=",
// For example:
//
//	chromectl=show,port=9223
//
//	chromectl=host=10.0.0.2,port=9222,cdp
package defaults

import (
	"os"
	"strings"
)

// Show disables headless mode for the launched browser
var Show bool

// Host of the remote debugging endpoint
var Host string

// Port of the remote debugging endpoint
var Port string

// URL of the remote debugging endpoint, overrides Host and Port when set
var URL string

// Bin path of the browser binary
var Bin string

// Dir to store the browser profile, such as cookies
var Dir string

// CDP enables logging of all the devtools protocol frames
var CDP bool

func init() {
	Reset()
	parse(os.Getenv("chromectl"))
}

// Reset all the options to their hardcoded defaults
func Reset() {
	Show = false
	Host = "127.0.0.1"
	Port = "9222"
	URL = ""
	Bin = ""
	Dir = ""
	CDP = false
}

// parse the options and set them globally
func parse(options string) {
	if options == "" {
		return
	}

	for _, f := range strings.Split(options, ",") {
		kv := strings.SplitN(f, "=", 2)
		switch kv[0] {
		case "show":
			Show = true
		case "host":
			Host = kv[1]
		case "port":
			Port = kv[1]
		case "url":
			URL = kv[1]
		case "bin":
			Bin = kv[1]
		case "dir":
			Dir = kv[1]
		case "cdp":
			CDP = true
		default:
			panic("no such chromectl option: " + kv[0])
		}
	}
}
