// Package utils holds the small helpers shared by the other packages.
package utils

import "encoding/json"

// E if the last arg is error, panic it
func E(args ...interface{}) []interface{} {
	err, ok := args[len(args)-1].(error)
	if ok {
		panic(err)
	}
	return args
}

// Logger interface
type Logger interface {
	// Same as fmt.Println
	Println(vs ...interface{})
}

// Log type for Logger
type Log func(msg ...interface{})

// Println interface
func (l Log) Println(msg ...interface{}) {
	l(msg...)
}

// LoggerQuiet silences the log
var LoggerQuiet Logger = Log(func(_ ...interface{}) {})

// MustToJSON encode data to json string
func MustToJSON(data interface{}) string {
	bytes, err := json.Marshal(data)
	E(err)
	return string(bytes)
}
