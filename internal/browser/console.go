//go:build js && wasm

package browser

import (
	"strings"
	"syscall/js"
)

// Console is an io.Writer onto the browser console, one call per write.
type Console struct {
	console js.Value
}

func NewConsole() *Console {
	return &Console{console: js.Global().Get("console")}
}

func (c *Console) Write(p []byte) (int, error) {
	if c.console.Truthy() {
		c.console.Call("log", strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}
