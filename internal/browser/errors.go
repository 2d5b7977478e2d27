//go:build js && wasm

package browser

import "codeberg.org/mutker/rumcollect/internal/errors"

const (
	ErrMissingGlobal = errors.ErrorCode("browser_missing_global")
	ErrJSException   = errors.ErrorCode("browser_js_exception")
)

var errFactory = errors.New()
