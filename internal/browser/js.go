//go:build js && wasm

package browser

import (
	"syscall/js"

	"codeberg.org/mutker/rumcollect/internal/performance"
)

// call invokes method on v, turning a thrown JS exception into an error.
func call(v js.Value, method string, args ...any) (result js.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			jsErr, ok := r.(js.Error)
			if !ok {
				panic(r)
			}
			err = errFactory.WithData(ErrJSException, jsErr.Error())
		}
	}()
	return v.Call(method, args...), nil
}

// decodeEntries converts a JS array of timeline entries. Entries of types
// the collector does not model are skipped.
func decodeEntries(list js.Value) (entries []performance.Entry, skipped int) {
	if list.IsUndefined() || list.IsNull() {
		return nil, 0
	}

	stringify := js.Global().Get("JSON")
	n := list.Length()
	entries = make([]performance.Entry, 0, n)
	for i := 0; i < n; i++ {
		raw := stringify.Call("stringify", list.Index(i)).String()
		entry, err := performance.DecodeEntry([]byte(raw))
		if err != nil {
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	return entries, skipped
}
