//go:build js && wasm

package browser

import (
	"sync"
	"syscall/js"

	"codeberg.org/mutker/rumcollect/internal/clock"
)

// Document is the live page. Callbacks are posted to the loop.
type Document struct {
	window js.Value
	doc    js.Value
	post   Poster
}

func NewDocument(post Poster) (*Document, error) {
	doc := js.Global().Get("document")
	if doc.IsUndefined() {
		return nil, errFactory.WithData(ErrMissingGlobal, "document")
	}
	return &Document{
		window: js.Global(),
		doc:    doc,
		post:   post,
	}, nil
}

func (d *Document) RunOnReadyStateComplete(fn func()) func() {
	if d.doc.Get("readyState").String() == "complete" {
		fn()
		return func() {}
	}
	return d.listen(d.window, "load", func(js.Value) { d.post(fn) }, true)
}

func (d *Document) Hidden() bool {
	return d.doc.Get("visibilityState").String() == "hidden"
}

// OnHidden reports the event time of the next hide, whether through a
// visibility change or the page being unloaded.
func (d *Document) OnHidden(fn func(at clock.RelativeTime)) func() {
	var once sync.Once
	fire := func(event js.Value) {
		at := clock.RelativeTime(event.Get("timeStamp").Float())
		once.Do(func() { d.post(func() { fn(at) }) })
	}

	stopVisibility := d.listen(d.doc, "visibilitychange", func(event js.Value) {
		if d.Hidden() {
			fire(event)
		}
	}, false)
	stopPagehide := d.listen(d.window, "pagehide", fire, false)

	return func() {
		stopVisibility()
		stopPagehide()
	}
}

// listen adds an event listener on target and returns its removal.
func (d *Document) listen(target js.Value, event string, fn func(js.Value), once bool) func() {
	var (
		handler js.Func
		remove  sync.Once
	)
	stop := func() {
		remove.Do(func() {
			target.Call("removeEventListener", event, handler)
			handler.Release()
		})
	}

	handler = js.FuncOf(func(_ js.Value, args []js.Value) any {
		fn(args[0])
		if once {
			stop()
		}
		return nil
	})
	target.Call("addEventListener", event, handler)
	return stop
}
