package performance

import "sync"

// The platform resource buffer only needs one clearing listener no matter
// how many observers run, so listeners are shared per timeline and removed
// when the last observer releases theirs.
type bufferFullListener struct {
	refs   int
	remove func()
}

var bufferFull = struct {
	sync.Mutex
	listeners map[Timeline]*bufferFullListener
}{listeners: make(map[Timeline]*bufferFullListener)}

// retainBufferFullListener makes sure tl clears its resource buffer when it
// fills up. The returned release func is idempotent.
func retainBufferFullListener(tl Timeline) (release func()) {
	bufferFull.Lock()
	defer bufferFull.Unlock()

	l, ok := bufferFull.listeners[tl]
	if !ok {
		remove, supported := tl.OnResourceTimingBufferFull(tl.ClearResourceTimings)
		if !supported {
			return func() {}
		}
		l = &bufferFullListener{remove: remove}
		bufferFull.listeners[tl] = l
	}
	l.refs++

	var once sync.Once
	return func() {
		once.Do(func() {
			bufferFull.Lock()
			defer bufferFull.Unlock()

			l.refs--
			if l.refs == 0 {
				delete(bufferFull.listeners, tl)
				if l.remove != nil {
					l.remove()
				}
			}
		})
	}
}
