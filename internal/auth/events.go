package auth

import "sync"

// broadcaster fans auth events out to the listeners registered through Subscribe.
type broadcaster struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

func newBroadcaster() *broadcaster {
	return &broadcaster{listeners: make(map[int]Listener)}
}

func (b *broadcaster) subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

func (b *broadcaster) publish(evt Event) {
	b.mu.RLock()
	fns := make([]Listener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(evt)
	}
}
