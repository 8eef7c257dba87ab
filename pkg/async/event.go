package async

import "sync"

// Event is a one-shot notification. Once set it stays set; every waiter on
// Done is released.
type Event struct {
	once sync.Once
	mu   sync.Mutex
	c    chan struct{}
}

func (e *Event) init() {
	e.once.Do(func() {
		e.c = make(chan struct{})
	})
}

// Set fires the event. It reports whether this call was the one that fired
// it; later calls have no effect.
func (e *Event) Set() bool {
	e.init()
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.c:
		return false
	default:
		close(e.c)
		return true
	}
}

func (e *Event) IsSet() bool {
	e.init()
	select {
	case <-e.c:
		return true
	default:
		return false
	}
}

func (e *Event) Done() <-chan struct{} {
	e.init()
	return e.c
}

func (e *Event) Wait() {
	<-e.Done()
}
