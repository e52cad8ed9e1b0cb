package host

import (
	"sync"
)

// Signal is a named notification with a string payload.
type Signal struct {
	Name string
	Data string
}

// Receiver is called for every signal matching its mask.
type Receiver func(sig Signal)

// Hook is an active signal subscription.
type Hook struct {
	id      uint64
	mask    string
	signals *Signals
}

// Mask returns the signal mask the hook was created with.
func (h *Hook) Mask() string {
	return h.mask
}

// Unhook removes the subscription.
func (h *Hook) Unhook() {
	if h.signals != nil {
		h.signals.unhook(h.id)
	}
}

type receiver struct {
	mask string
	fn   Receiver
}

// Signals delivers named signals to hooked receivers.
// With WithAsync, Send never waits for receivers: signals are queued and
// delivered in order on a dedicated goroutine.
type Signals struct {
	mu sync.RWMutex

	receivers map[uint64]receiver
	nextID    uint64

	async  bool
	buffer chan Signal
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// SignalOption configures a Signals hub.
type SignalOption func(*Signals)

// WithAsync enables asynchronous delivery with the given queue size.
func WithAsync(bufferSize int) SignalOption {
	return func(s *Signals) {
		if bufferSize > 0 {
			s.async = true
			s.buffer = make(chan Signal, bufferSize)
		}
	}
}

// NewSignals creates a signal hub.
func NewSignals(opts ...SignalOption) *Signals {
	s := &Signals{
		receivers: make(map[uint64]receiver),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.async {
		s.wg.Add(1)
		go s.processAsync()
	}
	return s
}

// Hook registers fn for signals whose name matches mask.
// The mask may contain "*" wildcards; "*" alone matches every signal.
func (s *Signals) Hook(mask string, fn Receiver) *Hook {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.receivers[id] = receiver{mask: mask, fn: fn}

	return &Hook{id: id, mask: mask, signals: s}
}

// Send emits a signal. It is a no-op once the hub is closed.
func (s *Signals) Send(name, data string) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return
	}
	s.mu.RUnlock()

	sig := Signal{Name: name, Data: data}
	if s.async {
		select {
		case s.buffer <- sig:
		case <-s.done:
		}
		return
	}
	s.deliver(sig)
}

// Close stops delivery. Queued signals are delivered before Close returns.
func (s *Signals) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
}

func (s *Signals) unhook(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.receivers, id)
}

func (s *Signals) deliver(sig Signal) {
	s.mu.RLock()
	var matched []Receiver
	for _, r := range s.receivers {
		if StringMatch(sig.Name, r.mask, true) {
			matched = append(matched, r.fn)
		}
	}
	s.mu.RUnlock()

	for _, fn := range matched {
		safeReceive(fn, sig)
	}
}

func safeReceive(fn Receiver, sig Signal) {
	defer func() {
		_ = recover()
	}()
	fn(sig)
}

func (s *Signals) processAsync() {
	defer s.wg.Done()

	for {
		select {
		case sig := <-s.buffer:
			s.deliver(sig)
		case <-s.done:
			for {
				select {
				case sig := <-s.buffer:
					s.deliver(sig)
				default:
					return
				}
			}
		}
	}
}
