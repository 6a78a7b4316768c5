package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	statex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/state"
)

var ErrDebouncerClosed = errors.New("debouncer is closed")

// TurnHandler processes one merged turn.
type TurnHandler func(ctx context.Context, conversationID string, text string)

// Debouncer buffers the fragments of a conversation until no new fragment
// arrived for the window, then hands the merged text to the handler once.
// Turns of the same conversation never run concurrently.
type Debouncer struct {
	ctx    context.Context
	window time.Duration
	handle TurnHandler

	mu      sync.Mutex
	pending map[string]*pendingTurn
	closed  bool

	turns keyedMutex
	wg    sync.WaitGroup
}

type pendingTurn struct {
	texts []string
	timer *time.Timer
}

// NewDebouncer returns a Debouncer; a window <= 0 uses statex.DebounceWindow.
func NewDebouncer(ctx context.Context, window time.Duration, handle TurnHandler) *Debouncer {
	if window <= 0 {
		window = statex.DebounceWindow
	}
	return &Debouncer{
		ctx:     ctx,
		window:  window,
		handle:  handle,
		pending: make(map[string]*pendingTurn),
		turns:   keyedMutex{locks: make(map[string]*refMutex)},
	}
}

// Push adds one inbound fragment and restarts the window of its conversation.
func (d *Debouncer) Push(conversationID string, text string) error {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return ErrInvalidConversation
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDebouncerClosed
	}

	p := d.pending[conversationID]
	if p != nil && p.timer.Stop() {
		d.wg.Done()
	} else {
		// Nothing buffered, or the previous timer already fired.
		p = &pendingTurn{}
		d.pending[conversationID] = p
	}
	p.texts = append(p.texts, text)

	d.wg.Add(1)
	p.timer = time.AfterFunc(d.window, func() {
		defer d.wg.Done()
		d.fire(conversationID, p)
	})
	return nil
}

// Close stops accepting fragments, runs every buffered turn now and waits
// for running turns to finish.
func (d *Debouncer) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.wg.Wait()
		return
	}
	d.closed = true
	type flush struct {
		id string
		p  *pendingTurn
	}
	var flushes []flush
	for id, p := range d.pending {
		if p.timer.Stop() {
			d.wg.Done()
			flushes = append(flushes, flush{id: id, p: p})
		}
	}
	d.mu.Unlock()

	for _, f := range flushes {
		d.fire(f.id, f.p)
	}
	d.wg.Wait()
}

func (d *Debouncer) fire(conversationID string, p *pendingTurn) {
	d.mu.Lock()
	if d.pending[conversationID] == p {
		delete(d.pending, conversationID)
	}
	texts := append([]string(nil), p.texts...)
	d.mu.Unlock()

	text := statex.MergeBufferTexts(texts)
	if text == "" {
		return
	}

	unlock := d.turns.lock(conversationID)
	defer unlock()
	d.handle(d.ctx, conversationID, text)
}

type refMutex struct {
	sync.Mutex
	refs int
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m := k.locks[key]
	if m == nil {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
