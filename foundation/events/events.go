// Package events fans the viewer events raised by the node out to the
// websocket clients watching it.
package events

import (
	"fmt"
	"strings"
	"sync"
)

// ViewerPrefix marks the events that are forwarded to viewers. Every other
// event is only logged.
const ViewerPrefix = "viewer:"

// backlog is the number of events held for a viewer. An event is dropped
// when the viewer's backlog is full so a slow websocket never stalls the node.
const backlog = 100

// Events tracks the channel of every connected viewer by id.
type Events struct {
	viewers map[string]chan string
	mu      sync.RWMutex
}

// New constructs an Events with no viewers.
func New() *Events {
	return &Events{
		viewers: make(map[string]chan string),
	}
}

// Shutdown closes the channel of every viewer and forgets them.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.viewers {
		delete(evt.viewers, id)
		close(ch)
	}
}

// Acquire registers a viewer and returns the channel its events arrive on.
// Acquiring an id twice returns the same channel.
func (evt *Events) Acquire(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.viewers[id]; exists {
		return ch
	}

	ch := make(chan string, backlog)
	evt.viewers[id] = ch

	return ch
}

// Release closes the channel of the viewer and forgets it.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.viewers[id]
	if !exists {
		return fmt.Errorf("viewer %q does not exist", id)
	}

	delete(evt.viewers, id)
	close(ch)

	return nil
}

// Count returns the number of connected viewers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.viewers)
}

// Send forwards a viewer event to every viewer without waiting on any of
// them. It reports false when the event isn't a viewer event.
func (evt *Events) Send(s string) bool {
	if !strings.HasPrefix(s, ViewerPrefix) {
		return false
	}

	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.viewers {
		select {
		case ch <- s:
		default:
		}
	}

	return true
}
