package observability

import (
	"sync"
)

// Counters provides basic in-memory operational counters for the engine.
type Counters struct {
	mu            sync.Mutex
	commands      map[string]int64
	deltas        map[string]int64
	requestErrors map[string]int64
	notifyDropped int64
}

// NewCounters initializes counter storage.
func NewCounters() *Counters {
	return &Counters{
		commands:      make(map[string]int64),
		deltas:        make(map[string]int64),
		requestErrors: make(map[string]int64),
	}
}

// RecordCommand increments the counter for a command and its outcome.
func (c *Counters) RecordCommand(name, outcome string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[name+"|"+outcome]++
}

// RecordDelta increments the counter for a subscription change kind.
func (c *Counters) RecordDelta(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deltas[kind]++
}

// RecordRequestError counts a failed HTTP request by path, method and error code.
func (c *Counters) RecordRequestError(path, method, code string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestErrors[method+" "+path+"|"+code]++
}

// RecordNotificationDrop counts a swallowed notification failure.
func (c *Counters) RecordNotificationDrop() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyDropped++
}

// Snapshot returns a copy of the current counter values.
func (c *Counters) Snapshot() (commands, deltas map[string]int64, notifyDropped int64) {
	if c == nil {
		return nil, nil, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	commands = make(map[string]int64, len(c.commands))
	for k, v := range c.commands {
		commands[k] = v
	}
	deltas = make(map[string]int64, len(c.deltas))
	for k, v := range c.deltas {
		deltas[k] = v
	}
	return commands, deltas, c.notifyDropped
}
