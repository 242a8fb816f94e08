package document

import "sync"

// Clipboard is the system clipboard as seen by the engine.
type Clipboard interface {
	WriteText(text string) error
}

// MemoryClipboard keeps the last written text in memory.
type MemoryClipboard struct {
	mu     sync.Mutex
	text   string
	writes int
}

func (c *MemoryClipboard) WriteText(text string) error {
	c.mu.Lock()
	c.text = text
	c.writes++
	c.mu.Unlock()
	return nil
}

func (c *MemoryClipboard) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Writes counts WriteText calls.
func (c *MemoryClipboard) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}
