package format

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// Copy-button labels and the delay before "Copied!" reverts.
const (
	CopyLabel        = "Copy"
	CopiedLabel      = "Copied!"
	CopiedResetAfter = 1200 * time.Millisecond
)

var ErrUnknownCodeBlock = errors.New("unknown code block")

// Clipboard is the port used to place code on the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// CopyButtons tracks rendered code blocks and the label of each copy button.
type CopyButtons struct {
	mu        sync.Mutex
	clipboard Clipboard
	after     func(time.Duration, func())
	blocks    map[string]CodeBlock
	copied    map[string]bool
}

// NewCopyButtons returns a registry writing to cb. The after func schedules the
// label reset; nil uses time.AfterFunc.
func NewCopyButtons(cb Clipboard, after func(time.Duration, func())) *CopyButtons {
	if after == nil {
		after = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	return &CopyButtons{
		clipboard: cb,
		after:     after,
		blocks:    make(map[string]CodeBlock),
		copied:    make(map[string]bool),
	}
}

// Register makes blocks available to Activate.
func (c *CopyButtons) Register(blocks ...CodeBlock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range blocks {
		c.blocks[b.ID] = b
	}
}

// Activate copies the code of block id and flips its label to "Copied!" until
// CopiedResetAfter has elapsed.
func (c *CopyButtons) Activate(id string) error {
	c.mu.Lock()
	block, ok := c.blocks[id]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCodeBlock, id)
	}

	if err := c.clipboard.WriteAll(block.Code); err != nil {
		return fmt.Errorf("failed to copy code block %s: %w", id, err)
	}

	c.mu.Lock()
	c.copied[id] = true
	c.mu.Unlock()

	c.after(CopiedResetAfter, func() {
		c.mu.Lock()
		delete(c.copied, id)
		c.mu.Unlock()
	})
	return nil
}

// Label returns the text currently shown on the copy button of block id.
func (c *CopyButtons) Label(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.copied[id] {
		return CopiedLabel
	}
	return CopyLabel
}
