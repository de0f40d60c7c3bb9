package format

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

func TestCopyButtonsActivate(t *testing.T) {
	cb := &fakeClipboard{}
	var (
		delay time.Duration
		reset func()
	)
	buttons := NewCopyButtons(cb, func(d time.Duration, f func()) {
		delay = d
		reset = f
	})
	buttons.Register(CodeBlock{ID: "code-1", Language: "go", Code: "x := 1"})

	assert.Equal(t, CopyLabel, buttons.Label("code-1"))
	require.NoError(t, buttons.Activate("code-1"))

	assert.Equal(t, "x := 1", cb.text)
	assert.Equal(t, CopiedLabel, buttons.Label("code-1"))
	assert.Equal(t, 1200*time.Millisecond, delay)

	reset()
	assert.Equal(t, CopyLabel, buttons.Label("code-1"))
}

func TestCopyButtonsUnknownBlock(t *testing.T) {
	buttons := NewCopyButtons(&fakeClipboard{}, func(time.Duration, func()) {})
	assert.ErrorIs(t, buttons.Activate("code-404"), ErrUnknownCodeBlock)
}

func TestCopyButtonsClipboardFailureKeepsLabel(t *testing.T) {
	buttons := NewCopyButtons(&fakeClipboard{err: errors.New("no clipboard")}, func(time.Duration, func()) {})
	buttons.Register(CodeBlock{ID: "code-1", Code: "x"})
	assert.Error(t, buttons.Activate("code-1"))
	assert.Equal(t, CopyLabel, buttons.Label("code-1"))
}
