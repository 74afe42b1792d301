package cli

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestNewInterruptHandler(t *testing.T) {
	tests := []struct {
		writer io.Writer
		name   string
	}{
		{name: "with custom writer", writer: &bytes.Buffer{}},
		{name: "with nil writer", writer: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewInterruptHandler(tt.writer, "")
			require.NotNil(t, handler)
			assert.NotNil(t, handler.writer)
			assert.False(t, handler.WasInterrupted())
		})
	}
}

func TestHandleInterrupts_ParentCancel(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output, "nothing saved")

	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := handler.HandleInterrupts(parent)
	defer stop()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be canceled initially")
	default:
	}

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("derived context was not canceled")
	}
	assert.False(t, handler.WasInterrupted(), "parent cancellation is not an interrupt")
	assert.Empty(t, output.String())
}

func TestInterrupt_CancelsOnceAndReports(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output, "Nothing from this run was saved.")

	ctx, stop := handler.HandleInterrupts(context.Background())
	defer stop()

	handler.interrupt()
	handler.interrupt()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled")
	}

	assert.True(t, handler.WasInterrupted())
	out := output.String()
	assert.Contains(t, out, "Interrupted!")
	assert.Contains(t, out, "Nothing from this run was saved.")
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("Interrupted!")))
}

func TestShowInterruptMessage_NoDetail(t *testing.T) {
	output := &bytes.Buffer{}
	handler := NewInterruptHandler(output, "")

	handler.showInterruptMessage()

	assert.Contains(t, output.String(), WarningIcon)
	assert.NotContains(t, output.String(), InfoIcon)
}
