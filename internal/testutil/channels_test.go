package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitForResult(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	assert.Equal(t, 7, WaitForResult(t, ch, ShortTestTimeout, "no value"))
}

func TestWaitForChannelClosed(t *testing.T) {
	done := make(chan struct{})
	go func() {
		time.Sleep(5 * time.Millisecond)
		close(done)
	}()
	WaitForChannel(t, done, ShortTestTimeout, "done not closed")
}

func TestWaitForError(t *testing.T) {
	errs := make(chan error, 1)
	errs <- nil
	WaitForError(t, errs, ShortTestTimeout, "no result")
}
