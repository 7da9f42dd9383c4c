package utils

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerCoalescesBursts(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var fired int32
	var last int32
	for i := int32(1); i <= 5; i++ {
		i := i
		d.Schedule("key", func() {
			atomic.AddInt32(&fired, 1)
			atomic.StoreInt32(&last, i)
		})
	}

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(5), atomic.LoadInt32(&last), "only the last scheduled callback runs")
	assert.False(t, d.Pending("key"))
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	defer d.Stop()

	var a, b int32
	d.Schedule("a", func() { atomic.AddInt32(&a, 1) })
	d.Schedule("b", func() { atomic.AddInt32(&b, 1) })

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&a) == 1 && atomic.LoadInt32(&b) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var fired int32
	d.Schedule("key", func() { atomic.AddInt32(&fired, 1) })
	assert.True(t, d.Pending("key"))

	d.Cancel("key")
	assert.False(t, d.Pending("key"))

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&fired))
}

func TestDebouncerFlush(t *testing.T) {
	d := NewDebouncer(time.Hour)
	defer d.Stop()

	var fired int32
	d.Schedule("key", func() { atomic.AddInt32(&fired, 1) })

	d.Flush("key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired), "flush runs synchronously")
	assert.False(t, d.Pending("key"))

	// Flushing an empty key is a no-op.
	d.Flush("key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var fired int32
	d.Schedule("a", func() { atomic.AddInt32(&fired, 1) })
	d.Schedule("b", func() { atomic.AddInt32(&fired, 1) })
	d.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&fired))
	assert.False(t, d.Pending("a"))
	assert.False(t, d.Pending("b"))
}
