package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestDeduper(window time.Duration) (*Deduper, *fakeClock) {
	clock := newFakeClock()
	d := NewDeduper(window)
	d.now = clock.Now
	return d, clock
}

func TestDeduperSuppressesWithinWindow(t *testing.T) {
	assert := assert.New(t)
	d, clock := newTestDeduper(10 * time.Second)

	assert.True(d.Allow("42"))
	clock.Advance(9 * time.Second)
	assert.False(d.Allow("42"))
	assert.True(d.Allow("43"), "other keys are independent")
}

func TestDeduperAllowsAfterWindow(t *testing.T) {
	assert := assert.New(t)
	d, clock := newTestDeduper(10 * time.Second)

	assert.True(d.Allow("42"))
	clock.Advance(10 * time.Second)
	assert.True(d.Allow("42"))
	assert.False(d.Allow("42"))
}

func TestDeduperSuppressionDoesNotExtendWindow(t *testing.T) {
	assert := assert.New(t)
	d, clock := newTestDeduper(10 * time.Second)

	assert.True(d.Allow("42"))
	clock.Advance(6 * time.Second)
	assert.False(d.Allow("42"))
	clock.Advance(6 * time.Second)
	assert.True(d.Allow("42"), "a suppressed attempt must not refresh the timestamp")
}

func TestDeduperSweepsExpiredEntries(t *testing.T) {
	assert := assert.New(t)
	d, clock := newTestDeduper(10 * time.Second)

	for _, key := range []string{"1", "2", "3"} {
		assert.True(d.Allow(key))
	}
	assert.Equal(3, d.Len())

	clock.Advance(11 * time.Second)
	assert.True(d.Allow("4"))
	assert.Equal(1, d.Len())
}
