package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyFor(t *testing.T) {
	assert.Equal(t, PendingKey{BoundedSource: true, DestIP: 600}, KeyFor(10, 600))
	assert.Equal(t, PendingKey{BoundedSource: true, DestIP: 600}, KeyFor(MaxIP, 600))
	assert.Equal(t, PendingKey{BoundedSource: false, DestIP: 600}, KeyFor(1500, 600))
}

func TestPendingQueryUniqueness(t *testing.T) {
	p := NewPendingQuerySet(0)
	k := KeyFor(10, 600)
	assert.True(t, p.Add(k))
	assert.False(t, p.Add(k))
	assert.False(t, p.Add(KeyFor(20, 600)))
	assert.True(t, p.Add(KeyFor(1500, 600)))
	assert.Equal(t, 2, p.Len())

	assert.True(t, p.Remove(k))
	assert.False(t, p.Remove(k))
	assert.False(t, p.Has(k))
	assert.True(t, p.Add(k))
}

func TestPendingQueryExpiry(t *testing.T) {
	p := NewPendingQuerySet(20 * time.Millisecond)
	k := KeyFor(10, 600)
	assert.True(t, p.Add(k))
	assert.True(t, p.Has(k))
	time.Sleep(50 * time.Millisecond)
	assert.False(t, p.Has(k))
	assert.Zero(t, p.Len())
	assert.True(t, p.Add(k))
}
