package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClickTableFires(t *testing.T) {
	ct := newClickTable(time.Minute, 10)
	count := 0

	token := ct.issue(func() { count++ })

	assert.True(t, ct.fire(token))
	assert.True(t, ct.fire(token))
	assert.Equal(t, 2, count)
	assert.False(t, ct.fire("unknown"))
}

func TestClickTableExpires(t *testing.T) {
	ct := newClickTable(time.Minute, 10)
	now := time.Now()
	ct.now = func() time.Time { return now }

	token := ct.issue(func() {})

	now = now.Add(2 * time.Minute)
	assert.False(t, ct.fire(token))

	ct.issue(func() {})
	assert.Equal(t, 1, ct.size(), "expired entries are dropped on issue")
}

func TestClickTableCapacity(t *testing.T) {
	ct := newClickTable(time.Minute, 2)

	first := ct.issue(func() {})
	ct.issue(func() {})
	ct.issue(func() {})

	assert.Equal(t, 2, ct.size())
	assert.False(t, ct.fire(first))
}
