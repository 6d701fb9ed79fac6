package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDirectoryJoinResolveQuit(t *testing.T) {
	d := NewDirectory()
	steve := uuid.New()

	_, ok := d.ResolvePlayer("Steve")
	assert.False(t, ok)

	d.Join(steve, "Steve")
	id, ok := d.ResolvePlayer("steve")
	assert.True(t, ok)
	assert.Equal(t, steve, id)
	assert.True(t, d.IsOnline(steve))

	name, ok := d.Name(steve)
	assert.True(t, ok)
	assert.Equal(t, "Steve", name)

	assert.True(t, d.Quit(steve))
	assert.False(t, d.Quit(steve))
	assert.False(t, d.IsOnline(steve))
	_, ok = d.ResolvePlayer("Steve")
	assert.False(t, ok)
}

func TestDirectoryRename(t *testing.T) {
	d := NewDirectory()
	id := uuid.New()

	d.Join(id, "Alex")
	d.Join(id, "Alexandra")

	_, ok := d.ResolvePlayer("Alex")
	assert.False(t, ok)
	got, ok := d.ResolvePlayer("ALEXANDRA")
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestDirectoryNameTakenOver(t *testing.T) {
	d := NewDirectory()
	first, second := uuid.New(), uuid.New()

	d.Join(first, "Notch")
	d.Join(second, "Notch")

	got, ok := d.ResolvePlayer("Notch")
	assert.True(t, ok)
	assert.Equal(t, second, got)
	assert.False(t, d.IsOnline(first))
}
