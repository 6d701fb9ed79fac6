// Package session tracks which players are online and under which name.
package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Provider resolves player names and online status for the party service.
type Provider interface {
	ResolvePlayer(name string) (uuid.UUID, bool)
	IsOnline(id uuid.UUID) bool
}

// Directory is an in-memory Provider fed by the host's join and quit hooks.
// Name lookups ignore case.
type Directory struct {
	mu     sync.RWMutex
	byName map[string]uuid.UUID
	names  map[uuid.UUID]string
}

var _ Provider = (*Directory)(nil)

func NewDirectory() *Directory {
	return &Directory{
		byName: make(map[string]uuid.UUID),
		names:  make(map[uuid.UUID]string),
	}
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Join marks a player online. A rejoin under a new name replaces the old one.
func (d *Directory) Join(id uuid.UUID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.names[id]; ok {
		delete(d.byName, nameKey(old))
	}
	if prev, ok := d.byName[nameKey(name)]; ok && prev != id {
		delete(d.names, prev)
	}
	d.names[id] = name
	d.byName[nameKey(name)] = id
}

// Quit marks a player offline and reports whether they were online.
func (d *Directory) Quit(id uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	name, ok := d.names[id]
	if !ok {
		return false
	}
	delete(d.names, id)
	delete(d.byName, nameKey(name))
	return true
}

func (d *Directory) ResolvePlayer(name string) (uuid.UUID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byName[nameKey(name)]
	return id, ok
}

func (d *Directory) IsOnline(id uuid.UUID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.names[id]
	return ok
}

// Name returns the display name of an online player.
func (d *Directory) Name(id uuid.UUID) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.names[id]
	return name, ok
}
