package domain

import (
	"errors"
	"fmt"
	"slices"
)

var ErrManifestFull = errors.New("manifest is at full capacity")

// Anything that can hold aid loads: depots and drivers.
type LoadHolder interface {
	HolderID() string
	AddLoad(l *AidLoad) error
	RemoveLoad(l *AidLoad) bool
}

// Ordered set of loads held by one owner. Capacity 0 means unbounded.
type Manifest struct {
	OwnerID  string
	Capacity int
	Loads    []*AidLoad
}

func NewManifest(owner string, capacity int) *Manifest {
	return &Manifest{
		OwnerID:  owner,
		Capacity: capacity,
	}
}

func (m *Manifest) HolderID() string { return m.OwnerID }

// Add a single load at the back of the manifest.
func (m *Manifest) AddLoad(l *AidLoad) error {
	if m.Capacity > 0 && len(m.Loads) >= m.Capacity {
		return fmt.Errorf("add load: %s (capacity=%d): %w", m.OwnerID, m.Capacity, ErrManifestFull)
	}
	if m.Contains(l) {
		return nil
	}
	m.Loads = append(m.Loads, l)
	return nil
}

func (m *Manifest) RemoveLoad(l *AidLoad) bool {
	i := slices.Index(m.Loads, l)
	if i < 0 {
		return false
	}
	m.Loads = slices.Delete(m.Loads, i, i+1)
	return true
}

func (m *Manifest) Contains(l *AidLoad) bool { return slices.Contains(m.Loads, l) }

func (m *Manifest) Len() int { return len(m.Loads) }

// Copy of the loads in manifest order.
func (m *Manifest) All() []*AidLoad { return slices.Clone(m.Loads) }

// Take up to n loads from the front of the manifest without releasing them.
func (m *Manifest) Head(n int) []*AidLoad {
	if n > len(m.Loads) {
		n = len(m.Loads)
	}
	return slices.Clone(m.Loads[:n])
}

// Transfer several loads to another holder, stopping at the first failure.
func (m *Manifest) TransferTo(loads []*AidLoad, to LoadHolder, tick float64) error {
	for _, l := range loads {
		if l.Holder() != m {
			return fmt.Errorf("transfer from %s: load %s: %w", m.OwnerID, l.ID, ErrNotHeld)
		}
		if err := l.Transfer(to, tick); err != nil {
			return err
		}
	}
	return nil
}

// Drop every load without touching their history.
func (m *Manifest) Clear() {
	m.Loads = nil
}
