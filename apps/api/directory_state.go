package main

import (
	"sync"
	"time"

	"motodirectory/libs/directory"
)

type loadStatus int

const (
	statusLoading loadStatus = iota
	statusReady
	statusFailed
)

func (s loadStatus) String() string {
	switch s {
	case statusReady:
		return "ready"
	case statusFailed:
		return "failed"
	default:
		return "loading"
	}
}

// directorySnapshot is an immutable view of the loaded directory. Records are
// never modified after publish, so handlers may read them without holding the lock.
type directorySnapshot struct {
	status      loadStatus
	dataset     *directory.Dataset
	countries   []string
	totalCities int
	loadedAt    time.Time
	err         error
}

type directoryState struct {
	mu   sync.RWMutex
	snap directorySnapshot
}

func newDirectoryState() *directoryState {
	return &directoryState{snap: directorySnapshot{status: statusLoading}}
}

func (s *directoryState) snapshot() directorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// publish stores the dataset once. It reports false when a load already finished.
func (s *directoryState) publish(ds *directory.Dataset, loc directory.Locale, at time.Time) bool {
	countries := ds.Countries.SortedCountries(loc)
	totalCities := ds.Countries.TotalCities()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.status != statusLoading {
		return false
	}
	s.snap = directorySnapshot{
		status:      statusReady,
		dataset:     ds,
		countries:   countries,
		totalCities: totalCities,
		loadedAt:    at,
	}
	return true
}

func (s *directoryState) fail(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.status != statusLoading {
		return false
	}
	s.snap = directorySnapshot{status: statusFailed, err: err}
	return true
}
