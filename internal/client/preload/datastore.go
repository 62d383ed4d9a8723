package preload

import (
	gosync "sync"

	"github.com/nvoropaev/traincache/pkg/api"
)

// DataStore holds the fully typed collections of the preloaded
// workspace for synchronous access by the UI layer. Overwritten as a
// whole on every preload.
type DataStore struct {
	mu            gosync.RWMutex
	exercices     []api.Exercice
	entrainements []api.Entrainement
	echauffements []api.Echauffement
	situations    []api.SituationMatch
	tags          []api.Tag
	stats         *api.DashboardStats
}

// NewDataStore creates an empty workspace data store
func NewDataStore() *DataStore {
	return &DataStore{}
}

// Exercices returns the preloaded exercices
func (d *DataStore) Exercices() []api.Exercice {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.exercices
}

// Entrainements returns the preloaded entrainements
func (d *DataStore) Entrainements() []api.Entrainement {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.entrainements
}

// Echauffements returns the preloaded echauffements
func (d *DataStore) Echauffements() []api.Echauffement {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.echauffements
}

// Situations returns the preloaded situations/matchs
func (d *DataStore) Situations() []api.SituationMatch {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.situations
}

// Tags returns the preloaded tags
func (d *DataStore) Tags() []api.Tag {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tags
}

// Stats returns the preloaded dashboard stats, nil if unavailable
func (d *DataStore) Stats() *api.DashboardStats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

func (d *DataStore) setExercices(items []api.Exercice) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exercices = items
}

func (d *DataStore) setEntrainements(items []api.Entrainement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entrainements = items
}

func (d *DataStore) setEchauffements(items []api.Echauffement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.echauffements = items
}

func (d *DataStore) setSituations(items []api.SituationMatch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.situations = items
}

func (d *DataStore) setTags(items []api.Tag) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tags = items
}

func (d *DataStore) setStats(stats *api.DashboardStats) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats = stats
}

// Clear сбрасывает все коллекции (смена workspace, logout)
func (d *DataStore) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exercices = nil
	d.entrainements = nil
	d.echauffements = nil
	d.situations = nil
	d.tags = nil
	d.stats = nil
}
