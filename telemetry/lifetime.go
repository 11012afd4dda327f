package telemetry

// LineageStats tracks one living creature's descent and offspring.
type LineageStats struct {
	BirthTick int
	FounderID uint64 // root of the family tree; a founder is its own root
	Children  int
}

// LineageTracker maps living creature identities to their lineage.
type LineageTracker struct {
	stats map[uint64]*LineageStats
}

// NewLineageTracker creates an empty tracker.
func NewLineageTracker() *LineageTracker {
	return &LineageTracker{stats: make(map[uint64]*LineageStats)}
}

// Register records a creature. Children inherit their parent's founder;
// creatures with an unknown parent start a lineage of their own.
func (lt *LineageTracker) Register(id, parentID uint64, tick int) {
	founder := id
	if p := lt.stats[parentID]; p != nil {
		founder = p.FounderID
		p.Children++
	}
	lt.stats[id] = &LineageStats{BirthTick: tick, FounderID: founder}
}

// Get returns the stats for a creature, or nil if not tracked.
func (lt *LineageTracker) Get(id uint64) *LineageStats {
	return lt.stats[id]
}

// Remove drops a creature and returns its final stats.
func (lt *LineageTracker) Remove(id uint64) *LineageStats {
	s := lt.stats[id]
	delete(lt.stats, id)
	return s
}

// Count returns the number of tracked creatures.
func (lt *LineageTracker) Count() int {
	return len(lt.stats)
}

// ActiveLineages returns the number of distinct founders with a living
// descendant.
func (lt *LineageTracker) ActiveLineages() int {
	seen := make(map[uint64]struct{})
	for _, s := range lt.stats {
		seen[s.FounderID] = struct{}{}
	}
	return len(seen)
}
