package geo

import "sync"

// Index is an in-memory spatial lookup over active post locations. It is a
// linear-scan index: candidates are filtered per entry with the haversine
// metric, which is adequate at the expected post volume.
type Index struct {
	mu     sync.RWMutex
	points map[int64]Point
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{points: make(map[int64]Point)}
}

// Insert registers or replaces the location of an entry.
func (idx *Index) Insert(id int64, p Point) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.points[id] = p
}

// Remove drops an entry. Removing an absent id is a no-op.
func (idx *Index) Remove(id int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.points, id)
}

// Within returns the ids of all entries at most radiusMeters from center.
// The radius is inclusive.
func (idx *Index) Within(center Point, radiusMeters float64) []int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var ids []int64
	for id, p := range idx.points {
		if Distance(center, p) <= radiusMeters {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len reports the number of indexed entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.points)
}
