package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePoint(t *testing.T) {
	require.NoError(t, ValidatePoint(Point{Longitude: 0, Latitude: 0}))
	require.NoError(t, ValidatePoint(Point{Longitude: -180, Latitude: 90}))
	require.NoError(t, ValidatePoint(Point{Longitude: 180, Latitude: -90}))

	assert.ErrorIs(t, ValidatePoint(Point{Longitude: 181, Latitude: 0}), ErrInvalidCoordinates)
	assert.ErrorIs(t, ValidatePoint(Point{Longitude: -180.1, Latitude: 0}), ErrInvalidCoordinates)
	assert.ErrorIs(t, ValidatePoint(Point{Longitude: 0, Latitude: 91}), ErrInvalidCoordinates)
	assert.ErrorIs(t, ValidatePoint(Point{Longitude: 0, Latitude: -90.5}), ErrInvalidCoordinates)
}

func TestDistance(t *testing.T) {
	origin := Point{Longitude: 0, Latitude: 0}

	assert.Equal(t, 0.0, Distance(origin, origin))

	// one degree of latitude is roughly 111.2 km
	oneDegreeNorth := Point{Longitude: 0, Latitude: 1}
	assert.InDelta(t, 111195, Distance(origin, oneDegreeNorth), 200)

	// symmetric
	assert.Equal(t, Distance(origin, oneDegreeNorth), Distance(oneDegreeNorth, origin))

	// antipodal points are half the circumference apart
	antipode := Point{Longitude: 180, Latitude: 0}
	assert.InDelta(t, 20015000, Distance(origin, antipode), 10000)
}

func TestIndexWithin(t *testing.T) {
	idx := NewIndex()
	center := Point{Longitude: 0, Latitude: 0}

	idx.Insert(1, Point{Longitude: 0, Latitude: 0})
	idx.Insert(2, Point{Longitude: 0.005, Latitude: 0}) // ~556m east
	idx.Insert(3, Point{Longitude: 0, Latitude: 0.05})  // ~5.6km north
	require.Equal(t, 3, idx.Len())

	ids := idx.Within(center, 1000)
	assert.ElementsMatch(t, []int64{1, 2}, ids)

	ids = idx.Within(center, 10000)
	assert.ElementsMatch(t, []int64{1, 2, 3}, ids)

	assert.Empty(t, idx.Within(Point{Longitude: 100, Latitude: 50}, 1000))
}

func TestIndexWithinRadiusInclusive(t *testing.T) {
	idx := NewIndex()
	center := Point{Longitude: 0, Latitude: 0}
	target := Point{Longitude: 0, Latitude: 0.01}

	idx.Insert(7, target)

	exact := Distance(center, target)
	assert.ElementsMatch(t, []int64{7}, idx.Within(center, exact))
	assert.Empty(t, idx.Within(center, exact-1))
}

func TestIndexInsertRemove(t *testing.T) {
	idx := NewIndex()
	p := Point{Longitude: 10, Latitude: 10}

	idx.Insert(1, p)
	assert.Equal(t, 1, idx.Len())

	// reinsert replaces, not duplicates
	idx.Insert(1, Point{Longitude: 11, Latitude: 11})
	assert.Equal(t, 1, idx.Len())

	idx.Remove(1)
	assert.Equal(t, 0, idx.Len())

	// removing an absent id is a no-op
	idx.Remove(42)
	assert.Equal(t, 0, idx.Len())
}
