package matcher

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeline-network/bloodmatch/pkg/core/geo"
	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

func newTestRanker() *Ranker {
	return NewRanker(newTestScorer())
}

func at(lat, lon float64) *geo.Coordinate {
	return &geo.Coordinate{Latitude: lat, Longitude: lon}
}

// kmNorth returns a coordinate roughly km kilometres north of the origin
func kmNorth(km float64) *geo.Coordinate {
	return at(km/111.19492664455873, 0)
}

func TestRank_SpecScenario(t *testing.T) {
	pool := []model.Donor{
		{ID: "o-neg", FullName: "Olive", BloodType: model.BloodTypeONeg, IsAvailable: true, Location: at(0, 0)},
		{ID: "ab-pos", FullName: "Abe", BloodType: model.BloodTypeABPos, IsAvailable: true, Location: at(0, 0)},
	}

	candidates := newTestRanker().Rank(pool, RankTarget{BloodType: model.BloodTypeAPos, Location: geo.Coordinate{}}, RankOptions{RadiusKm: 100, MaxResults: 20})

	require.Len(t, candidates, 1)
	assert.Equal(t, "o-neg", candidates[0].DonorID)
	assert.Equal(t, "Olive", candidates[0].DonorName)
	assert.Equal(t, 0.0, candidates[0].DistanceKm)
	assert.Equal(t, 100.0, candidates[0].Score)
	assert.Equal(t, model.CandidateStatusPending, candidates[0].Status)
	assert.True(t, candidates[0].IsAvailable)
}

func TestRank_ExcludesDonorsWithoutLocation(t *testing.T) {
	pool := []model.Donor{
		{ID: "no-location", BloodType: model.BloodTypeONeg, IsAvailable: true},
		{ID: "located", BloodType: model.BloodTypeONeg, IsAvailable: true, Location: at(0, 0)},
	}

	candidates := newTestRanker().Rank(pool, RankTarget{BloodType: model.BloodTypeONeg}, DiscoveryOptions)

	require.Len(t, candidates, 1)
	assert.Equal(t, "located", candidates[0].DonorID)
}

func TestRank_ExcludesDonorsOutsideRadius(t *testing.T) {
	pool := []model.Donor{
		{ID: "near", BloodType: model.BloodTypeONeg, IsAvailable: true, Location: kmNorth(49)},
		{ID: "far", BloodType: model.BloodTypeONeg, IsAvailable: true, Location: kmNorth(51)},
	}

	candidates := newTestRanker().Rank(pool, RankTarget{BloodType: model.BloodTypeONeg}, DiscoveryOptions)

	require.Len(t, candidates, 1)
	assert.Equal(t, "near", candidates[0].DonorID)
	assert.InDelta(t, 49.0, candidates[0].DistanceKm, 0.01)
}

func TestRank_TieBreaksOnDistance(t *testing.T) {
	pool := []model.Donor{
		{ID: "three-km", BloodType: model.BloodTypeONeg, IsAvailable: true, Location: kmNorth(3)},
		{ID: "one-km", BloodType: model.BloodTypeONeg, IsAvailable: true, Location: kmNorth(1)},
	}

	candidates := newTestRanker().Rank(pool, RankTarget{BloodType: model.BloodTypeAPos}, AutoMatchOptions)

	require.Len(t, candidates, 2)
	assert.Equal(t, candidates[0].Score, candidates[1].Score)
	assert.Equal(t, "one-km", candidates[0].DonorID)
	assert.Equal(t, "three-km", candidates[1].DonorID)
}

func TestRank_OrdersByScoreThenDistance(t *testing.T) {
	pool := []model.Donor{
		{ID: "far-exact", BloodType: model.BloodTypeAPos, IsAvailable: true, Location: kmNorth(30)},        // 100-25+10 = 85
		{ID: "near-unavailable", BloodType: model.BloodTypeONeg, IsAvailable: false, Location: kmNorth(1)}, // 100-30 = 70
		{ID: "near-exact", BloodType: model.BloodTypeAPos, IsAvailable: true, Location: kmNorth(2)},        // 100
		{ID: "mid", BloodType: model.BloodTypeOPos, IsAvailable: true, Location: kmNorth(8)},               // 95
		{ID: "recent", BloodType: model.BloodTypeANeg, IsAvailable: true, Location: kmNorth(1), LastDonationDate: daysAgo(10)}, // 50
	}

	candidates := newTestRanker().Rank(pool, RankTarget{BloodType: model.BloodTypeAPos}, AutoMatchOptions)

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.DonorID
	}
	assert.Equal(t, []string{"near-exact", "mid", "far-exact", "near-unavailable", "recent"}, ids)
	assertSorted(t, candidates)
}

func TestRank_TruncatesToMaxResults(t *testing.T) {
	pool := make([]model.Donor, 0, 60)
	for i := 0; i < 60; i++ {
		pool = append(pool, model.Donor{
			ID:          fmt.Sprintf("d%02d", i),
			BloodType:   model.BloodTypeONeg,
			IsAvailable: i%2 == 0,
			Location:    kmNorth(float64(i)),
		})
	}

	candidates := newTestRanker().Rank(pool, RankTarget{BloodType: model.BloodTypeABPos}, AutoMatchOptions)
	assert.Len(t, candidates, 20)
	assertSorted(t, candidates)

	unbounded := newTestRanker().Rank(pool, RankTarget{BloodType: model.BloodTypeABPos}, RankOptions{RadiusKm: 100})
	assert.Len(t, unbounded, 60)
	assertSorted(t, unbounded)

	// The truncated list is the head of the unbounded one
	assert.Equal(t, unbounded[:20], candidates)
}

func TestRank_UnknownBloodTypeYieldsNothing(t *testing.T) {
	pool := []model.Donor{
		{ID: "d1", BloodType: model.BloodTypeONeg, IsAvailable: true, Location: at(0, 0)},
	}

	candidates := newTestRanker().Rank(pool, RankTarget{BloodType: "Z+"}, AutoMatchOptions)

	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)
}

func TestRank_EmptyPool(t *testing.T) {
	candidates := newTestRanker().Rank(nil, RankTarget{BloodType: model.BloodTypeAPos}, AutoMatchOptions)
	assert.Empty(t, candidates)
}

func TestRank_RoundsDistance(t *testing.T) {
	pool := []model.Donor{
		{ID: "d1", BloodType: model.BloodTypeONeg, IsAvailable: true, Location: at(0.1, 0.1)},
	}

	candidates := newTestRanker().Rank(pool, RankTarget{BloodType: model.BloodTypeONeg}, AutoMatchOptions)

	require.Len(t, candidates, 1)
	exact := geo.Distance(0, 0, 0.1, 0.1)
	assert.InDelta(t, exact, candidates[0].DistanceKm, 0.005)
	assert.Equal(t, roundKm(exact), candidates[0].DistanceKm)
}

func TestRank_Deterministic(t *testing.T) {
	pool := make([]model.Donor, 0, 200)
	types := model.AllBloodTypes
	for i := 0; i < 200; i++ {
		pool = append(pool, model.Donor{
			ID:          fmt.Sprintf("d%03d", i),
			BloodType:   types[i%len(types)],
			IsAvailable: i%3 != 0,
			Location:    kmNorth(float64(i % 40)),
		})
	}

	ranker := newTestRanker()
	first := ranker.Rank(pool, RankTarget{BloodType: model.BloodTypeABPos}, RankOptions{RadiusKm: 100})
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ranker.Rank(pool, RankTarget{BloodType: model.BloodTypeABPos}, RankOptions{RadiusKm: 100}))
	}
}

func TestSortCandidates_StableForEqualKeys(t *testing.T) {
	candidates := []model.Candidate{
		{DonorID: "a", Score: 90, DistanceKm: 2},
		{DonorID: "b", Score: 90, DistanceKm: 2},
		{DonorID: "c", Score: 95, DistanceKm: 9},
	}

	SortCandidates(candidates)

	assert.Equal(t, "c", candidates[0].DonorID)
	assert.Equal(t, "a", candidates[1].DonorID)
	assert.Equal(t, "b", candidates[2].DonorID)
}

func assertSorted(t *testing.T, candidates []model.Candidate) {
	t.Helper()
	for i := 1; i < len(candidates); i++ {
		prev, cur := candidates[i-1], candidates[i]
		ok := prev.Score > cur.Score || (prev.Score == cur.Score && prev.DistanceKm <= cur.DistanceKm)
		assert.True(t, ok, "candidates %d and %d out of order", i-1, i)
	}
}
