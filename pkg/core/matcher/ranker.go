package matcher

import (
	"math"
	"runtime"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/lifeline-network/bloodmatch/pkg/core/compatibility"
	"github.com/lifeline-network/bloodmatch/pkg/core/geo"
	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

// RankOptions bounds a ranking pass
type RankOptions struct {
	// RadiusKm excludes donors farther than this from the request
	RadiusKm float64 `yaml:"radiusKm" validate:"gt=0"`

	// MaxResults truncates the ranked list. Zero means unbounded.
	MaxResults int `yaml:"maxResults" validate:"gte=0"`
}

var (
	// DiscoveryOptions are used for ad-hoc nearby donor searches
	DiscoveryOptions = RankOptions{RadiusKm: 50, MaxResults: 0}

	// AutoMatchOptions are used when a new request is matched automatically
	AutoMatchOptions = RankOptions{RadiusKm: 100, MaxResults: 20}
)

// RankTarget is the part of a request the ranker needs
type RankTarget struct {
	BloodType model.BloodType
	Location  geo.Coordinate
}

// Ranker turns a donor pool into an ordered, bounded candidate list
type Ranker struct {
	scorer      *Scorer
	concurrency int
}

// NewRanker creates a Ranker that scores donors in parallel using up to GOMAXPROCS goroutines
func NewRanker(scorer *Scorer) *Ranker {
	return &Ranker{
		scorer:      scorer,
		concurrency: runtime.GOMAXPROCS(0),
	}
}

// Rank filters the pool to compatible donors with a known location inside the
// radius, scores them and returns them ordered by score (highest first) then
// distance (closest first). Donors with equal score and distance keep their
// pool order.
//
// Every donor is scored against the same instant so one pass is consistent.
func (r *Ranker) Rank(pool []model.Donor, target RankTarget, opts RankOptions) []model.Candidate {
	compatible := compatibility.CompatibleDonorTypes(target.BloodType)
	if len(compatible) == 0 {
		return []model.Candidate{}
	}

	// Filter to compatible donors who have a location
	survivors := make([]model.Donor, 0, len(pool))
	for _, donor := range pool {
		if donor.Location == nil {
			continue
		}
		if !slices.Contains(compatible, donor.BloodType) {
			continue
		}
		survivors = append(survivors, donor)
	}

	now := r.scorer.Now()

	// Fan out scoring, fan in by index so ordering does not depend on scheduling
	scored := make([]*model.Candidate, len(survivors))
	var g errgroup.Group
	g.SetLimit(max(r.concurrency, 1))
	for i, donor := range survivors {
		g.Go(func() error {
			distance := donor.Location.DistanceTo(target.Location)
			if distance > opts.RadiusKm {
				return nil
			}

			scored[i] = &model.Candidate{
				DonorID:          donor.ID,
				DonorName:        donor.FullName,
				DonorEmail:       donor.Email,
				BloodType:        donor.BloodType,
				DistanceKm:       roundKm(distance),
				Score:            r.scorer.scoreAt(donor, target.BloodType, distance, now),
				IsAvailable:      donor.IsAvailable,
				LastDonationDate: donor.LastDonationDate,
				Status:           model.CandidateStatusPending,
			}
			return nil
		})
	}
	// Scoring never fails; Wait only joins the goroutines
	_ = g.Wait()

	candidates := make([]model.Candidate, 0, len(scored))
	for _, c := range scored {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}

	SortCandidates(candidates)

	if opts.MaxResults > 0 && len(candidates) > opts.MaxResults {
		candidates = candidates[:opts.MaxResults]
	}

	return candidates
}

// SortCandidates orders candidates by score descending, then distance ascending.
// The sort is stable.
func SortCandidates(candidates []model.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].DistanceKm < candidates[j].DistanceKm
	})
}

func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
