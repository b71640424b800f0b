package conjunction

import "time"

// Conjunction is a predicted close approach between two catalog objects,
// identified by the ordered pair of their catalog numbers (CatalogNumberA <
// CatalogNumberB always holds, mirroring satellite.Pair's normalization).
type Conjunction struct {
	ID                    int64
	CatalogNumberA        int
	CatalogNumberB        int
	TimeOfClosestApproach time.Time
	MissDistanceKm        float64
	RelativeSpeedMS       float64
	DiscoveredAt          time.Time
	UpdatedAt             time.Time
}

// Key returns the identity a conjunction is upserted on: the object pair.
// A run may refine the same pair's TCA repeatedly across successive syncs;
// only the closest observed approach is retained, keyed by this pair.
func (c Conjunction) Key() (int, int) {
	return c.CatalogNumberA, c.CatalogNumberB
}
