package farmapi

import (
	"time"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
)

// farmJSON is the wire shape of GET /farm, field names matching the
// original dashboard API so existing consumers keep working.
type farmJSON struct {
	ID             uint64 `json:"id"`
	Name           string `json:"name"`
	Location       string `json:"location"`
	GPSCoordinates string `json:"gpsCoordinates"`
	TotalArea      uint64 `json:"totalArea"`
	TreeCapacity   uint64 `json:"treeCapacity"`
	CurrentTrees   uint64 `json:"currentTrees"`
	CreationTime   int64  `json:"creationTime"`
	Farmer         string `json:"farmer"`
	IsActive       bool   `json:"isActive"`
	MetadataURI    string `json:"metadataURI"`

	// Aggregates from the farm manager; investment is MBT wei as a decimal
	// string to survive JSON number precision.
	TotalInvestmentWei string `json:"totalInvestmentWei"`
	TotalTrees         uint64 `json:"totalTrees"`
	InvestorCount      uint64 `json:"investorCount"`
}

func toFarmJSON(snap domain.FarmSnapshot, stats domain.FarmStats) farmJSON {
	out := farmJSON{
		ID:             snap.FarmID,
		Name:           snap.Name,
		Location:       snap.Location,
		GPSCoordinates: snap.GPSCoordinates,
		TotalArea:      snap.TotalArea,
		TreeCapacity:   snap.TreeCapacity,
		CurrentTrees:   snap.CurrentTrees,
		CreationTime:   snap.CreationTime.Unix(),
		Farmer:         snap.Farmer,
		IsActive:       snap.Active,
		MetadataURI:    snap.MetadataURI,
		TotalTrees:     stats.TotalTrees,
		InvestorCount:  stats.InvestorCount,
	}
	if stats.TotalInvestment != nil {
		out.TotalInvestmentWei = stats.TotalInvestment.String()
	}
	return out
}

func (f farmJSON) toSnapshot(source domain.SnapshotSource) domain.FarmSnapshot {
	return domain.FarmSnapshot{
		FarmID:         f.ID,
		Name:           f.Name,
		Location:       f.Location,
		GPSCoordinates: f.GPSCoordinates,
		TotalArea:      f.TotalArea,
		TreeCapacity:   f.TreeCapacity,
		CurrentTrees:   f.CurrentTrees,
		CreationTime:   time.Unix(f.CreationTime, 0).UTC(),
		Farmer:         f.Farmer,
		Active:         f.IsActive,
		MetadataURI:    f.MetadataURI,
		Source:         source,
		FetchedAt:      time.Now().UTC(),
	}
}
