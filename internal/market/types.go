package market

import "time"

// SourceType classifies energy assets by generation source.
type SourceType string

const (
	SourceSolar   SourceType = "SOLAR"
	SourceWind    SourceType = "WIND"
	SourceHydro   SourceType = "HYDRO"
	SourceThermal SourceType = "THERMAL"
	SourceNuclear SourceType = "NUCLEAR"
	SourceBiomass SourceType = "BIOMASS"
)

// Asset is a tradable energy source with a configured base price.
// BasePrice (KAUS per kWh) is the fallback when no history exists.
type Asset struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      SourceType `json:"type"`
	BasePrice float64    `json:"basePrice"`
}

// PricePoint is one observation in an asset's price series.
// Immutable once recorded.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
}

// DefaultAssets is the built-in energy asset catalog.
func DefaultAssets() []Asset {
	return []Asset{
		{ID: "F9-SOLAR-001", Name: "Yeongdong Solar Park", Type: SourceSolar, BasePrice: 1.08},
		{ID: "F9-WIND-001", Name: "Jeju Offshore Wind", Type: SourceWind, BasePrice: 0.875},
		{ID: "F9-HYDRO-001", Name: "Chungju Hydro Plant", Type: SourceHydro, BasePrice: 0.683},
		{ID: "F9-THERMAL-001", Name: "Dangjin LNG Combined Cycle", Type: SourceThermal, BasePrice: 1.29},
		{ID: "F9-NUCLEAR-001", Name: "Hanul Nuclear Plant", Type: SourceNuclear, BasePrice: 0.542},
		{ID: "F9-BIOMASS-001", Name: "Hwaseong Biomass Plant", Type: SourceBiomass, BasePrice: 0.983},
	}
}

// AssetByID returns the asset with the given id from a catalog.
func AssetByID(assets []Asset, id string) (Asset, bool) {
	for _, a := range assets {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}
