package filter

import (
	"hotel-scraper/config"
	"hotel-scraper/models"
)

// Filter applies export filter criteria to extracted hotels
type Filter struct {
	cfg *config.FiltersConfig
}

// NewFilter creates a new Filter instance
func NewFilter(cfg *config.FiltersConfig) *Filter {
	return &Filter{
		cfg: cfg,
	}
}

// Apply filters hotels based on the configuration
func (f *Filter) Apply(hotels []*models.Hotel) []*models.Hotel {
	var filtered []*models.Hotel

	for _, hotel := range hotels {
		if f.matches(hotel) {
			filtered = append(filtered, hotel)
		}
	}

	return filtered
}

// matches checks if a hotel satisfies all filter criteria
func (f *Filter) matches(hotel *models.Hotel) bool {
	if f.cfg.PetFriendlyOnly && !hotel.IsPetFriendly {
		return false
	}

	// Only filter by rating when one was actually extracted; a missing
	// rating (0) says nothing about the hotel.
	if f.cfg.MinRating > 0 && hotel.Rating > 0 {
		if hotel.Rating < f.cfg.MinRating {
			return false
		}
	}

	return true
}
