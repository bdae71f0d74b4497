package filter

import (
	"testing"

	"hotel-scraper/config"
	"hotel-scraper/models"
)

func sampleHotels() []*models.Hotel {
	return []*models.Hotel{
		{Name: "Pet Friendly High", IsPetFriendly: true, Rating: 4.5},
		{Name: "Pet Friendly Low", IsPetFriendly: true, Rating: 3.0},
		{Name: "No Pets", IsPetFriendly: false, Rating: 4.8},
		{Name: "Unrated", IsPetFriendly: true, Rating: 0},
	}
}

func names(hotels []*models.Hotel) []string {
	var out []string
	for _, h := range hotels {
		out = append(out, h.Name)
	}
	return out
}

func TestApplyNoFilters(t *testing.T) {
	f := NewFilter(&config.FiltersConfig{})
	got := f.Apply(sampleHotels())
	if len(got) != 4 {
		t.Errorf("Apply() kept %d hotels, want all 4", len(got))
	}
}

func TestApplyPetFriendlyOnly(t *testing.T) {
	f := NewFilter(&config.FiltersConfig{PetFriendlyOnly: true})
	got := f.Apply(sampleHotels())
	if len(got) != 3 {
		t.Fatalf("Apply() kept %v, want 3 pet-friendly hotels", names(got))
	}
	for _, h := range got {
		if !h.IsPetFriendly {
			t.Errorf("Apply() kept %q which is not pet friendly", h.Name)
		}
	}
}

func TestApplyMinRating(t *testing.T) {
	f := NewFilter(&config.FiltersConfig{MinRating: 4.0})
	got := f.Apply(sampleHotels())

	// 3.0 is dropped; the unrated hotel is kept since its rating is unknown
	want := map[string]bool{"Pet Friendly High": true, "No Pets": true, "Unrated": true}
	if len(got) != len(want) {
		t.Fatalf("Apply() kept %v, want %d hotels", names(got), len(want))
	}
	for _, h := range got {
		if !want[h.Name] {
			t.Errorf("Apply() kept unexpected hotel %q", h.Name)
		}
	}
}

func TestApplyCombinedFilters(t *testing.T) {
	f := NewFilter(&config.FiltersConfig{PetFriendlyOnly: true, MinRating: 4.0})
	got := f.Apply(sampleHotels())

	want := map[string]bool{"Pet Friendly High": true, "Unrated": true}
	if len(got) != len(want) {
		t.Fatalf("Apply() kept %v, want %v", names(got), want)
	}
}
