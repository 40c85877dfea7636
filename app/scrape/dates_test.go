package scrape

import (
	"testing"
)

func TestIsoFromLabel(t *testing.T) {
	tests := []struct {
		label    string
		year     int
		expected string
	}{
		{"Mandag 3. marts", 2025, "2025-03-03"},
		{"Tirsdag 10. juni", 2025, "2025-06-10"},
		{"lørdag 1. februar", 2025, "2025-02-01"},
		{"  Søndag 24. december  ", 2025, "2025-12-24"},
		{"Mandag 3. marts 2025 - med efterfølgende Q&A", 2025, "2025-03-03"},
		{"Ugyldig dag", 2025, ""},
		{"Mandag 31. april", 2025, ""}, // April has 30 days
		{"Mandag 3. martian", 2025, ""},
		{"", 2025, ""},
	}

	for _, tt := range tests {
		result := IsoFromLabel(tt.label, tt.year)
		if result != tt.expected {
			t.Errorf("IsoFromLabel(%q, %d): expected %q, got %q", tt.label, tt.year, tt.expected, result)
		}
	}
}

func TestWeekdayLabel(t *testing.T) {
	tests := []struct {
		iso      string
		expected string
	}{
		{"2025-06-10", "Tirsdag 10. juni"},
		{"2025-03-03", "Mandag 3. marts"},
		{"2025-12-24", "Onsdag 24. december"},
	}

	for _, tt := range tests {
		result := WeekdayLabel(tt.iso)
		if result != tt.expected {
			t.Errorf("WeekdayLabel(%q): expected %q, got %q", tt.iso, tt.expected, result)
		}
	}
}

func TestWeekdayLabelRoundTrip(t *testing.T) {
	iso := "2025-06-10"
	if got := IsoFromLabel(WeekdayLabel(iso), 2025); got != iso {
		t.Errorf("Expected round trip to return %q, got %q", iso, got)
	}
}

func TestUniqueSorted(t *testing.T) {
	result := uniqueSorted([]string{"19:15", "14:00", "19:15", "", "09:30"})
	expected := []string{"09:30", "14:00", "19:15"}
	if len(result) != len(expected) {
		t.Fatalf("Expected %d entries, got %d: %v", len(expected), len(result), result)
	}
	for i := range expected {
		if result[i] != expected[i] {
			t.Errorf("Expected %q at index %d, got %q", expected[i], i, result[i])
		}
	}
}
