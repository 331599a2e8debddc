package postgres

import "testing"

func TestDefaultServicesFor(t *testing.T) {
	t.Parallel()

	dentist := defaultServicesFor("DENTIST")
	if len(dentist) != 6 {
		t.Fatalf("dentist catalog has %d services, want 6", len(dentist))
	}
	if dentist[0].name != "Routine Cleaning" || dentist[0].price != 120 || dentist[0].duration != 45 {
		t.Fatalf("unexpected first dentist service: %+v", dentist[0])
	}

	mechanic := defaultServicesFor("mechanic")
	if len(mechanic) != 6 {
		t.Fatalf("mechanic catalog has %d services, want 6", len(mechanic))
	}
	if mechanic[0].name != "Oil Change" {
		t.Fatalf("unexpected first mechanic service: %+v", mechanic[0])
	}

	if got := defaultServicesFor("BARBER"); got != nil {
		t.Fatalf("unknown profession must have no defaults, got %+v", got)
	}
}
