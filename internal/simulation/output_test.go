package simulation

import (
	"math"
	"testing"
)

func TestWindSpeedDirectionDecodesDueNorth(t *testing.T) {
	// u=0, v=5: atan2(0,5)=0, azimuth=(90-0) mod 360 = 90 (spec §6 formula
	// taken literally; it does not invert grid.windComponents, see DESIGN.md).
	speed, azimuth := windSpeedDirection(0, 5)
	if math.Abs(speed-5) > 1e-9 {
		t.Fatalf("expected speed 5, got %v", speed)
	}
	if math.Abs(azimuth-90) > 1e-9 {
		t.Fatalf("expected azimuth 90 for due-north, got %v", azimuth)
	}
}

func TestWindSpeedDirectionDecodesDueEast(t *testing.T) {
	// u=5, v=0: atan2(5,0)=90, azimuth=(90-90) mod 360 = 0.
	speed, azimuth := windSpeedDirection(5, 0)
	if math.Abs(speed-5) > 1e-9 {
		t.Fatalf("expected speed 5, got %v", speed)
	}
	if math.Abs(azimuth-0) > 1e-9 {
		t.Fatalf("expected azimuth 0 for due-east, got %v", azimuth)
	}
}

func TestWindSpeedDirectionIsNonNegativeAzimuth(t *testing.T) {
	_, azimuth := windSpeedDirection(-1, -1)
	if azimuth < 0 || azimuth >= 360 {
		t.Fatalf("expected azimuth normalized to [0, 360), got %v", azimuth)
	}
}
