package geo

import (
	"math"
	"testing"
)

func TestDistanceKm(t *testing.T) {
	t.Parallel()

	if d := DistanceKm(47.6062, -122.3321, 47.6062, -122.3321); d != 0 {
		t.Errorf("distance to self = %f, want 0", d)
	}

	// Paris to London, roughly 344 km.
	d := DistanceKm(48.8566, 2.3522, 51.5074, -0.1278)
	if d < 330 || d > 360 {
		t.Errorf("Paris-London distance = %f km, want ~344", d)
	}

	// Symmetry.
	if back := DistanceKm(51.5074, -0.1278, 48.8566, 2.3522); math.Abs(back-d) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", d, back)
	}
}

func TestRelevance(t *testing.T) {
	t.Parallel()

	w := DefaultWeights

	if closer, farther := Relevance(w, 1, 20, -1), Relevance(w, 10, 20, -1); closer <= farther {
		t.Errorf("closer deal should score higher: %f vs %f", closer, farther)
	}
	if big, small := Relevance(w, 5, 80, -1), Relevance(w, 5, 10, -1); big <= small {
		t.Errorf("bigger discount should score higher: %f vs %f", big, small)
	}
	if fresh, stale := Relevance(w, 5, 20, 2), Relevance(w, 5, 20, 500); fresh <= stale {
		t.Errorf("recent redemption should score higher: %f vs %f", fresh, stale)
	}

	// A deal never redeemed gets no recency contribution at all.
	never := Relevance(w, 5, 20, -1)
	justNow := Relevance(w, 5, 20, 0)
	if never >= justNow {
		t.Errorf("never-redeemed %f should trail just-redeemed %f", never, justNow)
	}
	want := w.Distance/(1+5) + w.Discount*20/100
	if math.Abs(never-want) > 1e-9 {
		t.Errorf("never-redeemed score = %f, want %f", never, want)
	}
}
