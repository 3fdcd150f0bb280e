package pipeline

import (
	"testing"

	"otif-pipeline/internal/model"
)

func TestResolveGeo_MeanPerPrefix(t *testing.T) {
	samples := []model.GeoSample{
		{ZipPrefix: "01310", Lat: -23.56, Lng: -46.65},
		{ZipPrefix: "01310", Lat: -23.58, Lng: -46.67},
		{ZipPrefix: "22041", Lat: -22.98, Lng: -43.19},
	}

	points := ResolveGeo(samples)

	if len(points) != 2 {
		t.Fatalf("want 2 prefixes, got %d", len(points))
	}
	sp := points["01310"]
	if !almostEqual(sp.Lat, -23.57) || !almostEqual(sp.Lng, -46.66) {
		t.Fatalf("prefix 01310 mean = %+v", sp)
	}
	if _, ok := points["99999"]; ok {
		t.Fatalf("absent prefix must stay unresolved")
	}
}

func TestHaversine_SymmetricAndZero(t *testing.T) {
	spLat, spLng := -23.55, -46.63 // São Paulo
	rjLat, rjLng := -22.91, -43.17 // Rio de Janeiro

	d1 := Haversine(spLat, spLng, rjLat, rjLng)
	d2 := Haversine(rjLat, rjLng, spLat, spLng)
	if !almostEqual(d1, d2) {
		t.Fatalf("distance not symmetric: %v vs %v", d1, d2)
	}
	// SP-Rio is roughly 360 km great-circle.
	if d1 < 300 || d1 > 420 {
		t.Fatalf("SP-Rio distance out of range: %v", d1)
	}

	if d := Haversine(spLat, spLng, spLat, spLng); d != 0 {
		t.Fatalf("identical coordinates must give zero, got %v", d)
	}
}

func TestGeoDistance_NullPropagation(t *testing.T) {
	lat, lng := fptr(-23.55), fptr(-46.63)

	if d := GeoDistance(nil, lng, lat, lng); d != nil {
		t.Fatalf("missing customer latitude must give null, got %v", *d)
	}
	if d := GeoDistance(lat, lng, lat, nil); d != nil {
		t.Fatalf("missing seller longitude must give null, got %v", *d)
	}
	if d := GeoDistance(lat, lng, lat, lng); d == nil || *d != 0 {
		t.Fatalf("coincident points must give zero, got %v", d)
	}
}
