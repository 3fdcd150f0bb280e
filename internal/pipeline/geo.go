package pipeline

import (
	"math"

	"otif-pipeline/internal/model"
)

const earthRadiusKM = 6371.0

// ResolveGeo reduces raw geolocation samples to one mean coordinate per zip
// prefix. Prefixes absent from the result stay unresolved and yield null
// coordinates, and so a null distance, downstream.
func ResolveGeo(samples []model.GeoSample) map[string]model.GeoPoint {
	type acc struct {
		lat, lng float64
		n        int
	}
	sums := make(map[string]*acc)
	for _, s := range samples {
		a, ok := sums[s.ZipPrefix]
		if !ok {
			a = &acc{}
			sums[s.ZipPrefix] = a
		}
		a.lat += s.Lat
		a.lng += s.Lng
		a.n++
	}

	points := make(map[string]model.GeoPoint, len(sums))
	for prefix, a := range sums {
		points[prefix] = model.GeoPoint{
			Lat: a.lat / float64(a.n),
			Lng: a.lng / float64(a.n),
		}
	}
	return points
}

// Haversine returns the great-circle distance in kilometers between two
// coordinates.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}

// GeoDistance computes the distance between two nullable coordinate pairs.
// Missing coordinates on either side make the distance undefined, not zero.
func GeoDistance(custLat, custLng, sellLat, sellLng *float64) *float64 {
	if custLat == nil || custLng == nil || sellLat == nil || sellLng == nil {
		return nil
	}
	d := Haversine(*custLat, *custLng, *sellLat, *sellLng)
	return &d
}
