// Package geo reúne utilitários de coordenadas para áreas do tamanho de uma raia
// de regata: distância, rumo, projeção de destino e projeção planar local.
package geo

import "math"

// EarthRadius é o raio médio da Terra em metros
const EarthRadius = 6371000.0

// LatLon é uma coordenada geográfica em graus
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Planar é uma posição em metros no plano tangente local (norte = -Z)
type Planar struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// DefaultOrigin é usada quando um dispositivo não informa posição (Baía de Sattahip)
var DefaultOrigin = LatLon{Lat: 12.65, Lon: 100.86}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// Distance calcula a distância haversine entre a e b em metros
func Distance(a, b LatLon) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadius * c
}

// Bearing calcula o rumo inicial de a para b em graus [0, 360)
func Bearing(a, b LatLon) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLon := toRad(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return NormalizeHeading(toDeg(math.Atan2(y, x)))
}

// Destination projeta o ponto alcançado a partir de origin seguindo o rumo
// bearingDeg por distanceMeters
func Destination(origin LatLon, bearingDeg, distanceMeters float64) LatLon {
	ang := distanceMeters / EarthRadius
	lat1 := toRad(origin.Lat)
	lon1 := toRad(origin.Lon)
	brng := toRad(bearingDeg)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(math.Sin(brng)*math.Sin(ang)*math.Cos(lat1),
		math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))

	return LatLon{Lat: toDeg(lat2), Lon: toDeg(lon2)}
}

// Project converte point para metros no plano equiretangular centrado em origin.
// Válido apenas na escala de uma raia; o erro de curvatura cresce com a distância.
func Project(point, origin LatLon) Planar {
	cosLat := math.Cos(toRad(origin.Lat))
	return Planar{
		X: toRad(point.Lon-origin.Lon) * EarthRadius * cosLat,
		Z: -toRad(point.Lat-origin.Lat) * EarthRadius,
	}
}

// NormalizeHeading leva um rumo para o intervalo [0, 360)
func NormalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// HeadingFromDelta estima o rumo pelo deslocamento planar em graus entre prev e curr
// (0 = norte). Usado quando o GPS não informa rumo.
func HeadingFromDelta(prev, curr LatLon) float64 {
	return NormalizeHeading(toDeg(math.Atan2(curr.Lon-prev.Lon, curr.Lat-prev.Lat)))
}

// AngleDiff devolve a menor diferença angular entre a e b, em [0, 180]
func AngleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}
