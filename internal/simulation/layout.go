package simulation

import (
	"regata_go/internal/geo"
)

const (
	startLineHalf  = 100.0 // m, meia largura da linha de largada
	gateHalf       = 40.0  // m, meia largura do portão de sotavento
	gateOffset     = 150.0 // m, portão a barlavento da largada
	offsetMarkDist = 80.0  // m, boia 1A deslocada da boia 1
	finishOffset   = 200.0 // m, linha de chegada a sotavento da largada
	finishHalf     = 60.0
)

// Mark é um marcador fixo do percurso simulado
type Mark struct {
	ID   string
	Role string
	Pos  geo.LatLon
}

// Layout é um percurso barlavento/sotavento orientado pelo vento
type Layout struct {
	Origin  geo.LatLon
	WindDir float64
	Marks   []Mark
	// Route é a sequência de pontos que os barcos percorrem em uma regata
	Route []geo.LatLon
}

// NewLayout posiciona linha de largada, boias 1/1A, portão 4S/4P e linha de
// chegada em torno de origin. windDir é a direção de onde o vento sopra
// (graus), legLength o comprimento da perna de contravento em metros.
func NewLayout(origin geo.LatLon, windDir, legLength float64, laps int) Layout {
	if laps < 1 {
		laps = 1
	}
	windDir = geo.NormalizeHeading(windDir)
	port := windDir - 90
	starboard := windDir + 90
	downwind := windDir + 180

	mark1 := geo.Destination(origin, windDir, legLength)
	mark1a := geo.Destination(mark1, port, offsetMarkDist)
	gateMid := geo.Destination(origin, windDir, gateOffset)
	finishMid := geo.Destination(origin, downwind, finishOffset)

	l := Layout{
		Origin:  origin,
		WindDir: windDir,
		Marks: []Mark{
			{ID: "sim-start-pin", Role: "start_pin", Pos: geo.Destination(origin, port, startLineHalf)},
			{ID: "sim-start-boat", Role: "start_boat", Pos: geo.Destination(origin, starboard, startLineHalf)},
			{ID: "sim-buoy-1", Role: "buoy_1", Pos: mark1},
			{ID: "sim-buoy-1a", Role: "buoy_1a", Pos: mark1a},
			{ID: "sim-gate-4s", Role: "gate_4s", Pos: geo.Destination(gateMid, starboard, gateHalf)},
			{ID: "sim-gate-4p", Role: "gate_4p", Pos: geo.Destination(gateMid, port, gateHalf)},
			{ID: "sim-finish-pin", Role: "finish_pin", Pos: geo.Destination(finishMid, port, finishHalf)},
			{ID: "sim-finish-boat", Role: "finish_boat", Pos: geo.Destination(finishMid, starboard, finishHalf)},
		},
	}

	// mesma ordem da sequência do percurso: a última volta segue da 1A para a chegada
	for lap := 0; lap < laps; lap++ {
		l.Route = append(l.Route, mark1, mark1a)
		if lap < laps-1 {
			l.Route = append(l.Route, gateMid)
		}
	}
	l.Route = append(l.Route, finishMid)
	return l
}

// StartPosition distribui n barcos ao longo da linha de largada, um pouco a sotavento
func (l Layout) StartPosition(i, n int) geo.LatLon {
	pin, boat := l.Marks[0].Pos, l.Marks[1].Pos
	t := float64(i+1) / float64(n+1)
	onLine := geo.LatLon{
		Lat: pin.Lat + (boat.Lat-pin.Lat)*t,
		Lon: pin.Lon + (boat.Lon-pin.Lon)*t,
	}
	return geo.Destination(onLine, l.WindDir+180, 30)
}
