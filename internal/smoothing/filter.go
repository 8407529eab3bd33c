// Package smoothing reduz o ruído das posições GPS de cada barco: média móvel
// simples das últimas posições, trava de rumo quando parado e trilha limitada.
package smoothing

import (
	"gonum.org/v1/gonum/stat"

	"regata_go/internal/geo"
)

const (
	// WindowSize é o número de posições brutas usadas na média móvel
	WindowSize = 5
	// TrailSize é o número de posições suavizadas mantidas na trilha
	TrailSize = 20
	// StationarySpeed em nós; abaixo disso a unidade é considerada parada
	StationarySpeed = 0.5
)

// Sample é um relatório bruto de uma unidade em um tick
type Sample struct {
	ID      string
	Lat     float64
	Lon     float64
	Speed   float64
	Heading float64
}

// Result é a saída suavizada de um tick
type Result struct {
	Lat          float64
	Lon          float64
	Heading      float64
	IsStationary bool
	Trail        []geo.LatLon
}

// unitTrack é o estado persistente de uma unidade entre ticks
type unitTrack struct {
	window      []geo.LatLon
	trail       []geo.LatLon
	lastHeading float64
	last        Result
}

// Filter guarda o estado de suavização por unidade. Não é seguro para uso
// concorrente: o dono é o loop do sincronizador.
type Filter struct {
	tracks map[string]*unitTrack
}

// NewFilter cria um filtro vazio
func NewFilter() *Filter {
	return &Filter{tracks: make(map[string]*unitTrack)}
}

// Smooth incorpora uma amostra e devolve a saída suavizada
func (f *Filter) Smooth(s Sample) Result {
	track, ok := f.tracks[s.ID]
	if !ok {
		track = &unitTrack{
			window:      make([]geo.LatLon, 0, WindowSize+1),
			trail:       make([]geo.LatLon, 0, TrailSize+1),
			lastHeading: geo.NormalizeHeading(s.Heading),
		}
		f.tracks[s.ID] = track
	}

	track.window = push(track.window, geo.LatLon{Lat: s.Lat, Lon: s.Lon}, WindowSize)
	smoothed := mean(track.window)

	stationary := s.Speed < StationarySpeed
	heading := geo.NormalizeHeading(s.Heading)

	if stationary {
		heading = track.lastHeading
	} else {
		// Rumo 0 com histórico é tratado como desconhecido: derivar do movimento
		if s.Heading == 0 && len(track.window) >= 2 {
			n := len(track.window)
			heading = geo.HeadingFromDelta(track.window[n-2], track.window[n-1])
		}
		track.lastHeading = heading
	}

	track.trail = push(track.trail, smoothed, TrailSize)

	track.last = Result{
		Lat:          smoothed.Lat,
		Lon:          smoothed.Lon,
		Heading:      heading,
		IsStationary: stationary,
	}
	return track.snapshot()
}

// Peek devolve a última saída de uma unidade sem incorporar nova amostra
func (f *Filter) Peek(id string) (Result, bool) {
	track, ok := f.tracks[id]
	if !ok {
		return Result{}, false
	}
	return track.snapshot(), true
}

// Remove descarta o estado de uma unidade
func (f *Filter) Remove(id string) {
	delete(f.tracks, id)
}

// Reset descarta o estado de todas as unidades
func (f *Filter) Reset() {
	f.tracks = make(map[string]*unitTrack)
}

// Len devolve o número de unidades com estado
func (f *Filter) Len() int {
	return len(f.tracks)
}

func (t *unitTrack) snapshot() Result {
	out := t.last
	out.Trail = append([]geo.LatLon(nil), t.trail...)
	return out
}

func push(buf []geo.LatLon, p geo.LatLon, capacity int) []geo.LatLon {
	buf = append(buf, p)
	if len(buf) > capacity {
		copy(buf, buf[1:])
		buf = buf[:capacity]
	}
	return buf
}

func mean(points []geo.LatLon) geo.LatLon {
	if len(points) == 0 {
		return geo.LatLon{}
	}
	lats := make([]float64, len(points))
	lons := make([]float64, len(points))
	for i, p := range points {
		lats[i] = p.Lat
		lons[i] = p.Lon
	}
	return geo.LatLon{Lat: stat.Mean(lats, nil), Lon: stat.Mean(lons, nil)}
}
