package models

import (
	"time"

	"regata_go/internal/geo"
)

// UnitState é o estado suavizado de uma unidade em regata
type UnitState struct {
	ID             string       `json:"id"`
	Team           string       `json:"team"`
	Role           string       `json:"role"`
	Lat            float64      `json:"lat"`
	Lon            float64      `json:"lon"`
	Speed          float64      `json:"speed"`
	Heading        float64      `json:"heading"`
	IsStationary   bool         `json:"isStationary"`
	Trail          []geo.LatLon `json:"trail,omitempty"`
	LastPacketTime int64        `json:"lastPacketTime,omitempty"`
	LastUpdated    int64        `json:"lastUpdated"`
}

// Offline indica se a unidade está sem relatórios há mais que threshold
func (u UnitState) Offline(now time.Time, threshold time.Duration) bool {
	seen := u.LastPacketTime
	if u.LastUpdated > seen {
		seen = u.LastUpdated
	}
	elapsed := now.UnixNano()/int64(time.Millisecond) - seen
	return elapsed > threshold.Milliseconds()
}

// UnitMap é o mapa id → estado
type UnitMap map[string]UnitState

// Clone copia o mapa e as trilhas, para que o chamador não observe mutações futuras
func (m UnitMap) Clone() UnitMap {
	if m == nil {
		return UnitMap{}
	}
	out := make(UnitMap, len(m))
	for id, u := range m {
		if u.Trail != nil {
			u.Trail = append([]geo.LatLon(nil), u.Trail...)
		}
		out[id] = u
	}
	return out
}
