package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// RoleRacingBoat é o papel padrão de um dispositivo sem papel declarado
const RoleRacingBoat = "racing_boat"

// DeviceLocation é o sub-registro de localização enviado pelo firmware mais novo;
// quando presente, tem precedência sobre os campos planos do dispositivo
type DeviceLocation struct {
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp *int64   `json:"timestamp,omitempty"`
}

// RawDeviceReport é o snapshot de um dispositivo como chega do feed
type RawDeviceReport struct {
	ID        string          `json:"id,omitempty"`
	Lat       *float64        `json:"lat,omitempty"`
	Lon       *float64        `json:"lon,omitempty"`
	Speed     *float64        `json:"speed,omitempty"`
	Heading   *float64        `json:"heading,omitempty"`
	Location  *DeviceLocation `json:"location,omitempty"`
	TeamID    string          `json:"teamId,omitempty"`
	Role      string          `json:"role,omitempty"`
	RoomID    string          `json:"roomId,omitempty"`
	Timestamp *int64          `json:"timestamp,omitempty"`
}

// EffectiveRole devolve o papel do dispositivo, assumindo racing_boat quando ausente
func (d RawDeviceReport) EffectiveRole() string {
	if d.Role == "" {
		return RoleRacingBoat
	}
	return d.Role
}

// PacketTime devolve o timestamp de origem do relatório (ms), ou 0 se ausente
func (d RawDeviceReport) PacketTime() int64 {
	if d.Location != nil && d.Location.Timestamp != nil {
		return *d.Location.Timestamp
	}
	if d.Timestamp != nil {
		return *d.Timestamp
	}
	return 0
}

// UnitClass é a classificação de um dispositivo visível
type UnitClass string

const (
	// ClassRacing é uma unidade em regata (barco)
	ClassRacing UnitClass = "racing"
	// ClassMarker é um dispositivo que marca a geometria do percurso
	ClassMarker UnitClass = "marker"
)

// Classify classifica um papel: ausente ou racing_boat é unidade em regata,
// qualquer outro é marcador
func Classify(role string) UnitClass {
	if role == "" || role == RoleRacingBoat {
		return ClassRacing
	}
	return ClassMarker
}

// AssignedDevices é a lista explícita de dispositivos de uma sala. Aceita tanto
// um array JSON de ids quanto um objeto {id: true}. nil significa "sem lista".
type AssignedDevices []string

// UnmarshalJSON aceita array ou objeto
func (a *AssignedDevices) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = nil
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		if list == nil {
			list = []string{}
		}
		*a = list
		return nil
	}

	var set map[string]bool
	if err := json.Unmarshal(data, &set); err != nil {
		return fmt.Errorf("lista de dispositivos inválida: %w", err)
	}
	ids := make([]string, 0, len(set))
	for id, on := range set {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	*a = ids
	return nil
}

// Contains indica se id está na lista
func (a AssignedDevices) Contains(id string) bool {
	for _, v := range a {
		if v == id {
			return true
		}
	}
	return false
}

// RoomRecord é uma sala (regata) registrada no feed
type RoomRecord struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	CreatedAt int64           `json:"createdAt"`
	Devices   AssignedDevices `json:"devices"`
}

// RoomMode descreve como a sala ativa foi escolhida
type RoomMode string

const (
	// RoomModeNone indica que não há contexto de sala
	RoomModeNone RoomMode = "none"
	// RoomModeExplicit indica seleção explícita por id
	RoomModeExplicit RoomMode = "explicit"
	// RoomModeAutoLatest indica a sala com maior createdAt
	RoomModeAutoLatest RoomMode = "auto_latest"
)

// ActiveRoom é o contexto de sala ativo do processo (zero ou uma sala)
type ActiveRoom struct {
	Room       *RoomRecord `json:"room,omitempty"`
	Mode       RoomMode    `json:"mode"`
	SelectedID string      `json:"selectedId,omitempty"`
}

// RaceName devolve o nome da regata ativa, ou "" se não houver sala
func (a ActiveRoom) RaceName() string {
	if a.Room == nil {
		return ""
	}
	return a.Room.Name
}
