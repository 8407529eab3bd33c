package telemetry

import (
	"sort"

	"regata_go/internal/models"
)

// resolveActiveRoom escolhe a sala ativa: a selecionada explicitamente, ou a
// de maior createdAt. Empates ficam com o menor id.
func resolveActiveRoom(rooms map[string]models.RoomRecord, selectedID string) models.ActiveRoom {
	if selectedID != "" {
		active := models.ActiveRoom{Mode: models.RoomModeExplicit, SelectedID: selectedID}
		if room, ok := rooms[selectedID]; ok {
			room.ID = selectedID
			active.Room = &room
		}
		return active
	}

	var latest *models.RoomRecord
	for _, id := range sortedRoomIDs(rooms) {
		room := rooms[id]
		room.ID = id
		if latest == nil || room.CreatedAt > latest.CreatedAt {
			r := room
			latest = &r
		}
	}
	if latest == nil {
		return models.ActiveRoom{Mode: models.RoomModeNone}
	}
	return models.ActiveRoom{Room: latest, Mode: models.RoomModeAutoLatest}
}

// visibleDevices aplica a escada de visibilidade:
//  1. sala ativa com lista de dispositivos: só os da lista
//  2. sala selecionada explicitamente: só os com roomId igual
//  3. sem contexto de sala: todos
func visibleDevices(devices map[string]models.RawDeviceReport, active models.ActiveRoom) map[string]models.RawDeviceReport {
	switch {
	case active.Room != nil && active.Room.Devices != nil:
		out := make(map[string]models.RawDeviceReport, len(active.Room.Devices))
		for id, d := range devices {
			if active.Room.Devices.Contains(id) {
				out[id] = d
			}
		}
		return out

	case active.Mode == models.RoomModeExplicit:
		out := make(map[string]models.RawDeviceReport)
		for id, d := range devices {
			if d.RoomID == active.SelectedID {
				out[id] = d
			}
		}
		return out
	}
	return devices
}

func sortedRoomIDs(rooms map[string]models.RoomRecord) []string {
	ids := make([]string, 0, len(rooms))
	for id := range rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedDeviceIDs(devices map[string]models.RawDeviceReport) []string {
	ids := make([]string, 0, len(devices))
	for id := range devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
