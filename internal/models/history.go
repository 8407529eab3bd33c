package models

// HistoryFrame é um quadro imutável do histórico: timestamp (ms) e unidades
type HistoryFrame struct {
	Timestamp int64   `json:"timestamp"`
	Units     UnitMap `json:"units"`
}

// ReplayState é o cursor de reprodução
type ReplayState struct {
	CurrentTime   int64   `json:"currentTime"`
	Speed         float64 `json:"speed"`
	Playing       bool    `json:"playing"`
	Active        bool    `json:"active"`
	Loop          bool    `json:"loop"`
	RaceStartTime int64   `json:"raceStartTime,omitempty"`
}

// HistorySummary resume o buffer de histórico
type HistorySummary struct {
	Frames int   `json:"frames"`
	First  int64 `json:"first,omitempty"`
	Last   int64 `json:"last,omitempty"`
}

// FeedStatus descreve a saúde dos feeds externos
type FeedStatus struct {
	Enabled          bool  `json:"enabled"`
	Connected        bool  `json:"connected"`
	Stale            bool  `json:"stale"`
	LastRoomUpdate   int64 `json:"lastRoomUpdate,omitempty"`
	LastDeviceUpdate int64 `json:"lastDeviceUpdate,omitempty"`
}
