package models

import "time"

// Tipos de mensagem enviados ao cliente
const (
	MsgWelcome    = "welcome"
	MsgUnits      = "units"
	MsgCourse     = "course"
	MsgRoom       = "room"
	MsgReplay     = "replay"
	MsgFeedStatus = "feed_status"
	MsgPong       = "pong"
	MsgError      = "error"
	MsgAck        = "ack"
)

// WebSocketMessage representa a estrutura base de todas as mensagens WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`            // Tipo da mensagem: "units", "course", "replay", etc.
	Timestamp time.Time   `json:"timestamp"`       // Timestamp da mensagem
	Data      interface{} `json:"data,omitempty"`  // Dados adicionais específicos do tipo
	Error     string      `json:"error,omitempty"` // Mensagem de erro, se houver
}

// UnitsMessage leva o mapa de unidades exibido
type UnitsMessage struct {
	WebSocketMessage
	Units  UnitMap `json:"units"`
	Replay bool    `json:"replay"` // true quando o mapa vem do histórico
}

// CourseMessage leva o percurso atual (nil = nada para desenhar)
type CourseMessage struct {
	WebSocketMessage
	Course *CourseData `json:"course"`
}

// RoomMessage leva o contexto de sala ativo
type RoomMessage struct {
	WebSocketMessage
	Room     ActiveRoom `json:"room"`
	RaceName string     `json:"raceName,omitempty"`
}

// ReplayMessage leva o estado do cursor e o resumo do histórico
type ReplayMessage struct {
	WebSocketMessage
	State   ReplayState    `json:"state"`
	History HistorySummary `json:"history"`
}

// FeedStatusMessage leva a saúde dos feeds
type FeedStatusMessage struct {
	WebSocketMessage
	Status FeedStatus `json:"status"`
}

// Snapshot é o estado completo enviado a um cliente recém-conectado
type Snapshot struct {
	Units   UnitMap        `json:"units"`
	Replay  ReplayState    `json:"replay"`
	History HistorySummary `json:"history"`
	Course  *CourseData    `json:"course"`
	Room    ActiveRoom     `json:"room"`
	Feed    FeedStatus     `json:"feed"`
	Laps    int            `json:"laps"`
}

// CommandMessage é uma mensagem de comando do cliente para o servidor
type CommandMessage struct {
	Type   string                 `json:"type"`             // Tipo de comando: "play", "seek", etc.
	Params map[string]interface{} `json:"params,omitempty"` // Parâmetros adicionais
	ID     string                 `json:"id,omitempty"`     // ID opcional para correlacionar solicitações/respostas
}

// ClientCommand representa um comando enviado por um cliente identificado
type ClientCommand struct {
	Command  string                 `json:"command"`
	Params   map[string]interface{} `json:"params,omitempty"`
	ClientID string                 `json:"-"` // Usado internamente, não enviado no JSON
	ID       string                 `json:"id,omitempty"`
}

// PongMessage representa um pong enviado pelo servidor
type PongMessage struct {
	WebSocketMessage
	Time       int64 `json:"time"`       // Timestamp original do ping
	ServerTime int64 `json:"serverTime"` // Timestamp do servidor em milissegundos
}
