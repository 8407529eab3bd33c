package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"regata_go/internal/models"
)

// Funções utilitárias para criação e processamento de mensagens WebSocket

func base(msgType string) models.WebSocketMessage {
	return models.WebSocketMessage{Type: msgType, Timestamp: time.Now()}
}

// NewUnitsMessage cria a mensagem com o mapa de unidades exibido
func NewUnitsMessage(units models.UnitMap, fromReplay bool) *models.UnitsMessage {
	if units == nil {
		units = models.UnitMap{}
	}
	return &models.UnitsMessage{
		WebSocketMessage: base(models.MsgUnits),
		Units:            units,
		Replay:           fromReplay,
	}
}

// NewCourseMessage cria a mensagem de percurso
func NewCourseMessage(course *models.CourseData) *models.CourseMessage {
	return &models.CourseMessage{
		WebSocketMessage: base(models.MsgCourse),
		Course:           course,
	}
}

// NewRoomMessage cria a mensagem de contexto de sala
func NewRoomMessage(room models.ActiveRoom) *models.RoomMessage {
	return &models.RoomMessage{
		WebSocketMessage: base(models.MsgRoom),
		Room:             room,
		RaceName:         room.RaceName(),
	}
}

// NewReplayMessage cria a mensagem do cursor de reprodução
func NewReplayMessage(state models.ReplayState, history models.HistorySummary) *models.ReplayMessage {
	return &models.ReplayMessage{
		WebSocketMessage: base(models.MsgReplay),
		State:            state,
		History:          history,
	}
}

// NewFeedStatusMessage cria a mensagem de saúde do feed
func NewFeedStatusMessage(status models.FeedStatus) *models.FeedStatusMessage {
	return &models.FeedStatusMessage{
		WebSocketMessage: base(models.MsgFeedStatus),
		Status:           status,
	}
}

// NewAckMessage confirma um comando, levando o id de correlação
func NewAckMessage(command, requestID string, data interface{}) models.WebSocketMessage {
	msg := base(models.MsgAck)
	msg.Data = map[string]interface{}{
		"command": command,
		"id":      requestID,
		"result":  data,
	}
	return msg
}

// NewErrorMessage cria uma nova mensagem de erro
func NewErrorMessage(message, errorCode, requestID string) models.WebSocketMessage {
	msg := base(models.MsgError)
	msg.Error = message
	data := map[string]string{"code": errorCode}
	if requestID != "" {
		data["id"] = requestID
	}
	msg.Data = data
	return msg
}

// SerializeMessage serializa uma mensagem para JSON
func SerializeMessage(message interface{}) ([]byte, error) {
	return json.Marshal(message)
}

// ParseClientCommand analisa um comando recebido do cliente
func ParseClientCommand(data []byte) (models.CommandMessage, error) {
	var command models.CommandMessage
	if err := json.Unmarshal(data, &command); err != nil {
		return command, fmt.Errorf("comando inválido: %w", err)
	}
	return command, nil
}

// CreatePongResponse cria uma resposta para um ping do cliente
func CreatePongResponse(pingTime int64) *models.PongMessage {
	return &models.PongMessage{
		WebSocketMessage: base(models.MsgPong),
		Time:             pingTime,
		ServerTime:       time.Now().UnixNano() / int64(time.Millisecond),
	}
}
