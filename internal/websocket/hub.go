package websocket

import (
	"context"
	"sync"
	"time"

	"regata_go/internal/models"
	"regata_go/pkg/logger"
)

// replayThrottle é o intervalo mínimo entre mensagens de cursor iguais em forma
const replayThrottle = 100 * time.Millisecond

// Controller executa comandos e fornece o estado inicial dos clientes
type Controller interface {
	Snapshot() models.Snapshot
	Execute(ctx context.Context, command string, params map[string]interface{}) (interface{}, error)
}

// Hub gerencia todas as conexões WebSocket e distribuição de mensagens
type Hub struct {
	// Clientes registrados
	clients map[*Client]bool

	// Canal para registrar clientes
	register chan *Client

	// Canal para desregistrar clientes
	unregister chan *Client

	// Canal para mensagens de broadcast
	broadcast chan []byte

	// Comando recebido dos clientes
	commands chan models.ClientCommand

	controller Controller

	// Mutex para operações concorrentes no mapa de clientes
	mu sync.RWMutex

	// Último cursor enviado (para limitar a taxa durante a reprodução)
	lastReplay     models.ReplayState
	lastReplayTime time.Time
	replayLock     sync.Mutex

	// Estatísticas
	stats struct {
		totalMessages      int64
		totalClients       int64
		messagesPerSecond  float64
		lastStatsReset     time.Time
		messagesSinceReset int64
	}
	statsLock sync.Mutex

	// Sinal para encerramento do hub
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub cria uma nova instância do Hub
func NewHub(controller Controller) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		commands:   make(chan models.ClientCommand, 100),
		controller: controller,
		ctx:        ctx,
		cancel:     cancel,
	}

	h.stats.lastStatsReset = time.Now()

	return h
}

// Run inicia o loop principal do hub para gerenciar clientes e mensagens
func (h *Hub) Run() {
	logger.Info("Iniciando WebSocket Hub")

	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			logger.Info("Encerrando WebSocket Hub")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()

			logger.Infof("Novo cliente WebSocket conectado. ID: %s. Total: %d", client.id, clientCount)

			h.statsLock.Lock()
			h.stats.totalClients++
			h.statsLock.Unlock()

			go h.sendWelcome(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()

				logger.Infof("Cliente WebSocket desconectado. ID: %s. Total: %d", client.id, len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			clientCount := len(h.clients)

			h.statsLock.Lock()
			h.stats.totalMessages++
			h.stats.messagesSinceReset++
			h.statsLock.Unlock()

			if clientCount == 0 {
				h.mu.RUnlock()
				continue
			}

			deadClients := make([]*Client, 0, 4)
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// canal do cliente cheio, desconectar
					deadClients = append(deadClients, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range deadClients {
				h.removeClient(client)
			}

		case cmd := <-h.commands:
			go h.handleClientCommand(cmd)

		case <-statsTicker.C:
			h.statsLock.Lock()
			elapsed := time.Since(h.stats.lastStatsReset).Seconds()
			if elapsed > 0 {
				h.stats.messagesPerSecond = float64(h.stats.messagesSinceReset) / elapsed
			}
			h.stats.messagesSinceReset = 0
			h.stats.lastStatsReset = time.Now()
			mps := h.stats.messagesPerSecond
			total := h.stats.totalMessages
			h.statsLock.Unlock()

			logger.Debugf("Estatísticas WebSocket: %d clientes, %.2f msgs/seg, total: %d mensagens",
				h.ClientCount(), mps, total)
		}
	}
}

// removeClient desregistra um cliente dentro do loop do hub
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closeSend()
		logger.Warnf("Cliente WebSocket %s lento, desconectado", client.id)
	}
}

// BroadcastUnits envia o mapa de unidades exibido
func (h *Hub) BroadcastUnits(units models.UnitMap, fromReplay bool) {
	h.send(NewUnitsMessage(units, fromReplay))
}

// BroadcastCourse envia o percurso atual (nil = nenhum)
func (h *Hub) BroadcastCourse(course *models.CourseData) {
	h.send(NewCourseMessage(course))
}

// BroadcastRoom envia o contexto de sala ativo
func (h *Hub) BroadcastRoom(room models.ActiveRoom) {
	h.send(NewRoomMessage(room))
}

// BroadcastFeedStatus envia a saúde do feed
func (h *Hub) BroadcastFeedStatus(status models.FeedStatus) {
	h.send(NewFeedStatusMessage(status))
}

// BroadcastReplay envia o cursor de reprodução. Durante a reprodução o cursor
// muda a cada tick; mensagens em que só CurrentTime mudou são limitadas.
func (h *Hub) BroadcastReplay(state models.ReplayState, history models.HistorySummary) {
	h.replayLock.Lock()
	onlyTime := state.Playing == h.lastReplay.Playing &&
		state.Active == h.lastReplay.Active &&
		state.Speed == h.lastReplay.Speed &&
		state.Loop == h.lastReplay.Loop &&
		state.RaceStartTime == h.lastReplay.RaceStartTime
	if onlyTime && state.Playing && time.Since(h.lastReplayTime) < replayThrottle {
		h.replayLock.Unlock()
		return
	}
	h.lastReplay = state
	h.lastReplayTime = time.Now()
	h.replayLock.Unlock()

	h.send(NewReplayMessage(state, history))
}

func (h *Hub) send(message interface{}) {
	jsonMessage, err := SerializeMessage(message)
	if err != nil {
		logger.Error("Erro ao serializar mensagem", err)
		return
	}

	select {
	case h.broadcast <- jsonMessage:
	case <-h.ctx.Done():
	}
}

// handleClientCommand executa o comando e responde só ao cliente solicitante
func (h *Hub) handleClientCommand(cmd models.ClientCommand) {
	logger.Debugf("Comando recebido do cliente %s: %s", cmd.ClientID, cmd.Command)

	client := h.getClientByID(cmd.ClientID)

	if h.controller == nil {
		if client != nil {
			client.sendError(cmd.ID, "unavailable", "Controlador indisponível")
		}
		return
	}

	data, err := h.controller.Execute(h.ctx, cmd.Command, cmd.Params)
	if client == nil {
		return
	}
	if err != nil {
		logger.Warnf("Comando %s do cliente %s falhou: %v", cmd.Command, cmd.ClientID, err)
		client.sendError(cmd.ID, cmd.Command, err.Error())
		return
	}
	client.sendMessage(NewAckMessage(cmd.Command, cmd.ID, data))
}

// sendWelcome envia o estado completo para um novo cliente
func (h *Hub) sendWelcome(client *Client) {
	data := map[string]interface{}{
		"message":  "Conectado ao servidor de telemetria da regata",
		"clientId": client.id,
	}
	if h.controller != nil {
		data["snapshot"] = h.controller.Snapshot()
	}

	client.sendMessage(models.WebSocketMessage{
		Type:      models.MsgWelcome,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// Shutdown encerra graciosamente o hub
func (h *Hub) Shutdown() {
	h.cancel()
	time.Sleep(100 * time.Millisecond)
}

// closeAllClients fecha todas as conexões dos clientes
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	logger.Info("Fechando todas as conexões de clientes WebSocket")
	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}
}

// ClientCount retorna o número atual de clientes conectados
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// getClientByID retorna um cliente pelo seu ID
func (h *Hub) getClientByID(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.id == clientID {
			return client
		}
	}
	return nil
}
