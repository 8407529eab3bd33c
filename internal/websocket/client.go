package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"regata_go/internal/models"
	"regata_go/pkg/logger"
)

const (
	// Tempo permitido para escrever uma mensagem para o peer.
	writeWait = 10 * time.Second

	// Tempo permitido para ler a próxima mensagem do peer.
	pongWait = 60 * time.Second

	// Envia pings ao peer com esse intervalo. Deve ser menor que pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Tamanho máximo da mensagem permitido (injeção de dispositivos pode ser grande).
	maxMessageSize = 512 * 1024

	// Tamanho do buffer de canal para mensagens de saída.
	sendBufferSize = 256
)

// Client representa uma conexão WebSocket individual
type Client struct {
	hub *Hub

	// Conexão WebSocket.
	conn *websocket.Conn

	// Buffer de mensagens para envio.
	send     chan []byte
	sendLock sync.Mutex
	closed   bool

	// ID único do cliente
	id string

	userAgent   string
	ipAddress   string
	connectedAt time.Time
}

// newClient cria um novo cliente WebSocket
func newClient(hub *Hub, conn *websocket.Conn, userAgent, ipAddress string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		id:          uuid.New().String(),
		userAgent:   userAgent,
		ipAddress:   ipAddress,
		connectedAt: time.Now(),
	}
}

// readPump bombeia mensagens do WebSocket para o hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				logger.Errorf("Erro de leitura WebSocket: %v", err)
			}
			break
		}

		c.processIncomingMessage(message)
	}
}

// writePump bombeia mensagens do hub para a conexão WebSocket.
// Cada mensagem vai em um frame próprio para que o cliente possa decodificar JSON diretamente.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// O hub fechou o canal.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processIncomingMessage processa uma mensagem recebida do cliente
func (c *Client) processIncomingMessage(message []byte) {
	cmd, err := ParseClientCommand(message)
	if err != nil {
		logger.Warnf("Erro ao decodificar mensagem do cliente %s: %v", c.id, err)
		c.sendError("", "invalid_format", "Formato de mensagem inválido")
		return
	}

	switch cmd.Type {
	case "":
		c.sendError(cmd.ID, "invalid_format", "Tipo de comando ausente")
	case "ping":
		c.handlePing(cmd)
	default:
		// Encaminhar comando para o hub processar
		select {
		case c.hub.commands <- models.ClientCommand{
			Command:  cmd.Type,
			Params:   cmd.Params,
			ClientID: c.id,
			ID:       cmd.ID,
		}:
		case <-c.hub.ctx.Done():
		}
	}
}

// handlePing responde com pong sem passar pelo hub
func (c *Client) handlePing(cmd models.CommandMessage) {
	var pingTime int64
	if timeVal, ok := cmd.Params["time"].(float64); ok {
		pingTime = int64(timeVal)
	}
	c.sendMessage(CreatePongResponse(pingTime))
}

// sendError envia uma mensagem de erro para o cliente
func (c *Client) sendError(requestID, code, message string) {
	c.sendMessage(NewErrorMessage(message, code, requestID))
}

// sendMessage serializa e enfileira uma mensagem só para este cliente.
// Com o buffer cheio a mensagem é descartada.
func (c *Client) sendMessage(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("Erro ao serializar mensagem", err)
		return
	}

	c.sendLock.Lock()
	defer c.sendLock.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Warnf("Buffer do cliente %s cheio, mensagem descartada", c.id)
	}
}

// closeSend fecha o canal de saída uma única vez
func (c *Client) closeSend() {
	c.sendLock.Lock()
	defer c.sendLock.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
