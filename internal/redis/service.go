// Package redis implementa o feed externo de salas e dispositivos sobre o
// Redis: hashes com o estado atual e pub/sub para notificar mudanças.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"regata_go/internal/config"
	"regata_go/internal/models"
	"regata_go/pkg/logger"
	"regata_go/pkg/utils"
)

// RoomsHandler recebe o snapshot completo de salas
type RoomsHandler func(ctx context.Context, rooms map[string]models.RoomRecord)

// DevicesHandler recebe o snapshot completo de dispositivos; nil é o sinal de limpeza
type DevicesHandler func(ctx context.Context, devices map[string]models.RawDeviceReport)

// StatusHandler recebe mudanças na saúde do feed
type StatusHandler func(status models.FeedStatus)

// Handlers agrupa os consumidores do feed
type Handlers struct {
	Rooms   RoomsHandler
	Devices DevicesHandler
	Status  StatusHandler
}

// retryInterval é o intervalo entre tentativas de assinatura
const retryInterval = 3 * time.Second

// ErrMalformedSnapshot indica um hash com entradas, nenhuma delas válida.
// O snapshot não é entregue e os consumidores mantêm o último estado bom.
var ErrMalformedSnapshot = errors.New("nenhuma entrada válida no snapshot")

// Service assina o feed e entrega snapshots aos handlers
type Service struct {
	client   *Client
	feed     config.FeedConfig
	handlers Handlers
	clock    func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
	mutex   sync.RWMutex
	status  models.FeedStatus
}

// NewService cria o serviço de feed sobre um cliente já configurado
func NewService(client *Client, feed config.FeedConfig) *Service {
	return &Service{
		client: client,
		feed:   feed,
		clock:  time.Now,
		status: models.FeedStatus{Enabled: true},
	}
}

// Start assina os canais de mudança, entrega os snapshots iniciais e inicia o
// monitor de conexão. Se o Redis não responder, o feed começa marcado como
// desatualizado e a assinatura é refeita em segundo plano.
func (s *Service) Start(ctx context.Context, handlers Handlers) {
	s.mutex.Lock()
	if s.running {
		s.mutex.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.handlers = handlers
	s.running = true
	s.mutex.Unlock()

	logger.Infof("Iniciando feed Redis (prefixo %s)", s.client.GetPrefix())

	pubsub, err := s.subscribe()
	if err != nil {
		logger.Warnf("Feed Redis indisponível: %v. Tentando novamente em segundo plano.", err)
		s.setConnected(false)
	}

	s.wg.Add(2)
	go s.listen(pubsub)
	go s.monitor()
}

// subscribe assina os dois canais e entrega os snapshots atuais
func (s *Service) subscribe() (*redis.PubSub, error) {
	pubsub, err := s.client.Subscribe(s.ctx, s.client.RoomsChannel(), s.client.DevicesChannel())
	if err != nil {
		return nil, err
	}
	s.setConnected(true)
	s.syncRooms()
	s.syncDevices()
	return pubsub, nil
}

// Stop cancela as assinaturas e espera as goroutines terminarem
func (s *Service) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mutex.Unlock()

	s.wg.Wait()
	logger.Info("Feed Redis parado")
}

// Status devolve a saúde atual do feed
func (s *Service) Status() models.FeedStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.status
}

// listen recarrega o snapshot correspondente a cada notificação
func (s *Service) listen(pubsub *redis.PubSub) {
	defer s.wg.Done()

	retry := time.NewTicker(retryInterval)
	defer retry.Stop()

	for pubsub == nil {
		select {
		case <-s.ctx.Done():
			return
		case <-retry.C:
			var err error
			if pubsub, err = s.subscribe(); err != nil {
				logger.Debugf("Assinatura do feed falhou: %v", err)
			}
		}
	}
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			switch msg.Channel {
			case s.client.RoomsChannel():
				s.syncRooms()
			case s.client.DevicesChannel():
				s.syncDevices()
			}
		}
	}
}

// monitor verifica a conexão periodicamente. Ao reconectar, os snapshots são
// recarregados porque notificações podem ter sido perdidas.
func (s *Service) monitor() {
	defer s.wg.Done()

	interval := s.feed.StaleAfter / 3
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.checkHealth()
		}
	}
}

// checkHealth testa a conexão e reavalia se o feed está sem atualização recente
func (s *Service) checkHealth() {
	wasConnected := s.Status().Connected
	if err := s.client.Ping(s.ctx); err != nil {
		if wasConnected {
			logger.Warnf("Feed Redis sem resposta: %v", err)
		}
		s.setConnected(false)
		return
	}
	if !wasConnected {
		logger.Info("Feed Redis reconectado, recarregando snapshots")
		s.setConnected(true)
		s.syncRooms()
		s.syncDevices()
		return
	}
	s.setConnected(true)
}

func (s *Service) syncRooms() {
	rooms, err := s.LoadRooms(s.ctx)
	if errors.Is(err, ErrMalformedSnapshot) {
		logger.Warnf("Snapshot de salas descartado: %v", err)
		return
	}
	if err != nil {
		logger.Error("Erro ao carregar salas", err)
		s.setConnected(false)
		return
	}

	s.mutex.Lock()
	s.status.LastRoomUpdate = utils.UnixMillis(s.clock())
	s.mutex.Unlock()

	if s.handlers.Rooms != nil {
		s.handlers.Rooms(s.ctx, rooms)
	}
}

func (s *Service) syncDevices() {
	devices, err := s.LoadDevices(s.ctx)
	if errors.Is(err, ErrMalformedSnapshot) {
		logger.Warnf("Snapshot de dispositivos descartado: %v", err)
		return
	}
	if err != nil {
		logger.Error("Erro ao carregar dispositivos", err)
		s.setConnected(false)
		return
	}

	s.mutex.Lock()
	s.status.LastDeviceUpdate = utils.UnixMillis(s.clock())
	s.mutex.Unlock()
	s.setConnected(true)

	if s.handlers.Devices != nil {
		s.handlers.Devices(s.ctx, devices)
	}
}

func (s *Service) setConnected(connected bool) {
	s.mutex.Lock()
	stale := !connected || s.staleLocked()
	changed := s.status.Connected != connected || s.status.Stale != stale
	s.status.Connected = connected
	s.status.Stale = stale
	status := s.status
	s.mutex.Unlock()

	if changed && s.handlers.Status != nil {
		s.handlers.Status(status)
	}
}

// staleLocked indica que o último snapshot de dispositivos é mais velho que StaleAfter
func (s *Service) staleLocked() bool {
	if s.feed.StaleAfter <= 0 || s.status.LastDeviceUpdate == 0 {
		return false
	}
	age := utils.UnixMillis(s.clock()) - s.status.LastDeviceUpdate
	return age > s.feed.StaleAfter.Milliseconds()
}

// LoadRooms lê o hash de salas. Entradas malformadas são ignoradas; se
// nenhuma for válida, devolve ErrMalformedSnapshot.
func (s *Service) LoadRooms(ctx context.Context) (map[string]models.RoomRecord, error) {
	raw, err := s.client.HGetAll(ctx, s.client.RoomsKey())
	if err != nil {
		return nil, err
	}

	rooms := make(map[string]models.RoomRecord, len(raw))
	for id, value := range raw {
		var room models.RoomRecord
		if err := json.Unmarshal([]byte(value), &room); err != nil {
			logger.Warnf("Sala %s ignorada, JSON inválido: %v", id, err)
			continue
		}
		room.ID = id
		rooms[id] = room
	}
	if len(raw) > 0 && len(rooms) == 0 {
		return nil, fmt.Errorf("salas: %w", ErrMalformedSnapshot)
	}
	return rooms, nil
}

// LoadDevices lê o hash de dispositivos. Hash vazio ou ausente devolve nil,
// que os consumidores tratam como limpeza. Se há entradas mas nenhuma é
// válida, devolve ErrMalformedSnapshot em vez de um mapa vazio.
func (s *Service) LoadDevices(ctx context.Context) (map[string]models.RawDeviceReport, error) {
	raw, err := s.client.HGetAll(ctx, s.client.DevicesKey())
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	devices := make(map[string]models.RawDeviceReport, len(raw))
	for id, value := range raw {
		var device models.RawDeviceReport
		if err := json.Unmarshal([]byte(value), &device); err != nil {
			logger.Warnf("Dispositivo %s ignorado, JSON inválido: %v", id, err)
			continue
		}
		device.ID = id
		devices[id] = device
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("dispositivos: %w", ErrMalformedSnapshot)
	}
	return devices, nil
}

// PutDevice grava o relatório de um dispositivo e notifica
func (s *Service) PutDevice(ctx context.Context, id string, device models.RawDeviceReport) error {
	data, err := json.Marshal(device)
	if err != nil {
		return fmt.Errorf("erro ao serializar dispositivo %s: %w", id, err)
	}
	return s.client.HSetAndNotify(ctx, s.client.DevicesKey(), id, string(data), s.client.DevicesChannel())
}

// PutDevices grava vários relatórios com uma única notificação
func (s *Service) PutDevices(ctx context.Context, devices map[string]models.RawDeviceReport) error {
	if len(devices) == 0 {
		return nil
	}

	pipe := s.client.GetClient().Pipeline()
	for id, device := range devices {
		data, err := json.Marshal(device)
		if err != nil {
			return fmt.Errorf("erro ao serializar dispositivo %s: %w", id, err)
		}
		pipe.HSet(ctx, s.client.DevicesKey(), id, string(data))
	}
	pipe.Publish(ctx, s.client.DevicesChannel(), "*")

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("erro ao gravar %d dispositivos: %w", len(devices), err)
	}
	return nil
}

// DeleteDevice remove um dispositivo e notifica
func (s *Service) DeleteDevice(ctx context.Context, id string) error {
	return s.client.HDelAndNotify(ctx, s.client.DevicesKey(), id, s.client.DevicesChannel())
}

// ClearDevices apaga todos os dispositivos (os consumidores recebem a limpeza)
func (s *Service) ClearDevices(ctx context.Context) error {
	return s.client.DelAndNotify(ctx, s.client.DevicesKey(), s.client.DevicesChannel())
}

// PutRoom grava uma sala e notifica
func (s *Service) PutRoom(ctx context.Context, room models.RoomRecord) error {
	if room.ID == "" {
		return fmt.Errorf("sala sem id")
	}
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("erro ao serializar sala %s: %w", room.ID, err)
	}
	return s.client.HSetAndNotify(ctx, s.client.RoomsKey(), room.ID, string(data), s.client.RoomsChannel())
}

// DeleteRoom remove uma sala e notifica
func (s *Service) DeleteRoom(ctx context.Context, id string) error {
	return s.client.HDelAndNotify(ctx, s.client.RoomsKey(), id, s.client.RoomsChannel())
}
