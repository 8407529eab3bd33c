// Package simulation gera uma regata sintética (percurso e barcos em
// movimento) para operar o servidor sem feed externo.
package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"regata_go/internal/config"
	"regata_go/internal/geo"
	"regata_go/internal/models"
	"regata_go/pkg/logger"
	"regata_go/pkg/utils"
)

const (
	arrivalRadius = 25.0 // m
	minBoatSpeed  = 4.0  // m/s
	maxBoatSpeed  = 7.0
	acceleration  = 0.5 // m/s por tick
	maxWiggle     = 6.0 // graus
)

// Sink recebe cada snapshot de dispositivos produzido
type Sink interface {
	PublishDevices(ctx context.Context, devices map[string]models.RawDeviceReport) error
}

// RoomPublisher é implementado por destinos que também aceitam salas
type RoomPublisher interface {
	PublishRoom(ctx context.Context, room models.RoomRecord) error
}

// SinkFunc adapta uma função a Sink
type SinkFunc func(ctx context.Context, devices map[string]models.RawDeviceReport) error

// PublishDevices implementa Sink
func (f SinkFunc) PublishDevices(ctx context.Context, devices map[string]models.RawDeviceReport) error {
	return f(ctx, devices)
}

// Options ajusta o simulador; campos zero usam os padrões
type Options struct {
	Origin geo.LatLon
	Laps   int
	Seed   int64
	Clock  func() time.Time
}

type boat struct {
	id       string
	team     string
	pos      geo.LatLon
	speed    float64
	heading  float64
	target   int
	finished bool
}

// Stats resume a execução do simulador
type Stats struct {
	Session string `json:"session"`
	Ticks   int64  `json:"ticks"`
	Errors  int64  `json:"errors"`
	Running bool   `json:"running"`
}

// Simulator move os barcos pelo percurso a cada tick e publica o snapshot
type Simulator struct {
	config  config.SimulationConfig
	sink    Sink
	layout  Layout
	clock   func() time.Time
	rng     *rand.Rand
	session string
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mutex   sync.Mutex
	running bool
	boats   []*boat
	stats   Stats

	consecutiveErrors int
}

// NewSimulator cria o simulador. O layout é gerado uma vez, a partir da
// direção do vento e do comprimento de perna configurados.
func NewSimulator(cfg config.SimulationConfig, sink Sink, opts Options) *Simulator {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Origin == (geo.LatLon{}) {
		opts.Origin = geo.DefaultOrigin
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 100 * time.Millisecond
	}

	s := &Simulator{
		config:  cfg,
		sink:    sink,
		layout:  NewLayout(opts.Origin, cfg.WindDir, cfg.LegLength, opts.Laps),
		clock:   opts.Clock,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		session: uuid.New().String(),
	}
	s.stats.Session = s.session

	for i := 0; i < cfg.Boats; i++ {
		s.boats = append(s.boats, &boat{
			id:      fmt.Sprintf("sim-boat-%d", i+1),
			team:    fmt.Sprintf("SIM-%d", i+1),
			pos:     s.layout.StartPosition(i, cfg.Boats),
			heading: s.layout.WindDir,
		})
	}
	return s
}

// Session devolve o id desta sessão de simulação
func (s *Simulator) Session() string {
	return s.session
}

// RoomID devolve o id da sala publicada pelo simulador
func (s *Simulator) RoomID() string {
	return "sim-" + s.session[:8]
}

// Layout devolve o percurso simulado
func (s *Simulator) Layout() Layout {
	return s.layout
}

// Start publica a sala (se o destino aceitar) e inicia o loop de ticks
func (s *Simulator) Start(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	if rp, ok := s.sink.(RoomPublisher); ok {
		if err := rp.PublishRoom(ctx, s.room()); err != nil {
			return fmt.Errorf("erro ao publicar sala simulada: %w", err)
		}
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.stats.Running = true

	s.wg.Add(1)
	go s.run()

	logger.Infof("Simulador iniciado: sessão %s, %d barcos, vento %.0f°, perna %.0fm, %v",
		s.session, len(s.boats), s.layout.WindDir, s.config.LegLength, s.config.SampleRate)
	return nil
}

// Stop encerra o loop e aguarda a goroutine
func (s *Simulator) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.stats.Running = false
	s.mutex.Unlock()

	s.wg.Wait()
	logger.Info("Simulador parado")
}

// IsRunning verifica se o simulador está em execução
func (s *Simulator) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

// Stats devolve os contadores da execução
func (s *Simulator) Stats() Stats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stats
}

func (s *Simulator) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(s.ctx); err != nil && s.ctx.Err() == nil {
				s.handlePublishError(err)
			}
		}
	}
}

// Tick avança a simulação um passo e publica o snapshot resultante
func (s *Simulator) Tick(ctx context.Context) error {
	s.mutex.Lock()
	dt := s.config.SampleRate.Seconds()
	for _, b := range s.boats {
		s.advance(b, dt)
	}
	devices := s.snapshotLocked()
	s.stats.Ticks++
	s.mutex.Unlock()

	if err := s.sink.PublishDevices(ctx, devices); err != nil {
		return fmt.Errorf("erro ao publicar dispositivos simulados: %w", err)
	}

	s.mutex.Lock()
	if s.consecutiveErrors > 0 {
		logger.Infof("Publicação do simulador restaurada após %d falhas", s.consecutiveErrors)
		s.consecutiveErrors = 0
	}
	s.mutex.Unlock()
	return nil
}

func (s *Simulator) handlePublishError(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.consecutiveErrors++
	s.stats.Errors++
	// um aviso por falha inicial e depois a cada 50 ticks
	if s.consecutiveErrors == 1 || s.consecutiveErrors%50 == 0 {
		logger.Warnf("%v (falha %d)", err, s.consecutiveErrors)
	}
}

// advance acelera o barco até a velocidade alvo e o aproxima do próximo ponto da rota
func (s *Simulator) advance(b *boat, dt float64) {
	if b.finished {
		b.speed = 0
		return
	}

	target := s.layout.Route[b.target]
	if geo.Distance(b.pos, target) < arrivalRadius {
		b.target++
		if b.target >= len(s.layout.Route) {
			b.finished = true
			b.speed = 0
			logger.Debugf("Barco simulado %s cruzou a chegada", b.id)
			return
		}
		target = s.layout.Route[b.target]
	}

	targetSpeed := minBoatSpeed + s.rng.Float64()*(maxBoatSpeed-minBoatSpeed)
	if b.speed < targetSpeed {
		b.speed += acceleration
	}

	wiggle := (s.rng.Float64() - 0.5) * maxWiggle
	b.heading = geo.NormalizeHeading(geo.Bearing(b.pos, target) + wiggle)
	b.pos = geo.Destination(b.pos, b.heading, b.speed*dt)
}

func (s *Simulator) snapshotLocked() map[string]models.RawDeviceReport {
	now := utils.UnixMillis(s.clock())
	devices := make(map[string]models.RawDeviceReport, len(s.boats)+len(s.layout.Marks))

	for _, m := range s.layout.Marks {
		devices[m.ID] = models.RawDeviceReport{
			ID:        m.ID,
			Lat:       utils.Float64Ptr(m.Pos.Lat),
			Lon:       utils.Float64Ptr(m.Pos.Lon),
			Role:      m.Role,
			Timestamp: utils.Int64Ptr(now),
		}
	}

	for _, b := range s.boats {
		devices[b.id] = models.RawDeviceReport{
			ID:     b.id,
			TeamID: b.team,
			Role:   models.RoleRacingBoat,
			Location: &models.DeviceLocation{
				Lat:       utils.Float64Ptr(b.pos.Lat),
				Lon:       utils.Float64Ptr(b.pos.Lon),
				Speed:     utils.Float64Ptr(b.speed),
				Heading:   utils.Float64Ptr(b.heading),
				Timestamp: utils.Int64Ptr(now),
			},
		}
	}
	return devices
}

// room descreve a sala da sessão com a lista estrita dos dispositivos simulados
func (s *Simulator) room() models.RoomRecord {
	ids := make(models.AssignedDevices, 0, len(s.boats)+len(s.layout.Marks))
	for _, m := range s.layout.Marks {
		ids = append(ids, m.ID)
	}
	for _, b := range s.boats {
		ids = append(ids, b.id)
	}
	return models.RoomRecord{
		ID:        s.RoomID(),
		Name:      fmt.Sprintf("Simulação %s", s.session[:8]),
		CreatedAt: utils.UnixMillis(s.clock()),
		Devices:   ids,
	}
}
