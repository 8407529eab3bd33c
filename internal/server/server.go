package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"regata_go/internal/config"
	"regata_go/internal/control"
	"regata_go/internal/discovery"
	"regata_go/internal/display"
	"regata_go/internal/models"
	"regata_go/internal/redis"
	"regata_go/internal/replay"
	"regata_go/internal/simulation"
	"regata_go/internal/telemetry"
	"regata_go/internal/websocket"
	"regata_go/pkg/logger"
)

// Version é a versão anunciada em /info e no mDNS
const Version = "1.0.0"

// Server encapsula o servidor HTTP com todos os componentes
type Server struct {
	config           *config.Config
	httpServer       *http.Server
	router           *http.ServeMux
	ctx              context.Context
	cancel           context.CancelFunc
	engine           *replay.Engine
	store            *display.Store
	sync             *telemetry.Synchronizer
	controller       *control.Controller
	redisClient      *redis.Client
	redisService     *redis.Service
	simulator        *simulation.Simulator
	wsHub            *websocket.Hub
	discoveryService *discovery.Service
	unsubscribe      func()
	serverInfo       ServerInfo
}

// ServerInfo contém informações sobre o servidor
type ServerInfo struct {
	IP           string
	Port         int
	StartTime    time.Time
	Connections  int
	Version      string
	WebSocketURL string
	APIURL       string
}

// NewServer cria uma nova instância do servidor
func NewServer(cfg *config.Config) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	server := &Server{
		config: cfg,
		router: http.NewServeMux(),
		ctx:    ctx,
		cancel: cancel,
		serverInfo: ServerInfo{
			StartTime: time.Now(),
			Version:   Version,
			Port:      cfg.Server.Port,
		},
	}

	ip, err := discovery.LocalIP()
	if err != nil {
		logger.Warnf("Não foi possível determinar o IP local: %v", err)
		ip = "localhost"
	}
	server.serverInfo.IP = ip
	server.serverInfo.WebSocketURL = fmt.Sprintf("ws://%s:%d/ws", ip, cfg.Server.Port)
	server.serverInfo.APIURL = fmt.Sprintf("http://%s:%d/api", ip, cfg.Server.Port)

	if err := server.initComponents(); err != nil {
		cancel()
		return nil, err
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return server, nil
}

// initComponents cria o núcleo (replay, exibição, sincronizador) e as bordas
// (websocket, feed Redis, simulador, mDNS) e liga os eventos entre eles
func (s *Server) initComponents() error {
	s.engine = replay.NewEngine(replay.Options{
		Capacity:     s.config.Replay.MaxFrames,
		TickInterval: s.config.Replay.TickInterval,
		Loop:         s.config.Replay.Loop,
	})
	s.store = display.NewStore()
	s.sync = telemetry.NewSynchronizer(s.engine, s.store, telemetry.Options{
		Laps:   s.config.Course.Laps,
		RoomID: s.config.Feed.RoomID,
	})
	s.controller = control.New(s.sync, s.engine, s.store)
	s.wsHub = websocket.NewHub(s.controller)

	// quadros do histórico só chegam à exibição com o replay ativo
	s.engine.RegisterFrameHandler(func(frame models.HistoryFrame) {
		s.store.SetUnits(frame.Units, true)
	})
	s.engine.RegisterStateHandler(s.store.SetReplay)
	s.unsubscribe = s.store.Subscribe(s.forward)

	if s.config.Discovery.Enabled {
		s.discoveryService = discovery.NewService(s.config.Server.Port)
	}

	if s.feedEnabled() {
		s.redisClient = redis.NewClient(s.config.Redis)
		s.redisService = redis.NewService(s.redisClient, s.config.Feed)
	} else {
		logger.Info("Feeds desativados: o sincronizador recebe apenas injeções locais")
		s.store.SetFeed(models.FeedStatus{Enabled: false})
	}

	if s.config.Simulation.Enabled {
		s.simulator = simulation.NewSimulator(s.config.Simulation, s.simulationSink(), simulation.Options{
			Laps: s.config.Course.Laps,
		})
	}

	return nil
}

func (s *Server) feedEnabled() bool {
	return !s.config.Feed.Disabled && s.config.Redis.Enabled
}

// simulationSink escolhe o destino dos snapshots simulados; sem Redis, cai no local
func (s *Server) simulationSink() simulation.Sink {
	if s.config.Simulation.Target == "redis" {
		if s.redisService != nil {
			return simulation.NewRedisSink(s.redisService)
		}
		logger.Warn("Simulação configurada para Redis, mas o feed está desativado. Usando injeção local.")
	}
	return simulation.SinkFunc(s.sync.Inject)
}

// forward repassa cada mudança da exibição para os clientes websocket
func (s *Server) forward(ev display.Event) {
	switch ev.Kind {
	case display.EventUnits:
		s.wsHub.BroadcastUnits(ev.Units, ev.FromReplay)
	case display.EventCourse:
		s.wsHub.BroadcastCourse(ev.Course)
	case display.EventRoom:
		s.wsHub.BroadcastRoom(ev.Room)
		if s.discoveryService != nil {
			s.discoveryService.SetRaceName(ev.Room.RaceName())
		}
	case display.EventReplay:
		s.wsHub.BroadcastReplay(ev.Replay, s.engine.Buffer().Summary())
	case display.EventFeed:
		s.wsHub.BroadcastFeedStatus(ev.Feed)
	}
}

// feedHandlers liga o feed Redis ao sincronizador
func (s *Server) feedHandlers() redis.Handlers {
	return redis.Handlers{
		Rooms: func(ctx context.Context, rooms map[string]models.RoomRecord) {
			if err := s.sync.UpdateRooms(ctx, rooms); err != nil {
				logger.Error("Erro ao aplicar snapshot de salas", err)
			}
		},
		Devices: func(ctx context.Context, devices map[string]models.RawDeviceReport) {
			if err := s.sync.UpdateDevices(ctx, devices); err != nil {
				logger.Error("Erro ao aplicar snapshot de dispositivos", err)
			}
		},
		Status: s.store.SetFeed,
	}
}

// Start inicia o servidor e todos os serviços; bloqueia até o HTTP encerrar
func (s *Server) Start() error {
	go s.wsHub.Run()
	go s.sync.Run(s.ctx)

	if s.redisService != nil {
		s.redisService.Start(s.ctx, s.feedHandlers())
	}

	if s.simulator != nil {
		if err := s.simulator.Start(s.ctx); err != nil {
			logger.Error("Erro ao iniciar simulador", err)
		}
	}

	if s.discoveryService != nil {
		if err := s.discoveryService.Start(); err != nil {
			logger.Warnf("Erro ao iniciar serviço de descoberta: %v", err)
		}
	}

	s.logServerInfo()

	logger.Infof("Iniciando servidor HTTP na porta %d", s.config.Server.Port)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("erro ao iniciar servidor HTTP: %w", err)
	}

	return nil
}

// Shutdown encerra graciosamente o servidor e todos os serviços
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Iniciando shutdown do servidor")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Erro ao encerrar servidor HTTP", err)
	}

	if s.discoveryService != nil {
		s.discoveryService.Stop()
	}

	if s.simulator != nil {
		s.simulator.Stop()
	}

	if s.redisService != nil {
		s.redisService.Stop()
	}

	s.engine.Close()
	s.cancel()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.wsHub.Shutdown()

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			logger.Error("Erro ao fechar cliente Redis", err)
		}
	}

	logger.Info("Shutdown completo")
	return nil
}

// GetServerInfo retorna informações sobre o servidor
func (s *Server) GetServerInfo() ServerInfo {
	info := s.serverInfo
	info.Connections = s.wsHub.ClientCount()
	return info
}

// logServerInfo exibe informações do servidor no log
func (s *Server) logServerInfo() {
	logger.Info("===============================================")
	logger.Info("          Regata Telemetry Server              ")
	logger.Info("===============================================")
	logger.Infof("Versão: %s", s.serverInfo.Version)
	logger.Infof("Endereço IP: %s", s.serverInfo.IP)
	logger.Infof("Porta HTTP: %d", s.serverInfo.Port)
	logger.Infof("WebSocket URL: %s", s.serverInfo.WebSocketURL)
	logger.Infof("API URL: %s", s.serverInfo.APIURL)
	if s.feedEnabled() {
		logger.Infof("Feed Redis: %s:%d (prefixo %s)", s.config.Redis.Host, s.config.Redis.Port, s.config.Redis.Prefix)
	} else {
		logger.Info("Feed Redis: desativado")
	}
	if s.simulator != nil {
		logger.Infof("Simulação: sessão %s (%s)", s.simulator.Session(), s.config.Simulation.Target)
	}
	if s.discoveryService != nil {
		logger.Infof("mDNS: %s.%s.%s",
			s.discoveryService.GetInstanceName(),
			discovery.ServiceType,
			discovery.ServiceDomain)
	}
	logger.Info("===============================================")
	logger.Info("Servidor pronto para conexões!")
}
