package server

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"regata_go/internal/api"
	"regata_go/internal/discovery"
	"regata_go/internal/websocket"
	"regata_go/pkg/logger"
)

// setupRoutes configura todas as rotas do servidor
func (s *Server) setupRoutes() {
	wsHandler := websocket.NewHandler(s.wsHub)

	apiRouter := api.NewRouter(s.controller, "/api")
	apiRouter.SetOfflineAfter(s.config.Units.OfflineAfter)
	apiRouter.Setup()

	s.router.HandleFunc("/health", s.healthHandler)
	s.router.HandleFunc("/info", s.infoHandler)
	s.router.HandleFunc("/api/discover", s.discoverHandler)

	s.router.Handle("/ws", wsHandler)
	s.router.HandleFunc("/ws/health", wsHandler.GetHealthHandler())

	s.router.Handle("/api/", apiRouter.Handler())

	if dir := s.config.Server.StaticDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			s.router.Handle("/", http.FileServer(http.Dir(dir)))
			logger.Infof("Servindo arquivos estáticos de %s", dir)
		}
	}
}

// healthHandler responde com o status de saúde do servidor
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	feed := s.store.Feed()

	feedStatus := "disabled"
	if feed.Enabled {
		switch {
		case !feed.Connected:
			feedStatus = "offline"
		case feed.Stale:
			feedStatus = "stale"
		default:
			feedStatus = "ok"
		}
	}

	simulationStatus := "disabled"
	if s.simulator != nil {
		simulationStatus = "offline"
		if s.simulator.IsRunning() {
			simulationStatus = "ok"
		}
	}

	discoveryStatus := "disabled"
	if s.discoveryService != nil {
		discoveryStatus = "offline"
		if s.discoveryService.IsRunning() {
			discoveryStatus = "ok"
		}
	}

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"services": map[string]string{
			"feed":       feedStatus,
			"simulation": simulationStatus,
			"websocket":  "ok",
			"discovery":  discoveryStatus,
		},
	}

	// o núcleo segue atendendo com o feed fora; o estado é apenas degradado
	if feedStatus == "offline" || feedStatus == "stale" {
		response["status"] = "degraded"
	}

	writeJSON(w, response)
}

// infoHandler retorna informações básicas sobre o servidor
func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	info := s.GetServerInfo()
	uptime := time.Since(info.StartTime).Round(time.Second)

	response := map[string]interface{}{
		"name":        "Regata Telemetry",
		"version":     info.Version,
		"ip":          info.IP,
		"port":        info.Port,
		"websocket":   info.WebSocketURL,
		"api":         info.APIURL,
		"startTime":   info.StartTime,
		"uptime":      uptime.String(),
		"connections": info.Connections,
		"raceName":    s.store.Room().RaceName(),
		"laps":        s.sync.Laps(),
		"history":     s.engine.Buffer().Summary(),
	}

	if s.simulator != nil {
		response["simulation"] = s.simulator.Stats()
	}

	writeJSON(w, response)
}

// discoverHandler fornece informações para descoberta manual
func (s *Server) discoverHandler(w http.ResponseWriter, r *http.Request) {
	info := s.GetServerInfo()

	response := map[string]interface{}{
		"name":        "Regata Telemetry",
		"ip":          info.IP,
		"port":        info.Port,
		"wsUrl":       info.WebSocketURL,
		"apiUrl":      info.APIURL,
		"version":     info.Version,
		"wsEndpoint":  "/ws",
		"apiEndpoint": "/api",
		"serviceType": discovery.ServiceType,
	}

	writeJSON(w, response)
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorf("Erro ao codificar resposta JSON: %v", err)
	}
}
