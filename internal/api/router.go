package api

import (
	"net/http"
	"strings"
	"time"

	"regata_go/pkg/logger"
)

// Router gerencia as rotas da API
type Router struct {
	handler     *Handler
	mux         *http.ServeMux
	basePath    string
	middlewares []Middleware
}

// NewRouter cria um router para a API montado em basePath (ex.: "/api")
func NewRouter(core Core, basePath string) *Router {
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimSuffix(basePath, "/")

	return &Router{
		handler:  NewHandler(core),
		mux:      http.NewServeMux(),
		basePath: basePath,
		middlewares: []Middleware{
			RequestIDMiddleware,
			LoggingMiddleware,
			RecoveryMiddleware,
			CorsMiddleware,
		},
	}
}

// SetOfflineAfter define o silêncio após o qual /status conta uma unidade como offline
func (r *Router) SetOfflineAfter(d time.Duration) {
	if d > 0 {
		r.handler.offlineAfter = d
	}
}

// Setup registra todas as rotas
func (r *Router) Setup() {
	r.mux.HandleFunc(r.path("/status"), r.handler.GetStatus)
	r.mux.HandleFunc(r.path("/units"), r.handler.Units)
	r.mux.HandleFunc(r.path("/units/"), r.handler.DeleteUnit)
	r.mux.HandleFunc(r.path("/course"), r.handler.GetCourse)
	r.mux.HandleFunc(r.path("/room"), r.handler.Room)
	r.mux.HandleFunc(r.path("/rooms"), r.handler.GetRooms)
	r.mux.HandleFunc(r.path("/laps"), r.handler.PostLaps)
	r.mux.HandleFunc(r.path("/devices"), r.handler.PostDevices)
	r.mux.HandleFunc(r.path("/replay"), r.handler.GetReplay)
	r.mux.HandleFunc(r.path("/replay/"), r.handler.Replay)
	r.mux.HandleFunc(r.path("/history"), r.handler.GetHistory)
	r.mux.HandleFunc(r.path("/history/frame"), r.handler.GetHistoryFrame)

	logger.Infof("API configurada com base path: %s", r.basePath)
}

// Handler retorna o handler HTTP final com todos os middlewares aplicados
func (r *Router) Handler() http.Handler {
	if len(r.middlewares) == 0 {
		return r.mux
	}
	return Chain(r.middlewares...)(r.mux)
}

// AddMiddleware adiciona um novo middleware
func (r *Router) AddMiddleware(middleware Middleware) {
	r.middlewares = append(r.middlewares, middleware)
}

func (r *Router) path(route string) string {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return r.basePath + route
}

// ServeHTTP implementa a interface http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Handler().ServeHTTP(w, req)
}
