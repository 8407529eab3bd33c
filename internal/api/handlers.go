package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"regata_go/internal/control"
	"regata_go/internal/models"
	"regata_go/pkg/logger"
	"regata_go/pkg/utils"
)

const (
	// maxBodySize limita o corpo das requisições POST
	maxBodySize = 4 << 20
	// defaultOfflineAfter é o silêncio após o qual uma unidade conta como offline
	defaultOfflineAfter = 10 * time.Second
)

// Core é o conjunto de operações do núcleo exposto pela API
type Core interface {
	Snapshot() models.Snapshot
	Execute(ctx context.Context, command string, params map[string]interface{}) (interface{}, error)
	Rooms() []models.RoomRecord
	FrameAt(t int64) (models.HistoryFrame, bool)
}

// Handler contém os handlers HTTP para a API
type Handler struct {
	core         Core
	offlineAfter time.Duration
	clock        func() time.Time
}

// NewHandler cria um novo handler de API
func NewHandler(core Core) *Handler {
	return &Handler{core: core, offlineAfter: defaultOfflineAfter, clock: time.Now}
}

// GetStatus retorna um resumo do estado do núcleo
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}

	snap := h.core.Snapshot()

	status := "ok"
	if snap.Feed.Enabled && (!snap.Feed.Connected || snap.Feed.Stale) {
		status = "degraded"
	}

	now := h.clock()
	offline := 0
	for _, u := range snap.Units {
		if u.Offline(now, h.offlineAfter) {
			offline++
		}
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": utils.UnixMillis(now),
		"units":     len(snap.Units),
		"offline":   offline,
		"replay":    snap.Replay,
		"history":   snap.History,
		"feed":      snap.Feed,
		"room":      snap.Room,
		"laps":      snap.Laps,
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// GetUnits retorna o mapa de unidades exibido
func (h *Handler) GetUnits(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}
	units := h.core.Snapshot().Units
	if units == nil {
		units = models.UnitMap{}
	}
	h.respondWithJSON(w, http.StatusOK, units)
}

// GetCourse retorna o percurso atual
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}
	course := h.core.Snapshot().Course
	if course == nil {
		h.respondWithError(w, http.StatusNotFound, "Nenhum percurso disponível")
		return
	}
	h.respondWithJSON(w, http.StatusOK, course)
}

// GetRoom retorna o contexto de sala ativo
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}
	room := h.core.Snapshot().Room
	response := map[string]interface{}{
		"room":     room,
		"raceName": room.RaceName(),
	}
	h.respondWithJSON(w, http.StatusOK, response)
}

// Room trata GET (contexto ativo) e POST (seleção explícita) em /room
func (h *Handler) Room(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		h.execute(w, r, control.CmdSelectRoom, nil)
		return
	}
	h.GetRoom(w, r)
}

// GetRooms lista as salas conhecidas
func (h *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}
	rooms := h.core.Rooms()
	if rooms == nil {
		rooms = []models.RoomRecord{}
	}
	h.respondWithJSON(w, http.StatusOK, rooms)
}

// GetReplay retorna o cursor de reprodução
func (h *Handler) GetReplay(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}
	h.respondWithJSON(w, http.StatusOK, h.core.Snapshot().Replay)
}

// GetHistory retorna o resumo do buffer de histórico
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}
	h.respondWithJSON(w, http.StatusOK, h.core.Snapshot().History)
}

// GetHistoryFrame resolve o quadro para ?t= (ms, segundos ou RFC3339)
func (h *Handler) GetHistoryFrame(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}

	raw := r.URL.Query().Get("t")
	if raw == "" {
		h.respondWithError(w, http.StatusBadRequest, "Parâmetro t obrigatório")
		return
	}
	t, err := utils.ParseTimestamp(raw)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	frame, ok := h.core.FrameAt(t)
	if !ok {
		h.respondWithError(w, http.StatusNotFound, "Nenhum quadro no instante solicitado")
		return
	}
	h.respondWithJSON(w, http.StatusOK, frame)
}

// Replay trata POST /replay/{ação}
func (h *Handler) Replay(w http.ResponseWriter, r *http.Request) {
	action := lastSegment(r.URL.Path)
	command, ok := replayActions[action]
	if !ok {
		h.respondWithError(w, http.StatusNotFound, fmt.Sprintf("Ação de replay desconhecida: %s", action))
		return
	}
	h.execute(w, r, command, nil)
}

var replayActions = map[string]string{
	"play":    control.CmdPlay,
	"pause":   control.CmdPause,
	"toggle":  control.CmdTogglePlay,
	"seek":    control.CmdSeek,
	"speed":   control.CmdSetSpeed,
	"loop":    control.CmdSetLoop,
	"enable":  control.CmdEnableReplay,
	"disable": control.CmdDisableReplay,
	"reset":   control.CmdResetReplay,
}

// PostDevices injeta um snapshot de dispositivos; o corpo é o mapa id → relatório (null limpa)
func (h *Handler) PostDevices(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, control.CmdInjectDevices, func(body interface{}) map[string]interface{} {
		return map[string]interface{}{"devices": body}
	})
}

// PostLaps altera o número de voltas
func (h *Handler) PostLaps(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, control.CmdSetLaps, nil)
}

// DeleteUnit remove uma unidade: DELETE /units/{id}
func (h *Handler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodDelete) {
		return
	}
	id := lastSegment(r.URL.Path)
	if id == "" || id == "units" {
		h.respondWithError(w, http.StatusBadRequest, "Id da unidade não fornecido")
		return
	}

	result, err := h.core.Execute(r.Context(), control.CmdRemoveUnit, map[string]interface{}{"id": id})
	if err != nil {
		h.respondWithCommandError(w, control.CmdRemoveUnit, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, result)
}

// Units trata GET /units e DELETE /units/{id}
func (h *Handler) Units(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		h.DeleteUnit(w, r)
		return
	}
	h.GetUnits(w, r)
}

// execute decodifica o corpo JSON e aplica o comando. wrap converte o corpo em
// parâmetros quando ele não é o próprio objeto de parâmetros.
func (h *Handler) execute(w http.ResponseWriter, r *http.Request, command string, wrap func(interface{}) map[string]interface{}) {
	if !h.allow(w, r, http.MethodPost) {
		return
	}

	body, err := decodeBody(r)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var params map[string]interface{}
	if wrap != nil {
		params = wrap(body)
	} else if m, ok := body.(map[string]interface{}); ok {
		params = m
	} else if body != nil {
		h.respondWithError(w, http.StatusBadRequest, "Corpo deve ser um objeto JSON")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := h.core.Execute(ctx, command, params)
	if err != nil {
		h.respondWithCommandError(w, command, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, result)
}

// decodeBody lê o corpo como JSON genérico; corpo vazio é nil
func decodeBody(r *http.Request) (interface{}, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("erro ao ler corpo: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var body interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("JSON inválido: %w", err)
	}
	return body, nil
}

func (h *Handler) allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return false
	}
	return true
}

func lastSegment(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// respondWithCommandError traduz o erro de um comando em status HTTP
func (h *Handler) respondWithCommandError(w http.ResponseWriter, command string, err error) {
	switch {
	case errors.Is(err, control.ErrInvalidParams):
		h.respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, control.ErrUnknownCommand):
		h.respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		h.respondWithError(w, http.StatusServiceUnavailable, "Núcleo indisponível")
	default:
		logger.Error(fmt.Sprintf("Erro ao executar comando %s", command), err)
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

// respondWithError responde com erro em formato JSON
func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON responde com JSON
func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorf("Erro ao codificar resposta JSON: %v", err)
	}
}
