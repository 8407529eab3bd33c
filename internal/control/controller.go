// Package control executa os comandos da camada de apresentação (websocket e
// REST) sobre o sincronizador, o motor de replay e o estado exibido.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"regata_go/internal/course"
	"regata_go/internal/display"
	"regata_go/internal/models"
	"regata_go/internal/replay"
	"regata_go/internal/telemetry"
	"regata_go/pkg/logger"
	"regata_go/pkg/utils"
)

// Comandos aceitos
const (
	CmdGetSnapshot   = "get_snapshot"
	CmdPlay          = "play"
	CmdPause         = "pause"
	CmdTogglePlay    = "toggle_play"
	CmdSeek          = "seek"
	CmdSetSpeed      = "set_speed"
	CmdSetLoop       = "set_loop"
	CmdEnableReplay  = "enable_replay"
	CmdDisableReplay = "disable_replay"
	CmdResetReplay   = "reset_replay"
	CmdSelectRoom    = "select_room"
	CmdSetLaps       = "set_laps"
	CmdInjectDevices = "inject_devices"
	CmdRemoveUnit    = "remove_unit"
)

var (
	// ErrUnknownCommand indica um comando não suportado
	ErrUnknownCommand = errors.New("comando desconhecido")
	// ErrInvalidParams indica parâmetros ausentes ou com tipo errado
	ErrInvalidParams = errors.New("parâmetros inválidos")
)

// Controller liga os comandos aos componentes do núcleo
type Controller struct {
	sync   *telemetry.Synchronizer
	engine *replay.Engine
	store  *display.Store
}

// New cria o controlador
func New(sync *telemetry.Synchronizer, engine *replay.Engine, store *display.Store) *Controller {
	return &Controller{sync: sync, engine: engine, store: store}
}

// Snapshot monta o estado completo para um cliente
func (c *Controller) Snapshot() models.Snapshot {
	snap := c.store.Snapshot()
	snap.Replay = c.engine.State()
	snap.History = c.engine.Buffer().Summary()
	snap.Laps = c.sync.Laps()
	return snap
}

// Execute aplica um comando e devolve o dado de confirmação
func (c *Controller) Execute(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
	switch command {
	case CmdGetSnapshot:
		return c.Snapshot(), nil

	case CmdPlay:
		c.engine.Play()
	case CmdPause:
		c.engine.Pause()
	case CmdTogglePlay:
		c.engine.TogglePlay()
	case CmdEnableReplay:
		c.engine.EnableReplay()
	case CmdDisableReplay:
		c.engine.DisableReplay()
		if err := c.sync.ShowLive(ctx); err != nil {
			return nil, err
		}
	case CmdResetReplay:
		c.engine.Reset()

	case CmdSeek:
		t, err := timeParam(params, "time")
		if err != nil {
			return nil, err
		}
		c.engine.Seek(t)

	case CmdSetSpeed:
		speed, err := floatParam(params, "speed")
		if err != nil {
			return nil, err
		}
		c.engine.SetSpeed(speed)

	case CmdSetLoop:
		loop, ok := params["loop"].(bool)
		if !ok {
			return nil, fmt.Errorf("%w: loop deve ser booleano", ErrInvalidParams)
		}
		c.engine.SetLoop(loop)

	case CmdSelectRoom:
		id, _ := params["roomId"].(string)
		if err := c.sync.SelectRoom(ctx, id); err != nil {
			return nil, err
		}
		return c.sync.ActiveRoom(), nil

	case CmdSetLaps:
		laps, err := floatParam(params, "laps")
		if err != nil {
			return nil, err
		}
		if laps < 1 || laps > course.MaxLaps {
			return nil, fmt.Errorf("%w: laps deve estar entre 1 e %d", ErrInvalidParams, course.MaxLaps)
		}
		if err := c.sync.SetLaps(ctx, int(laps)); err != nil {
			return nil, err
		}
		return map[string]int{"laps": c.sync.Laps()}, nil

	case CmdInjectDevices:
		devices, err := devicesParam(params)
		if err != nil {
			return nil, err
		}
		if err := c.sync.Inject(ctx, devices); err != nil {
			return nil, err
		}
		return map[string]int{"units": len(c.sync.LiveUnits())}, nil

	case CmdRemoveUnit:
		id, _ := params["id"].(string)
		if id == "" {
			return nil, fmt.Errorf("%w: id obrigatório", ErrInvalidParams)
		}
		if err := c.sync.RemoveUnit(ctx, id); err != nil {
			return nil, err
		}
		return map[string]string{"removed": id}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}

	logger.Debugf("Comando %s aplicado", command)
	return c.engine.State(), nil
}

// timeParam aceita milissegundos numéricos ou texto (ms, segundos, RFC3339)
func timeParam(params map[string]interface{}, key string) (int64, error) {
	switch v := params[key].(type) {
	case float64:
		if !utils.IsFinite(v) {
			return 0, fmt.Errorf("%w: %s não é finito", ErrInvalidParams, key)
		}
		return int64(math.Round(v)), nil
	case string:
		ts, err := utils.ParseTimestamp(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		return ts, nil
	}
	return 0, fmt.Errorf("%w: %s obrigatório", ErrInvalidParams, key)
}

func floatParam(params map[string]interface{}, key string) (float64, error) {
	switch v := params[key].(type) {
	case float64:
		if utils.IsFinite(v) {
			return v, nil
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil && utils.IsFinite(f) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %s deve ser numérico", ErrInvalidParams, key)
}

// devicesParam converte params["devices"] (objeto id → relatório) no mapa tipado.
// null é aceito e vira o sinal de limpeza.
func devicesParam(params map[string]interface{}) (map[string]models.RawDeviceReport, error) {
	raw, ok := params["devices"]
	if !ok {
		return nil, fmt.Errorf("%w: devices obrigatório", ErrInvalidParams)
	}
	if raw == nil {
		return nil, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	var devices map[string]models.RawDeviceReport
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("%w: devices: %v", ErrInvalidParams, err)
	}
	for id, d := range devices {
		d.ID = id
		devices[id] = d
	}
	return devices, nil
}

// Rooms lista os registros de sala conhecidos
func (c *Controller) Rooms() []models.RoomRecord {
	return c.sync.Rooms()
}

// FrameAt devolve o quadro do histórico resolvido para o instante t (ms)
func (c *Controller) FrameAt(t int64) (models.HistoryFrame, bool) {
	return c.engine.Buffer().FrameAt(t)
}
