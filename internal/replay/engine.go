package replay

import (
	"sync"
	"time"

	"regata_go/internal/models"
	"regata_go/pkg/logger"
)

// DefaultTickInterval é o passo do driver de reprodução (~60 Hz)
const DefaultTickInterval = 16 * time.Millisecond

// FrameHandler recebe os quadros resolvidos pela reprodução
type FrameHandler func(frame models.HistoryFrame)

// StateHandler recebe o cursor após cada mudança
type StateHandler func(state models.ReplayState)

// Options configura o Engine
type Options struct {
	Capacity     int
	TickInterval time.Duration
	Loop         bool
	// Clock substitui time.Now (testes)
	Clock func() time.Time
}

// Engine controla o cursor de reprodução sobre o Buffer de histórico.
// Enquanto Playing, uma goroutine avança o cursor a cada tick.
type Engine struct {
	buffer *Buffer
	tick   time.Duration
	clock  func() time.Time

	mutex         sync.Mutex
	state         models.ReplayState
	carry         float64
	lastPublished int64
	published     bool
	stop          chan struct{}

	handlersLock  sync.RWMutex
	frameHandlers []FrameHandler
	stateHandlers []StateHandler
}

// NewEngine cria o motor de reprodução
func NewEngine(opts Options) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Engine{
		buffer: NewBuffer(opts.Capacity),
		tick:   opts.TickInterval,
		clock:  opts.Clock,
		state:  models.ReplayState{Speed: 1, Loop: opts.Loop},
	}
}

// Buffer devolve o histórico subjacente
func (e *Engine) Buffer() *Buffer {
	return e.buffer
}

// RegisterFrameHandler registra um consumidor de quadros de reprodução
func (e *Engine) RegisterFrameHandler(h FrameHandler) {
	e.handlersLock.Lock()
	defer e.handlersLock.Unlock()
	e.frameHandlers = append(e.frameHandlers, h)
}

// RegisterStateHandler registra um consumidor de mudanças do cursor
func (e *Engine) RegisterStateHandler(h StateHandler) {
	e.handlersLock.Lock()
	defer e.handlersLock.Unlock()
	e.stateHandlers = append(e.stateHandlers, h)
}

// State devolve uma cópia do cursor
func (e *Engine) State() models.ReplayState {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.state
}

// Active indica se o modo replay controla a exibição
func (e *Engine) Active() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.state.Active
}

// Record grava um quadro ao vivo. O primeiro quadro define o início da regata
// e sincroniza o cursor. Pausado em modo replay, o quadro do cursor é
// republicado se mudou.
func (e *Engine) Record(ts int64, units models.UnitMap) bool {
	e.mutex.Lock()
	first := e.buffer.Len() == 0
	ok := e.buffer.Append(ts, units)
	var state models.ReplayState
	if ok && first {
		e.state.RaceStartTime = ts
		e.state.CurrentTime = ts
		state = e.state
	}
	var frame models.HistoryFrame
	var publish bool
	if ok && !e.state.Playing && e.state.Active {
		frame, publish = e.resolveLocked()
	}
	e.mutex.Unlock()

	if ok && first {
		e.notifyState(state)
	}
	if publish {
		e.notifyFrame(frame)
	}
	return ok
}

// WhenLive executa fn sob o lock do cursor se o modo replay estiver desligado.
// EnableReplay espera fn terminar, então um quadro de replay nunca é
// sobrescrito por uma publicação ao vivo iniciada antes dele.
func (e *Engine) WhenLive(fn func()) bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.state.Active {
		return false
	}
	fn()
	return true
}

// Play inicia a reprodução
func (e *Engine) Play() {
	e.mutex.Lock()
	if e.state.Playing {
		e.mutex.Unlock()
		return
	}
	e.startLocked()
	state := e.state
	e.mutex.Unlock()

	logger.Debugf("Reprodução iniciada em %d (%.2fx)", state.CurrentTime, state.Speed)
	e.notifyState(state)
}

// Pause interrompe a reprodução
func (e *Engine) Pause() {
	e.mutex.Lock()
	if !e.state.Playing {
		e.mutex.Unlock()
		return
	}
	e.stopLocked()
	state := e.state
	e.mutex.Unlock()

	e.notifyState(state)
}

// TogglePlay alterna entre tocar e pausar
func (e *Engine) TogglePlay() {
	if e.State().Playing {
		e.Pause()
		return
	}
	e.Play()
}

// SetSpeed define o multiplicador de velocidade (negativo é tratado como 0)
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	e.mutex.Lock()
	e.state.Speed = speed
	state := e.state
	e.mutex.Unlock()

	e.notifyState(state)
}

// SetLoop liga ou desliga a reprodução em laço
func (e *Engine) SetLoop(loop bool) {
	e.mutex.Lock()
	e.state.Loop = loop
	state := e.state
	e.mutex.Unlock()

	e.notifyState(state)
}

// Seek move o cursor. Pausado e em modo replay, o quadro correspondente é
// publicado imediatamente; tocando, o próximo tick resolve o quadro.
func (e *Engine) Seek(t int64) {
	e.mutex.Lock()
	e.state.CurrentTime = t
	e.carry = 0
	state := e.state
	var frame models.HistoryFrame
	var publish bool
	if !state.Playing && state.Active {
		frame, publish = e.resolveLocked()
	}
	e.mutex.Unlock()

	e.notifyState(state)
	if publish {
		e.notifyFrame(frame)
	}
}

// EnableReplay coloca a exibição sob controle da reprodução (pausada)
func (e *Engine) EnableReplay() {
	e.setActive(true)
}

// DisableReplay devolve a exibição ao sincronizador; o histórico é mantido
func (e *Engine) DisableReplay() {
	e.setActive(false)
}

func (e *Engine) setActive(active bool) {
	e.mutex.Lock()
	if e.state.Playing {
		e.stopLocked()
	}
	e.state.Active = active
	e.published = false
	var frame models.HistoryFrame
	var publish bool
	if active {
		frame, publish = e.resolveLocked()
	}
	state := e.state
	e.mutex.Unlock()

	if active {
		logger.Info("Modo replay ativado")
	} else {
		logger.Info("Modo replay desativado, voltando ao ao vivo")
	}
	e.notifyState(state)
	if publish {
		e.notifyFrame(frame)
	}
}

// Reset descarta o histórico e volta o cursor para o início da regata
func (e *Engine) Reset() {
	e.mutex.Lock()
	if e.state.Playing {
		e.stopLocked()
	}
	e.buffer.Reset()
	e.state.CurrentTime = e.state.RaceStartTime
	e.carry = 0
	e.published = false
	state := e.state
	e.mutex.Unlock()

	logger.Info("Histórico de replay descartado")
	e.notifyState(state)
}

// Close para o driver de reprodução, se houver
func (e *Engine) Close() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.state.Playing {
		e.stopLocked()
	}
}

func (e *Engine) startLocked() {
	e.state.Playing = true
	e.carry = 0
	e.stop = make(chan struct{})
	go e.drive(e.stop)
}

func (e *Engine) stopLocked() {
	e.state.Playing = false
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

// drive avança o cursor até stop ser fechado
func (e *Engine) drive(stop <-chan struct{}) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	last := e.clock()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := e.clock()
			e.step(stop, now.Sub(last))
			last = now
		}
	}
}

// step aplica um avanço de delta * speed ao cursor e publica o quadro resolvido
func (e *Engine) step(stop <-chan struct{}, delta time.Duration) {
	e.mutex.Lock()
	select {
	case <-stop:
		// Pause chegou entre o tick e o lock
		e.mutex.Unlock()
		return
	default:
	}

	advance := float64(delta)/float64(time.Millisecond)*e.state.Speed + e.carry
	whole := int64(advance)
	e.carry = advance - float64(whole)
	e.state.CurrentTime += whole

	frame, publish := e.resolveLocked()
	if !publish && e.state.Loop {
		if first, ok := e.buffer.First(); ok {
			if _, last, _ := e.buffer.Bounds(); e.state.CurrentTime > last {
				e.state.CurrentTime = first.Timestamp
				e.carry = 0
				frame, publish = e.resolveLocked()
			}
		}
	}
	state := e.state
	e.mutex.Unlock()

	e.notifyState(state)
	if publish {
		e.notifyFrame(frame)
	}
}

// resolveLocked localiza o quadro do cursor. Só publica em modo replay e
// quando o quadro difere do último publicado.
func (e *Engine) resolveLocked() (models.HistoryFrame, bool) {
	frame, ok := e.buffer.FrameAt(e.state.CurrentTime)
	if !ok || !e.state.Active {
		return models.HistoryFrame{}, false
	}
	if e.published && frame.Timestamp == e.lastPublished {
		return models.HistoryFrame{}, false
	}
	e.lastPublished = frame.Timestamp
	e.published = true
	return frame, true
}

func (e *Engine) notifyFrame(frame models.HistoryFrame) {
	e.handlersLock.RLock()
	handlers := append([]FrameHandler(nil), e.frameHandlers...)
	e.handlersLock.RUnlock()

	for _, h := range handlers {
		h(frame)
	}
}

func (e *Engine) notifyState(state models.ReplayState) {
	e.handlersLock.RLock()
	handlers := append([]StateHandler(nil), e.stateHandlers...)
	e.handlersLock.RUnlock()

	for _, h := range handlers {
		h(state)
	}
}
