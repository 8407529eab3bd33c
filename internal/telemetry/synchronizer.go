// Package telemetry concilia os feeds de salas e dispositivos em um único
// estado ao vivo: sala ativa, unidades suavizadas e percurso.
package telemetry

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"regata_go/internal/course"
	"regata_go/internal/geo"
	"regata_go/internal/models"
	"regata_go/internal/smoothing"
	"regata_go/pkg/logger"
	"regata_go/pkg/utils"
)

// Recorder grava quadros no histórico; WhenLive só executa fn fora do modo replay
type Recorder interface {
	Record(ts int64, units models.UnitMap) bool
	WhenLive(fn func()) bool
}

// Display recebe o estado derivado publicado
type Display interface {
	SetUnits(units models.UnitMap, fromReplay bool)
	SetCourse(course *models.CourseData)
	SetRoom(room models.ActiveRoom)
}

// Options configura o Synchronizer
type Options struct {
	Laps   int
	RoomID string
	// Clock substitui time.Now (testes)
	Clock func() time.Time
}

type trigger int

const (
	triggerDevices trigger = iota
	triggerRooms
)

type event struct {
	name  string
	apply func()
	done  chan struct{}
}

// Synchronizer é dono de todo o estado derivado. Os eventos são aplicados um
// a um pela goroutine de Run, então um recálculo nunca se intercala com outro.
type Synchronizer struct {
	recorder Recorder
	display  Display
	clock    func() time.Time
	events   chan event

	// estado do loop; só Run toca nestes campos
	rooms           map[string]models.RoomRecord
	devices         map[string]models.RawDeviceReport
	devicesReceived bool
	selectedID      string
	laps            int
	filter          *smoothing.Filter
	live            models.UnitMap
	course          *models.CourseData
	active          models.ActiveRoom

	// cópias publicadas para leitura por outras goroutines
	mutex     sync.RWMutex
	published snapshot
}

type snapshot struct {
	live   models.UnitMap
	course *models.CourseData
	active models.ActiveRoom
	rooms  []models.RoomRecord
	laps   int
}

// NewSynchronizer cria o sincronizador. Run precisa estar em execução para
// que os eventos sejam aplicados.
func NewSynchronizer(recorder Recorder, display Display, opts Options) *Synchronizer {
	if opts.Laps < 1 {
		opts.Laps = course.DefaultLaps
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	s := &Synchronizer{
		recorder:   recorder,
		display:    display,
		clock:      opts.Clock,
		events:     make(chan event),
		rooms:      map[string]models.RoomRecord{},
		selectedID: opts.RoomID,
		laps:       opts.Laps,
		filter:     smoothing.NewFilter(),
		live:       models.UnitMap{},
	}
	s.active = resolveActiveRoom(s.rooms, s.selectedID)
	s.publishState()
	return s
}

// Run aplica eventos até ctx ser cancelado
func (s *Synchronizer) Run(ctx context.Context) {
	logger.Info("Sincronizador de telemetria iniciado")
	for {
		select {
		case <-ctx.Done():
			logger.Info("Sincronizador de telemetria parado")
			return
		case ev := <-s.events:
			s.apply(ev)
		}
	}
}

// apply executa o evento; um pânico no recálculo mantém o último estado bom
func (s *Synchronizer) apply(ev event) {
	defer close(ev.done)
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Falha ao processar evento %s, mantendo último estado: %v", ev.name, r)
		}
	}()
	ev.apply()
}

// do envia fn ao loop e espera sua conclusão
func (s *Synchronizer) do(ctx context.Context, name string, fn func()) error {
	ev := event{name: name, apply: fn, done: make(chan struct{})}
	select {
	case s.events <- ev:
	case <-ctx.Done():
		return fmt.Errorf("evento %s não entregue: %w", name, ctx.Err())
	}
	select {
	case <-ev.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("evento %s não concluído: %w", name, ctx.Err())
	}
}

// UpdateRooms substitui o conjunto de salas conhecido
func (s *Synchronizer) UpdateRooms(ctx context.Context, rooms map[string]models.RoomRecord) error {
	return s.do(ctx, "rooms", func() {
		next := make(map[string]models.RoomRecord, len(rooms))
		for id, r := range rooms {
			next[id] = r
		}
		s.rooms = next
		s.recompute(triggerRooms)
	})
}

// UpdateDevices substitui o snapshot de dispositivos. Snapshot nil ou vazio é
// o sinal explícito de limpeza: unidades e percurso ao vivo são apagados.
func (s *Synchronizer) UpdateDevices(ctx context.Context, devices map[string]models.RawDeviceReport) error {
	return s.do(ctx, "devices", func() {
		s.setDevices(devices)
		s.recompute(triggerDevices)
	})
}

// Inject alimenta um conjunto de dispositivos construído localmente
// (simulador, ferramentas de teste) pelo mesmo caminho do feed.
func (s *Synchronizer) Inject(ctx context.Context, devices map[string]models.RawDeviceReport) error {
	return s.do(ctx, "inject", func() {
		logger.Debugf("Injetando %d dispositivos locais", len(devices))
		s.setDevices(devices)
		s.recompute(triggerDevices)
	})
}

// SelectRoom seleciona uma sala por id; "" volta ao modo automático
func (s *Synchronizer) SelectRoom(ctx context.Context, id string) error {
	return s.do(ctx, "select_room", func() {
		s.selectedID = id
		s.recompute(triggerRooms)
	})
}

// SetLaps altera o número de voltas (limitado a 1..course.MaxLaps) e
// reconstrói o percurso
func (s *Synchronizer) SetLaps(ctx context.Context, laps int) error {
	if laps < 1 {
		laps = 1
	}
	if laps > course.MaxLaps {
		laps = course.MaxLaps
	}
	return s.do(ctx, "set_laps", func() {
		s.laps = laps
		s.recompute(triggerRooms)
	})
}

// RemoveUnit descarta o estado de suavização de uma unidade e a remove do
// mapa ao vivo. Se ela continuar reportando, volta no próximo snapshot.
func (s *Synchronizer) RemoveUnit(ctx context.Context, id string) error {
	return s.do(ctx, "remove_unit", func() {
		s.filter.Remove(id)
		if _, ok := s.live[id]; !ok {
			return
		}
		live := s.live.Clone()
		delete(live, id)
		s.live = live
		s.publishState()
		s.emitUnits(utils.UnixMillis(s.clock()))
	})
}

// ShowLive republica o mapa ao vivo na exibição (usado ao sair do replay)
func (s *Synchronizer) ShowLive(ctx context.Context) error {
	return s.do(ctx, "show_live", s.showLive)
}

func (s *Synchronizer) showLive() {
	live := s.live
	s.recorder.WhenLive(func() {
		s.display.SetUnits(live, false)
	})
}

func (s *Synchronizer) setDevices(devices map[string]models.RawDeviceReport) {
	s.devicesReceived = true
	if len(devices) == 0 {
		s.devices = nil
		return
	}
	next := make(map[string]models.RawDeviceReport, len(devices))
	for id, d := range devices {
		next[id] = d
	}
	s.devices = next
}

// recompute deriva sala ativa, unidades e percurso dos últimos snapshots.
// O estado só é substituído no final, então um pânico no meio não o corrompe.
func (s *Synchronizer) recompute(t trigger) {
	ingest := utils.UnixMillis(s.clock())

	active := resolveActiveRoom(s.rooms, s.selectedID)
	roomChanged := !reflect.DeepEqual(active, s.active)

	if !s.devicesReceived {
		// ainda não houve snapshot de dispositivos: só o contexto de sala muda
		s.active = active
		s.publishState()
		if roomChanged {
			s.emitRoom()
		}
		return
	}

	var live models.UnitMap
	nextCourse := s.course

	if s.devices == nil {
		live = models.UnitMap{}
		nextCourse = nil
		if t == triggerDevices {
			logger.Info("Snapshot de dispositivos vazio, limpando unidades e percurso")
		}
	} else {
		var markers map[string]course.Marker
		live, markers = s.derive(visibleDevices(s.devices, active), t, ingest)
		if built := course.Build(markers, s.laps); built != nil {
			nextCourse = built
		}
	}

	courseChanged := !reflect.DeepEqual(nextCourse, s.course)

	s.active = active
	s.live = live
	s.course = nextCourse
	s.publishState()

	if roomChanged {
		s.emitRoom()
	}
	if courseChanged {
		s.display.SetCourse(nextCourse)
	}
	s.emitUnits(ingest)
}

// derive classifica os dispositivos visíveis, suaviza os barcos e separa os marcadores
func (s *Synchronizer) derive(devices map[string]models.RawDeviceReport, t trigger, ingest int64) (models.UnitMap, map[string]course.Marker) {
	live := make(models.UnitMap, len(devices))
	markers := make(map[string]course.Marker)

	for _, id := range sortedDeviceIDs(devices) {
		d := devices[id]
		var loc models.DeviceLocation
		if d.Location != nil {
			loc = *d.Location
		}

		lat := utils.FiniteOr(geo.DefaultOrigin.Lat, loc.Lat, d.Lat)
		lon := utils.FiniteOr(geo.DefaultOrigin.Lon, loc.Lon, d.Lon)
		role := d.EffectiveRole()

		if models.Classify(role) == models.ClassMarker {
			markers[id] = course.Marker{ID: id, Lat: lat, Lon: lon, Role: role}
			continue
		}

		speed := utils.FiniteOr(0, loc.Speed, d.Speed)
		heading := utils.FiniteOr(0, loc.Heading, d.Heading)

		lastUpdated := ingest
		res, tracked := smoothing.Result{}, false
		if t == triggerRooms {
			// recálculo por sala não traz posição nova; reaproveita a saída atual
			res, tracked = s.filter.Peek(id)
			if prev, ok := s.live[id]; ok && tracked {
				lastUpdated = prev.LastUpdated
			}
		}
		if !tracked {
			res = s.filter.Smooth(smoothing.Sample{ID: id, Lat: lat, Lon: lon, Speed: speed, Heading: heading})
		}

		team := d.TeamID
		if team == "" {
			team = id
		}

		live[id] = models.UnitState{
			ID:             id,
			Team:           team,
			Role:           role,
			Lat:            res.Lat,
			Lon:            res.Lon,
			Speed:          speed,
			Heading:        res.Heading,
			IsStationary:   res.IsStationary,
			Trail:          res.Trail,
			LastPacketTime: d.PacketTime(),
			LastUpdated:    lastUpdated,
		}
	}
	return live, markers
}

// emitUnits grava o quadro no histórico e, fora do replay, atualiza a exibição
func (s *Synchronizer) emitUnits(ingest int64) {
	s.recorder.Record(ingest, s.live)
	s.showLive()
}

func (s *Synchronizer) emitRoom() {
	if s.active.Room != nil {
		logger.Infof("Sala ativa: %s (%s, modo %s)", s.active.Room.ID, s.active.RaceName(), s.active.Mode)
	} else {
		logger.Infof("Sem sala ativa (modo %s)", s.active.Mode)
	}
	s.display.SetRoom(s.active)
}

// publishState copia o estado do loop para os leitores externos
func (s *Synchronizer) publishState() {
	rooms := make([]models.RoomRecord, 0, len(s.rooms))
	for _, id := range sortedRoomIDs(s.rooms) {
		r := s.rooms[id]
		r.ID = id
		rooms = append(rooms, r)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.published = snapshot{
		live:   s.live.Clone(),
		course: s.course,
		active: s.active,
		rooms:  rooms,
		laps:   s.laps,
	}
}

// LiveUnits devolve uma cópia do mapa ao vivo
func (s *Synchronizer) LiveUnits() models.UnitMap {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.published.live.Clone()
}

// Course devolve o percurso ao vivo (nil = nenhum)
func (s *Synchronizer) Course() *models.CourseData {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.published.course
}

// ActiveRoom devolve o contexto de sala ativo
func (s *Synchronizer) ActiveRoom() models.ActiveRoom {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.published.active
}

// Rooms devolve as salas conhecidas ordenadas por id
func (s *Synchronizer) Rooms() []models.RoomRecord {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]models.RoomRecord(nil), s.published.rooms...)
}

// Laps devolve o número de voltas configurado
func (s *Synchronizer) Laps() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.published.laps
}
