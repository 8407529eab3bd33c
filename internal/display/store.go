// Package display guarda o estado visível externamente (unidades exibidas,
// percurso, sala, cursor de replay, saúde do feed) e avisa os ouvintes.
package display

import (
	"sync"

	"regata_go/internal/models"
)

// EventKind identifica o que mudou
type EventKind string

const (
	EventUnits  EventKind = "units"
	EventCourse EventKind = "course"
	EventRoom   EventKind = "room"
	EventReplay EventKind = "replay"
	EventFeed   EventKind = "feed"
)

// Event é entregue aos ouvintes após cada mudança. Só o campo do Kind é preenchido.
type Event struct {
	Kind       EventKind
	Units      models.UnitMap
	FromReplay bool
	Course     *models.CourseData
	Room       models.ActiveRoom
	Replay     models.ReplayState
	Feed       models.FeedStatus
}

// Listener recebe eventos de forma síncrona; não deve bloquear
type Listener func(Event)

// Store é o estado exibido. Escritas são atômicas para os leitores.
type Store struct {
	mutex      sync.RWMutex
	units      models.UnitMap
	fromReplay bool
	course     *models.CourseData
	room       models.ActiveRoom
	replay     models.ReplayState
	feed       models.FeedStatus

	listenersLock sync.RWMutex
	listeners     map[int]Listener
	nextID        int
}

// NewStore cria um store vazio
func NewStore() *Store {
	return &Store{
		units:     models.UnitMap{},
		room:      models.ActiveRoom{Mode: models.RoomModeNone},
		replay:    models.ReplayState{Speed: 1},
		listeners: make(map[int]Listener),
	}
}

// Subscribe registra um ouvinte e devolve a função que o remove
func (s *Store) Subscribe(l Listener) func() {
	s.listenersLock.Lock()
	defer s.listenersLock.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.listenersLock.Lock()
		defer s.listenersLock.Unlock()
		delete(s.listeners, id)
	}
}

// SetUnits substitui o mapa exibido. fromReplay indica que veio do histórico.
func (s *Store) SetUnits(units models.UnitMap, fromReplay bool) {
	units = units.Clone()

	s.mutex.Lock()
	s.units = units
	s.fromReplay = fromReplay
	s.mutex.Unlock()

	s.emit(Event{Kind: EventUnits, Units: units, FromReplay: fromReplay})
}

// SetCourse substitui o percurso exibido (nil = nada para desenhar)
func (s *Store) SetCourse(course *models.CourseData) {
	s.mutex.Lock()
	s.course = course
	s.mutex.Unlock()

	s.emit(Event{Kind: EventCourse, Course: course})
}

// SetRoom atualiza o contexto de sala
func (s *Store) SetRoom(room models.ActiveRoom) {
	s.mutex.Lock()
	s.room = room
	s.mutex.Unlock()

	s.emit(Event{Kind: EventRoom, Room: room})
}

// SetReplay atualiza o cursor exibido
func (s *Store) SetReplay(state models.ReplayState) {
	s.mutex.Lock()
	s.replay = state
	s.mutex.Unlock()

	s.emit(Event{Kind: EventReplay, Replay: state})
}

// SetFeed atualiza a saúde do feed
func (s *Store) SetFeed(status models.FeedStatus) {
	s.mutex.Lock()
	s.feed = status
	s.mutex.Unlock()

	s.emit(Event{Kind: EventFeed, Feed: status})
}

// Units devolve uma cópia do mapa exibido
func (s *Store) Units() models.UnitMap {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.units.Clone()
}

// FromReplay indica se o mapa exibido veio do histórico
func (s *Store) FromReplay() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.fromReplay
}

// Course devolve o percurso exibido
func (s *Store) Course() *models.CourseData {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.course
}

// Room devolve o contexto de sala
func (s *Store) Room() models.ActiveRoom {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.room
}

// Replay devolve o cursor exibido
func (s *Store) Replay() models.ReplayState {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.replay
}

// Feed devolve a saúde do feed
func (s *Store) Feed() models.FeedStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.feed
}

// Snapshot monta o estado completo; History e Laps ficam a cargo do chamador
func (s *Store) Snapshot() models.Snapshot {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return models.Snapshot{
		Units:  s.units.Clone(),
		Replay: s.replay,
		Course: s.course,
		Room:   s.room,
		Feed:   s.feed,
	}
}

func (s *Store) emit(ev Event) {
	s.listenersLock.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersLock.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}
