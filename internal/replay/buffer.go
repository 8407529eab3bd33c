// Package replay mantém o histórico de quadros da regata e o cursor de reprodução.
package replay

import (
	"sort"
	"sync"

	"regata_go/internal/models"
)

// DefaultCapacity é o limite de quadros de uma sessão longa
const DefaultCapacity = 100000

// Buffer é um anel de quadros com timestamps estritamente crescentes.
// Quando a capacidade é excedida o quadro mais antigo é descartado.
type Buffer struct {
	mu       sync.RWMutex
	frames   []models.HistoryFrame
	start    int
	count    int
	capacity int
}

// NewBuffer cria um buffer com a capacidade informada (<= 0 usa DefaultCapacity)
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity}
}

// at devolve o i-ésimo quadro lógico (0 = mais antigo). Chamar com lock.
func (b *Buffer) at(i int) *models.HistoryFrame {
	return &b.frames[(b.start+i)%len(b.frames)]
}

// Append grava um quadro. Devolve false se ts não for maior que o último
// timestamp armazenado.
func (b *Buffer) Append(ts int64, units models.UnitMap) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count > 0 && ts <= b.at(b.count-1).Timestamp {
		return false
	}

	frame := models.HistoryFrame{Timestamp: ts, Units: units.Clone()}

	// cresce até a capacidade e depois vira anel
	if len(b.frames) < b.capacity {
		b.frames = append(b.frames, frame)
		b.count++
		return true
	}

	b.frames[b.start] = frame
	b.start = (b.start + 1) % len(b.frames)
	return true
}

// FrameAt devolve o primeiro quadro com timestamp >= t. Depois do último quadro
// não há resultado.
func (b *Buffer) FrameAt(t int64) (models.HistoryFrame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i := sort.Search(b.count, func(i int) bool { return b.at(i).Timestamp >= t })
	if i == b.count {
		return models.HistoryFrame{}, false
	}
	return *b.at(i), true
}

// First devolve o quadro mais antigo
func (b *Buffer) First() (models.HistoryFrame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.count == 0 {
		return models.HistoryFrame{}, false
	}
	return *b.at(0), true
}

// Len devolve o número de quadros armazenados
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Bounds devolve o primeiro e o último timestamp (ok=false se vazio)
func (b *Buffer) Bounds() (first, last int64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.count == 0 {
		return 0, 0, false
	}
	return b.at(0).Timestamp, b.at(b.count - 1).Timestamp, true
}

// Summary resume o buffer para a camada de apresentação
func (b *Buffer) Summary() models.HistorySummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.count == 0 {
		return models.HistorySummary{}
	}
	return models.HistorySummary{Frames: b.count, First: b.at(0).Timestamp, Last: b.at(b.count - 1).Timestamp}
}

// Reset descarta todos os quadros
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = nil
	b.start = 0
	b.count = 0
}
