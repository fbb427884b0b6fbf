// Package eventlog mantém em memória os eventos mais recentes das execuções.
package eventlog

import (
	"sync"
	"time"
)

// Level do evento
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event é um registro de execução de um fornecedor ou de uma falha da execução
type Event struct {
	RunID      string    `json:"run_id"`
	Vendor     string    `json:"vendor,omitempty"`
	Level      Level     `json:"level"`
	Status     string    `json:"status,omitempty"`
	Found      int       `json:"found"`
	Updated    int       `json:"updated"`
	Message    string    `json:"message,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Buffer é um ring buffer de tamanho fixo; ao encher, sobrescreve o mais antigo
type Buffer struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

// NewBuffer cria um Buffer com a capacidade dada (mínimo 1)
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{events: make([]Event, capacity)}
}

// Add grava um evento
func (b *Buffer) Add(e Event) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[b.next] = e
	b.next = (b.next + 1) % len(b.events)
	if b.next == 0 {
		b.full = true
	}
}

// Len retorna quantos eventos estão guardados
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return len(b.events)
	}
	return b.next
}

// Recent retorna até n eventos, do mais novo para o mais antigo; n <= 0 retorna todos
func (b *Buffer) Recent(n int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := b.next
	if b.full {
		size = len(b.events)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		idx := (b.next - i + len(b.events)) % len(b.events)
		out = append(out, b.events[idx])
	}
	return out
}
