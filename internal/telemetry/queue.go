// Package telemetry реализует генератор синтетических показаний
// и неограниченную очередь доставки от генератора к агрегатору
package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"weatherstation/internal/models"
)

var (
	// ErrDisconnected отправка невозможна: получатель закрыт
	ErrDisconnected = errors.New("telemetry: receiver disconnected")
	// ErrSenderClosed отправка через уже закрытый дескриптор
	ErrSenderClosed = errors.New("telemetry: sender closed")
)

// queue неограниченная FIFO-очередь с горутиной-пересыльщиком.
// Отправители пишут в in, пересыльщик копит показания в срезе
// и отдает их получателю через out.
type queue struct {
	in   chan models.Sample
	out  chan models.Sample
	done chan struct{}

	senders   atomic.Int64
	pending   atomic.Int64
	closeOnce sync.Once
}

// Sender дескриптор отправителя. Очередь закрывается для чтения,
// когда закрыты все дескрипторы.
type Sender struct {
	q      *queue
	mu     sync.RWMutex
	closed bool
}

// Receiver единственный получатель очереди
type Receiver struct {
	q *queue
}

// NewQueue создает очередь и возвращает первый дескриптор отправителя и получателя
func NewQueue() (*Sender, *Receiver) {
	q := &queue{
		in:   make(chan models.Sample),
		out:  make(chan models.Sample),
		done: make(chan struct{}),
	}
	q.senders.Store(1)
	go q.forward()
	return &Sender{q: q}, &Receiver{q: q}
}

func (q *queue) forward() {
	defer close(q.out)

	var buf []models.Sample
	in := q.in
	for in != nil || len(buf) > 0 {
		var out chan models.Sample
		var next models.Sample
		if len(buf) > 0 {
			out = q.out
			next = buf[0]
		}

		select {
		case s, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			buf = append(buf, s)
		case out <- next:
			buf[0] = models.Sample{}
			buf = buf[1:]
			q.pending.Add(-1)
		case <-q.done:
			// Непрочитанные показания отбрасываются вместе с очередью
			q.pending.Store(0)
			return
		}
	}
}

// Send ставит показание в очередь. Никогда не ждет получателя:
// очередь не ограничена по размеру.
func (s *Sender) Send(sample models.Sample) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSenderClosed
	}

	select {
	case <-s.q.done:
		return ErrDisconnected
	default:
	}

	s.q.pending.Add(1)
	select {
	case s.q.in <- sample:
		return nil
	case <-s.q.done:
		s.q.pending.Add(-1)
		return ErrDisconnected
	}
}

// Clone возвращает еще один дескриптор отправителя той же очереди
func (s *Sender) Clone() (*Sender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSenderClosed
	}
	s.q.senders.Add(1)
	return &Sender{q: s.q}, nil
}

// Close освобождает дескриптор. Повторный вызов ничего не делает.
func (s *Sender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.q.senders.Add(-1) == 0 {
		close(s.q.in)
	}
}

// C возвращает канал показаний. Канал закрывается после того,
// как закрыты все отправители и очередь опустела.
func (r *Receiver) C() <-chan models.Sample {
	return r.q.out
}

// Recv ждет следующее показание. false означает конец потока
// или отмену контекста.
func (r *Receiver) Recv(ctx context.Context) (models.Sample, bool) {
	select {
	case s, ok := <-r.q.out:
		return s, ok
	case <-ctx.Done():
		return models.Sample{}, false
	}
}

// Len возвращает количество показаний, ожидающих получателя.
// После Close очередь пуста.
func (r *Receiver) Len() int {
	select {
	case <-r.q.done:
		return 0
	default:
	}
	return int(r.q.pending.Load())
}

// Close отключает получателя; последующие отправки вернут ErrDisconnected
func (r *Receiver) Close() {
	r.q.closeOnce.Do(func() {
		close(r.q.done)
	})
}
