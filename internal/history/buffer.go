package history

import "weatherstation/internal/models"

// Buffer кольцевой буфер показаний фиксированной емкости.
// Порядок хранения совпадает с порядком вставки, старейшее показание первое.
type Buffer struct {
	values []models.Sample
	size   int
	index  int // позиция следующей записи
	count  int
}

// NewBuffer создает буфер заданной емкости
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultCapacity
	}
	return &Buffer{
		values: make([]models.Sample, size),
		size:   size,
	}
}

// Push добавляет показание; при переполнении вытесняет старейшее и возвращает его
func (b *Buffer) Push(s models.Sample) (evicted models.Sample, ok bool) {
	if b.count >= b.size {
		evicted, ok = b.values[b.index], true
	} else {
		b.count++
	}

	b.values[b.index] = s
	b.index = (b.index + 1) % b.size
	return evicted, ok
}

// Len возвращает количество показаний в буфере
func (b *Buffer) Len() int {
	return b.count
}

// Cap возвращает емкость буфера
func (b *Buffer) Cap() int {
	return b.size
}

// At возвращает i-е показание, считая от старейшего
func (b *Buffer) At(i int) models.Sample {
	start := (b.index - b.count + b.size) % b.size
	return b.values[(start+i)%b.size]
}

// Last возвращает последнее добавленное показание
func (b *Buffer) Last() (models.Sample, bool) {
	if b.count == 0 {
		return models.Sample{}, false
	}
	return b.At(b.count - 1), true
}

// Slice копирует содержимое буфера, старейшее показание первое
func (b *Buffer) Slice() []models.Sample {
	out := make([]models.Sample, b.count)
	for i := range out {
		out[i] = b.At(i)
	}
	return out
}
