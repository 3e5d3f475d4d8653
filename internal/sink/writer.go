// Package sink buffers accepted records and flushes them to the output in
// bounded batches. The writer is the only component that touches the sink;
// workers enqueue concurrently.
package sink

import (
	"sync"

	"news_spider/internal/models"
)

// Sink receives whole batches. Implementations: CSV append, mongo upsert.
type Sink interface {
	WriteBatch(records []models.NewsRecord) error
	Close() error
}

// BatchWriter accumulates records and writes them out every batchSize
// enqueues. All methods are safe for concurrent use; an enqueue that
// triggers a flush performs the write while still holding the lock, so no
// reader ever observes a partially written batch.
type BatchWriter struct {
	mu        sync.Mutex
	buf       []models.NewsRecord
	batchSize int
	sink      Sink
	written   int
}

func NewBatchWriter(sink Sink, batchSize int) *BatchWriter {
	if batchSize < 1 {
		batchSize = 100
	}
	return &BatchWriter{
		buf:       make([]models.NewsRecord, 0, batchSize),
		batchSize: batchSize,
		sink:      sink,
	}
}

// Enqueue buffers one record, flushing when the buffer fills.
func (w *BatchWriter) Enqueue(rec models.NewsRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, rec)
	if len(w.buf) >= w.batchSize {
		return w.flushLocked()
	}
	return nil
}

// Flush writes any partial buffer. Called at orchestrator shutdown,
// including the interrupt path, so accepted records are never lost.
func (w *BatchWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// Written returns the number of records handed to the sink so far.
func (w *BatchWriter) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Close flushes and closes the underlying sink.
func (w *BatchWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	return w.sink.Close()
}

func (w *BatchWriter) flushLocked() error {
	if len(w.buf) == 0 {
		return nil
	}
	if err := w.sink.WriteBatch(w.buf); err != nil {
		return err
	}
	w.written += len(w.buf)
	w.buf = w.buf[:0]
	return nil
}
