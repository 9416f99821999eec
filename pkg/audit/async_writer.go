package audit

import (
	"context"
	"sync"
	"time"
)

// AsyncOptions tunes batching. Zero fields take defaults.
type AsyncOptions struct {
	BufferSize     int           // entries queued before Store falls back to a direct write
	BatchSize      int           // entries per StoreBatch call
	BatchTimeout   time.Duration // max wait before a partial batch is flushed
	StorageTimeout time.Duration // per-batch write timeout
}

// AsyncWriter is a Storage that groups entries into batches for a
// BatchWriter. Store blocks until the batch holding the entry is written, so
// callers still observe write errors.
type AsyncWriter struct {
	bw      BatchWriter
	queue   chan queued
	done    chan struct{}
	exited  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
	options AsyncOptions
}

type queued struct {
	entry  Entry
	result chan error
}

// NewAsyncWriter starts the background batching goroutine. The returned
// function stops it after flushing queued entries.
func NewAsyncWriter(bw BatchWriter, opts AsyncOptions) (*AsyncWriter, func(context.Context) error) {
	if bw == nil {
		panic("audit: batch writer cannot be nil")
	}

	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 100 * time.Millisecond
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}

	aw := &AsyncWriter{
		bw:      bw,
		queue:   make(chan queued, opts.BufferSize),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
		options: opts,
	}

	aw.wg.Add(1)
	go aw.worker()

	return aw, aw.Close
}

// Store queues entry and waits for its batch. With a full buffer the entry is
// written directly.
func (aw *AsyncWriter) Store(ctx context.Context, entry Entry) error {
	select {
	case <-aw.done:
		return ErrStorageNotAvailable
	default:
	}

	result := make(chan error, 1)
	select {
	case aw.queue <- queued{entry: entry, result: result}:
	case <-ctx.Done():
		return ctx.Err()
	default:
		return aw.bw.StoreBatch(ctx, []Entry{entry})
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-aw.exited:
		select {
		case err := <-result:
			return err
		default:
			return ErrStorageNotAvailable
		}
	}
}

func (aw *AsyncWriter) worker() {
	defer aw.wg.Done()
	defer close(aw.exited)

	batch := make([]Entry, 0, aw.options.BatchSize)
	waiters := make([]chan error, 0, aw.options.BatchSize)
	ticker := time.NewTicker(aw.options.BatchTimeout)
	defer ticker.Stop()

	// Writes run on a fresh context so a caller's cancellation does not fail
	// the rest of the batch.
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), aw.options.StorageTimeout)
		err := aw.bw.StoreBatch(ctx, batch)
		cancel()

		for _, w := range waiters {
			w <- err
		}
		clear(batch)
		batch = batch[:0]
		clear(waiters)
		waiters = waiters[:0]
	}

	add := func(q queued) {
		batch = append(batch, q.entry)
		waiters = append(waiters, q.result)
		if len(batch) >= aw.options.BatchSize {
			flush()
		}
	}

	for {
		select {
		case q := <-aw.queue:
			add(q)
		case <-ticker.C:
			flush()
		case <-aw.done:
			for {
				select {
				case q := <-aw.queue:
					add(q)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting entries, flushes what is queued and waits for the
// worker until ctx expires.
func (aw *AsyncWriter) Close(ctx context.Context) error {
	aw.stopped.Do(func() { close(aw.done) })

	finished := make(chan struct{})
	go func() {
		aw.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
