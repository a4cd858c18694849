package eval

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("engine pool closed")

// PoolConfig configures a Pool of engines.
type PoolConfig struct {
	Engine EngineConfig
	Size   int // Number of engine processes (default 1)
}

// PoolStatus is a snapshot of pool activity.
type PoolStatus struct {
	Size     int   `json:"size"`
	InUse    int   `json:"in_use"`
	Searches int64 `json:"searches"`
	Timeouts int64 `json:"timeouts"`
	Spawns   int64 `json:"spawns"`
	Closed   bool  `json:"closed"`
}

// Pool hands out engines one analysis at a time.
type Pool struct {
	engines []*Engine
	free    chan *Engine
	inUse   atomic.Int32

	closeOnce sync.Once
	closed    chan struct{}
}

// NewPool creates a pool. Engine processes start on first use.
func NewPool(cfg PoolConfig) *Pool {
	size := cfg.Size
	if size < 1 {
		size = 1
	}
	engines := make([]*Engine, size)
	for i := range engines {
		engines[i] = NewEngine(cfg.Engine)
	}
	return newPool(engines)
}

func newPool(engines []*Engine) *Pool {
	p := &Pool{
		engines: engines,
		free:    make(chan *Engine, len(engines)),
		closed:  make(chan struct{}),
	}
	for _, e := range engines {
		p.free <- e
	}
	return p
}

// Acquire blocks until an engine is free. Release it when the analysis is done.
func (p *Pool) Acquire(ctx context.Context) (*Engine, error) {
	select {
	case <-p.closed:
		return nil, ErrPoolClosed
	default:
	}
	select {
	case e := <-p.free:
		p.inUse.Add(1)
		return e, nil
	case <-p.closed:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns an engine to the pool.
func (p *Pool) Release(e *Engine) {
	if e == nil {
		return
	}
	p.inUse.Add(-1)
	p.free <- e
}

// Status reports pool counters.
func (p *Pool) Status() PoolStatus {
	st := PoolStatus{Size: len(p.engines), InUse: int(p.inUse.Load())}
	for _, e := range p.engines {
		s, t, sp := e.Stats()
		st.Searches += s
		st.Timeouts += t
		st.Spawns += sp
	}
	select {
	case <-p.closed:
		st.Closed = true
	default:
	}
	return st
}

// Close stops every engine process. Engines still checked out are closed too;
// their next search restarts them.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	var errs []error
	for _, e := range p.engines {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
