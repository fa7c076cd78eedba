// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"errors"
	"net/http"
	"sync"

	"rivaas.dev/traceprop/naming"
	"rivaas.dev/traceprop/scope"
	"rivaas.dev/traceprop/tracing"
)

// ErrPoolClosed is reported for requests that arrive after [Pool.Close].
var ErrPoolClosed = errors.New("server: worker pool closed")

// DefaultWorkers is the pool size used when NewPool is given a non-positive count.
const DefaultWorkers = 8

// Pool serves requests on a fixed set of workers, one request per worker at a
// time. Each worker owns a [scope.Local] slot holding the span of the request
// it is serving; handlers reach it through scope.LocalFrom(r.Context()) or
// [scope.Current]. The slot and its pending child cell are emptied before the
// worker takes its next request, whatever the outcome of the previous one.
type Pool struct {
	tracer *tracing.Tracer
	cfg    *config
	jobs   chan *job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type job struct {
	next  http.Handler
	w     http.ResponseWriter
	r     *http.Request
	panic any
	done  chan struct{}
}

// NewPool starts workers goroutines serving traced requests.
func NewPool(tracer *tracing.Tracer, workers int, opts ...Option) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	p := &Pool{
		tracer: tracer,
		cfg:    newConfig(opts...),
		jobs:   make(chan *job),
	}
	for range workers {
		p.wg.Go(p.work)
	}

	return p
}

// Handler returns an http.Handler that runs next on a pool worker. The
// calling goroutine waits for the worker; a panic in next is re-raised on it.
func (p *Pool) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		j := &job{next: next, w: w, r: r, done: make(chan struct{})}

		p.mu.RLock()
		if p.closed {
			p.mu.RUnlock()
			http.Error(w, ErrPoolClosed.Error(), http.StatusServiceUnavailable)
			return
		}
		select {
		case p.jobs <- j:
			p.mu.RUnlock()
		case <-r.Context().Done():
			p.mu.RUnlock()
			return
		}

		<-j.done
		if j.panic != nil {
			panic(j.panic)
		}
	})
}

// Close stops accepting requests and waits for in-flight ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) work() {
	local := scope.NewLocal()
	for j := range p.jobs {
		p.serve(local, j)
	}
}

// serve runs one job on the worker owning local.
func (p *Pool) serve(local *scope.Local, j *job) {
	defer close(j.done)
	defer release(local)

	r := j.r
	if !p.tracer.IsEnabled() || p.cfg.filter.shouldExclude(r.URL.Path) {
		j.panic = runRecovered(func() { j.next.ServeHTTP(j.w, r.WithContext(scope.WithLocal(r.Context(), local))) })
		return
	}

	b := newBoundary(p.tracer, r)
	tx := b.start(r.Context())
	local.Set(tx.Span)

	ctx, rec := naming.WithRecorder(scope.WithLocal(r.Context(), local))
	r = r.WithContext(ctx)
	rw := newResponseWriter(j.w)

	j.panic = runRecovered(func() { j.next.ServeHTTP(rw, r) })
	if j.panic != nil {
		b.complete(p.cfg.route(r, rec), http.StatusInternalServerError, panicError(j.panic))
		return
	}
	b.complete(p.cfg.route(r, rec), rw.status(r.Context()), nil)
}

// release empties the worker slot. A child whose response never arrived is
// finished as cancelled so that it does not leak into the next request.
func release(local *scope.Local) {
	local.Clear()
	if child := local.Pending().Take(); child != nil {
		child.SetStatus(tracing.StatusCancelled)
		child.Finish()
	}
}

func runRecovered(fn func()) (p any) {
	defer func() {
		p = recover()
	}()
	fn()

	return nil
}
