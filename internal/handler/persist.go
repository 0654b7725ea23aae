package handler

import (
	"context"
	"sync"
)

// persister runs persistence work off the relay path while keeping it
// ordered. Jobs for one room execute strictly in enqueue order, so two
// strokes from one connection land in send order and a clear-board truncate
// can never run before an earlier append.
type persister struct {
	mu    sync.Mutex
	rooms map[string]*persistQueue
}

type persistQueue struct {
	jobs    []func(context.Context)
	running bool
}

func newPersister() *persister {
	return &persister{rooms: make(map[string]*persistQueue)}
}

// enqueue appends a job to the room's queue and starts a drainer when none
// is running. Never blocks the caller.
func (p *persister) enqueue(roomID string, job func(context.Context)) {
	p.mu.Lock()
	q := p.rooms[roomID]
	if q == nil {
		q = &persistQueue{}
		p.rooms[roomID] = q
	}
	q.jobs = append(q.jobs, job)
	if !q.running {
		q.running = true
		go p.drain(roomID, q)
	}
	p.mu.Unlock()
}

// drain runs the room's jobs one at a time and removes the queue once it
// empties.
func (p *persister) drain(roomID string, q *persistQueue) {
	for {
		p.mu.Lock()
		if len(q.jobs) == 0 {
			q.running = false
			delete(p.rooms, roomID)
			p.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		p.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		job(ctx)
		cancel()
	}
}
