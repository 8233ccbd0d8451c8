package worker

import (
	"sync"
)

type Task interface {
	Execute()
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func()

func (f TaskFunc) Execute() {
	f()
}

// Pool runs queued tasks on a resizable set of goroutines.
type Pool struct {
	mu     sync.RWMutex
	size   int
	closed bool
	tasks  chan Task
	kill   chan struct{}
	wg     sync.WaitGroup
}

func NewPool(speed int, queue int) *Pool {
	pool := &Pool{
		tasks: make(chan Task, queue),
		kill:  make(chan struct{}),
	}
	pool.Resize(speed)
	return pool
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task.Execute()
		case <-p.kill:
			return
		}
	}
}

// Resize is a no-op once the pool is closed.
func (p *Pool) Resize(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	for p.size < n {
		p.size++
		p.wg.Add(1)
		go p.worker()
	}
	for p.size > n {
		p.size--
		p.kill <- struct{}{}
	}
}

func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size
}

// Close stops accepting tasks. Workers drain the queue before exiting.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.tasks)
}

func (p *Pool) Wait() {
	p.wg.Wait()
}

// Exec queues task, waiting for room. It reports false once the pool is closed.
func (p *Pool) Exec(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.tasks <- task
	return true
}

// TryExec queues task unless the queue is full or the pool is closed.
func (p *Pool) TryExec(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}
