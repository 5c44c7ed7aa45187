package transport

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// WorkerFunc processes one connection task; a non-nil error kills the
// supervising tomb, matching the teacher's "any error returned here is
// fatal" convention for connection workers.
type WorkerFunc func(t *tomb.Tomb, task any) error

// WorkerPool is a fixed-size pool of tomb-supervised goroutines pulling
// tasks off a shared channel, directly adapted from the teacher's
// internal/worker.go WorkerPool.
type WorkerPool struct {
	size  int
	tasks chan any
	work  WorkerFunc
}

func NewWorkerPool(size int) *WorkerPool {
	return &WorkerPool{
		size:  size,
		tasks: make(chan any, taskChanSize),
	}
}

// AddTask enqueues a task (a net.Conn) for the next free worker.
func (p *WorkerPool) AddTask(task any) {
	p.tasks <- task
}

// Run spawns size workers under t and blocks until t is dying.
func (p *WorkerPool) Run(t *tomb.Tomb, work WorkerFunc) {
	p.work = work
	log.Info().Int("workers", p.size).Msg("starting worker pool")

	for i := 0; i < p.size; i++ {
		t.Go(func() error {
			return p.runWorker(t)
		})
	}
	<-t.Dying()
}

func (p *WorkerPool) runWorker(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			if err := p.work(t, task); err != nil {
				log.Error().Err(err).Msg("worker exiting on error")
				return err
			}
		}
	}
}
