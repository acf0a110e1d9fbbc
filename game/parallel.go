package game

import (
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/hunters/systems"
)

// parallelThreshold is the minimum hunter count to use parallel perception.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// workChunk represents a range of hunters for a worker to process.
type workChunk struct {
	start, end int
}

// parallelState holds the persistent perception worker pool. Each worker
// owns a PerceptionSystem so query buffers are never shared.
type parallelState struct {
	percepts   []*systems.PerceptionSystem
	numWorkers int

	// Inputs and outputs of the current batch
	entities []ecs.Entity
	out      []systems.Perception

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(g *Game, numWorkers int) *parallelState {
	p := &parallelState{numWorkers: numWorkers}
	p.percepts = make([]*systems.PerceptionSystem, numWorkers)
	for i := range p.percepts {
		p.percepts[i] = systems.NewPerceptionSystem(g.reg, g.econ, g.index, g.cfg.Decision.ForageHealthFraction)
	}
	return p
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(workerID int) {
	defer p.wg.Done()
	percept := p.percepts[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			for i := chunk.start; i < chunk.end; i++ {
				p.out[i] = percept.Perceive(p.entities[i])
			}
			p.doneChan <- struct{}{}
		}
	}
}

// perceiveAll fills out[i] with the perception of entities[i]. Workers only
// read the world, so the result matches a serial pass.
func (p *parallelState) perceiveAll(entities []ecs.Entity, out []systems.Perception) {
	p.startWorkers()
	p.entities, p.out = entities, out

	n := len(entities)
	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	chunks := 0
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		p.workChan <- workChunk{start: start, end: end}
		chunks++
	}
	for i := 0; i < chunks; i++ {
		<-p.doneChan
	}

	p.entities, p.out = nil, nil
}
