package playerbind

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/control-theory/venue/internal/model"
	"github.com/control-theory/venue/internal/player"
)

// Pipeline drains player envelopes, decodes them, folds each event into the
// remote player mirror and dispatches it through the binder. One goroutine
// per pipeline keeps the mirror free of data races.
type Pipeline struct {
	binder *Binder
	remote *player.Remote
	in     <-chan model.PlayerEnvelope

	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu        sync.Mutex
	processed uint64
	rejected  uint64
}

// NewPipeline builds a pipeline reading envelopes from in.
func NewPipeline(binder *Binder, remote *player.Remote, in <-chan model.PlayerEnvelope) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		binder: binder,
		remote: remote,
		in:     in,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start emits the bind-time records and begins draining envelopes.
func (p *Pipeline) Start() {
	p.startOnce.Do(func() {
		p.binder.Bind()
		p.wg.Add(1)
		go p.run()
	})
}

func (p *Pipeline) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case env, ok := <-p.in:
			if !ok {
				return
			}
			p.handle(env)
		}
	}
}

func (p *Pipeline) handle(env model.PlayerEnvelope) {
	ev, err := player.ParseEvent(env.Line)
	if err != nil {
		p.mu.Lock()
		p.rejected++
		p.mu.Unlock()
		log.WithFields(log.Fields{
			"source": env.Source,
			"error":  err,
		}).Debug("discarding undecodable player event")
		return
	}

	p.remote.Apply(ev)
	p.binder.Handle(ev)

	p.mu.Lock()
	p.processed++
	p.mu.Unlock()
}

// Stats returns the processed and rejected envelope counts.
func (p *Pipeline) Stats() (processed, rejected uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.rejected
}

// Stop halts the drain loop and waits for it to exit.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}
