package emulator

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// EventSource enqueues a fixed JSON payload on a cron schedule, standing in
// for a scheduled trigger during local development. Specs use six fields
// (seconds first) so sources can fire more often than once a minute.
type EventSource struct {
	Name    string
	Spec    string
	Payload []byte
}

// Scheduler drives a set of event sources against a Server.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a scheduler for the given sources. A source with an
// invalid cron spec is rejected here, before anything starts firing.
func NewScheduler(server *Server, sources []EventSource) (*Scheduler, error) {
	c := cron.New(cron.WithSeconds())

	for _, src := range sources {
		src := src
		_, err := c.AddFunc(src.Spec, func() {
			id, err := server.Enqueue(context.Background(), src.Payload)
			if err != nil {
				server.logger.Error("scheduled enqueue failed", "source", src.Name, "error", err)
				return
			}
			server.logger.Debug("scheduled event enqueued", "source", src.Name, "request_id", id)
		})
		if err != nil {
			return nil, fmt.Errorf("emulator: event source %q: %w", src.Name, err)
		}
	}

	return &Scheduler{cron: c}, nil
}

// Start begins firing event sources.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops firing and waits for in-flight enqueues to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
