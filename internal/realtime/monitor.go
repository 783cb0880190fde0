package realtime

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultLivenessInterval matches the heartbeat period clients expect.
const DefaultLivenessInterval = 30 * time.Second

// Monitor reaps half-open connections (client crashed without a clean close).
// Every interval it sweeps all open sessions: a session whose previous probe
// went unanswered is terminated; otherwise its alive flag is cleared and a
// new transport-level ping is sent. The pong handler on the connection sets
// the flag back.
type Monitor struct {
	hub      *Hub
	interval time.Duration
	log      *zap.SugaredLogger
}

func NewMonitor(hub *Hub, interval time.Duration, log *zap.SugaredLogger) *Monitor {
	if interval <= 0 {
		interval = DefaultLivenessInterval
	}
	return &Monitor{hub: hub, interval: interval, log: log}
}

// Run sweeps until ctx is cancelled. Intended to be started once from main.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Monitor) sweep() {
	for _, c := range m.hub.Sessions() {
		if !c.Alive() {
			// Unanswered since last tick: presumed dead. Removing from the
			// hub here makes eviction complete by the end of the sweep; the
			// reader's deferred cleanup then no-ops.
			c.Terminate()
			m.hub.Untrack(c)
			m.log.Infow("terminated unresponsive connection")
			continue
		}
		c.SetAlive(false)
		c.Ping()
	}
}
