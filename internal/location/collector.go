package location

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"scanmap.klederson.com/internal/geo"
)

// Collector feeds a Store from a Source, reopening the source after failures
// and warning when fixes stop arriving.
type Collector struct {
	source     Source
	store      *Store
	log        logrus.FieldLogger
	retry      time.Duration
	fixTimeout time.Duration
}

// NewCollector creates a Collector. A zero fixTimeout disables the watchdog.
func NewCollector(src Source, store *Store, retry, fixTimeout time.Duration, log logrus.FieldLogger) *Collector {
	return &Collector{
		source:     src,
		store:      store,
		log:        log.WithField("source", src.Name()),
		retry:      retry,
		fixTimeout: fixTimeout,
	}
}

// Run blocks until ctx is done.
func (c *Collector) Run(ctx context.Context) {
	if c.fixTimeout > 0 {
		go c.watch(ctx)
	}

	for {
		c.log.Info("source opened")
		err := c.source.Run(ctx, c.add)
		if ctx.Err() != nil {
			c.log.Info("source stopped")
			return
		}
		c.log.WithError(err).Warnf("source failed, retrying in %s", c.retry)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retry):
		}
	}
}

func (c *Collector) add(p geo.Point) {
	c.store.Add(p)
	c.log.WithField("fix", p.String()).Debug("fix received")
}

// watch logs once each time the receiver goes quiet for longer than the fix
// timeout.
func (c *Collector) watch(ctx context.Context) {
	ticker := time.NewTicker(c.fixTimeout / 2)
	defer ticker.Stop()

	started := time.Now()
	quiet := false
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			last := c.store.LastSeen()
			if last.IsZero() {
				last = started
			}
			timedOut := now.Sub(last) > c.fixTimeout
			if timedOut && !quiet {
				c.log.WithField("since", last.Format(time.RFC3339)).Warn("GPS timed out")
			}
			if !timedOut && quiet {
				c.log.Info("GPS fix restored")
			}
			quiet = timedOut
		}
	}
}
