package metrics

import (
	"time"
)

// Stats is a point-in-time snapshot of a database's internal counters. A
// facade implementation (pkg/agdb.DB) exposes this so the collector never
// has to reach into storage internals directly.
type Stats struct {
	Records     uint64
	FreeRecords uint64
	StorageSize uint64
	Nodes       uint64
	Edges       uint64
	WalEntries  uint64
	LoadFactors map[string]float64
}

// Source is implemented by anything the collector can poll for Stats.
type Source interface {
	Stats() (Stats, error)
}

// Collector periodically polls a Source and republishes its counters as
// gauges. It owns no state of its own beyond the ticker goroutine.
type Collector struct {
	source   Source
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a collector that polls source every 15 seconds.
func NewCollector(source Source) *Collector {
	return &Collector{
		source:   source,
		interval: 15 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics in a background goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	stats, err := c.source.Stats()
	if err != nil {
		return
	}

	RecordsTotal.Set(float64(stats.Records))
	FreeRecordsTotal.Set(float64(stats.FreeRecords))
	StorageSizeBytes.Set(float64(stats.StorageSize))
	NodesTotal.Set(float64(stats.Nodes))
	EdgesTotal.Set(float64(stats.Edges))
	WalEntriesTotal.Set(float64(stats.WalEntries))

	for name, factor := range stats.LoadFactors {
		HashMapLoadFactor.WithLabelValues(name).Set(factor)
	}
}
