// Package throughputstats tracks how many bytes and frames a connection has moved
// in each direction. Connections expose a Digest of these counters so callers can
// observe transfer volume without the transport keeping any per-request state.
package throughputstats

import (
	"sync"
	"time"
)

type Digest struct {
	BytesInbound   int       `json:"bytesInbound"`
	BytesOutbound  int       `json:"bytesOutbound"`
	FramesInbound  int       `json:"framesInbound"`
	FramesOutbound int       `json:"framesOutbound"`
	Start          time.Time `json:"start"`
}

type ThroughputStats struct {
	lock sync.Mutex

	bytesInbound   int
	bytesOutbound  int
	framesInbound  int
	framesOutbound int
	start          time.Time
}

func New() *ThroughputStats {
	return &ThroughputStats{
		start: time.Now().UTC(),
	}
}

func (t *ThroughputStats) CountInbound(n int) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.bytesInbound += n
	t.framesInbound++
}

func (t *ThroughputStats) CountOutbound(n int) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.bytesOutbound += n
	t.framesOutbound++
}

func (t *ThroughputStats) Reset() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.bytesInbound = 0
	t.bytesOutbound = 0
	t.framesInbound = 0
	t.framesOutbound = 0
	t.start = time.Now().UTC()
}

func (t *ThroughputStats) Digest() Digest {
	t.lock.Lock()
	defer t.lock.Unlock()

	return Digest{
		BytesInbound:   t.bytesInbound,
		BytesOutbound:  t.bytesOutbound,
		FramesInbound:  t.framesInbound,
		FramesOutbound: t.framesOutbound,
		Start:          t.start,
	}
}
