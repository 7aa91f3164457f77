package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// PollInterval is the time waiting goroutines sleep between checks of the cursors.
const PollInterval = 10 * time.Microsecond

// FirstNode is the first node processed by the pipeline. Node 0 has no parents and is hashed by the consumer alone.
const FirstNode = 1

// NewCursors creates progress cursors of the pipeline.
func NewCursors() *Cursors {
	return &Cursors{
		awaiting: lo.ToPtr[uint64](FirstNode),
		producer: lo.ToPtr[uint64](0),
		consumer: lo.ToPtr[uint64](0),
	}
}

// Cursors track progress of producers and the consumer.
// Invariant: consumer <= producer + 1 and producer < awaiting.
type Cursors struct {
	// awaiting is the first node not claimed by any producer.
	awaiting *uint64

	// producer is the highest node whose slot is ready for the consumer.
	producer *uint64

	// consumer is the node being finalized by the consumer. All the nodes below it are final.
	consumer *uint64
}

// Claim reserves the range of stride nodes starting at the returned one.
func (c *Cursors) Claim(stride uint64) uint64 {
	return atomic.AddUint64(c.awaiting, stride) - stride
}

// Consumer returns the node being finalized by the consumer.
func (c *Cursors) Consumer() uint64 {
	return atomic.LoadUint64(c.consumer)
}

// Producer returns the highest node ready for the consumer.
func (c *Cursors) Producer() uint64 {
	return atomic.LoadUint64(c.producer)
}

// Advance moves the consumer to the next node.
func (c *Cursors) Advance() {
	atomic.AddUint64(c.consumer, 1)
}

// WaitForSlot blocks until slot used by the node is released by the consumer.
func (c *Cursors) WaitForSlot(ctx context.Context, node, lookahead uint64) error {
	for node+1 > atomic.LoadUint64(c.consumer)+lookahead {
		if err := sleep(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Publish marks count nodes starting at start as ready for the consumer.
// Ranges are published in ascending order, so it blocks until all the nodes preceding start are published.
func (c *Cursors) Publish(ctx context.Context, start, count uint64) error {
	for start > atomic.LoadUint64(c.producer)+1 {
		if err := sleep(ctx); err != nil {
			return err
		}
	}
	atomic.AddUint64(c.producer, count)
	return nil
}

// WaitForProducer blocks until the node is ready and returns the highest ready node.
// Returned flag tells if waiting was required.
func (c *Cursors) WaitForProducer(ctx context.Context, node uint64) (uint64, bool, error) {
	ready := atomic.LoadUint64(c.producer)
	if ready >= node {
		return ready, false, nil
	}
	for {
		if err := sleep(ctx); err != nil {
			return 0, true, err
		}
		if ready = atomic.LoadUint64(c.producer); ready >= node {
			return ready, true, nil
		}
	}
}

func sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	default:
	}
	time.Sleep(PollInterval)
	return nil
}
