package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/api/metrics"
	"github.com/99minutos/identity-system/internal/core/ports"
)

const channelBuffer = 256

type message struct {
	to      string
	subject string
	body    string
}

// Dispatcher hands e-mails to a fixed set of workers so SMTP latency stays
// off the request path. Messages for the same recipient always land on the
// same worker and are delivered in order.
type Dispatcher struct {
	workers []chan message
	sender  ports.EmailSender
	log     zerolog.Logger
	wg      sync.WaitGroup
}

var _ ports.EmailSender = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, a single worker is used.
func NewDispatcher(numWorkers int, sender ports.EmailSender, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	d := &Dispatcher{
		workers: make([]chan message, numWorkers),
		sender:  sender,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan message, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Send enqueues the message and returns. It blocks only while the target
// worker's buffer is full, and gives up when ctx is done.
func (d *Dispatcher) Send(ctx context.Context, to, subject, htmlBody string) error {
	idx := d.shardIndex(to)
	select {
	case d.workers[idx] <- message{to: to, subject: subject, body: htmlBody}:
		metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(to string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(to))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan message) {
	defer d.wg.Done()
	depth := metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			depth.Dec()
			if err := d.sender.Send(ctx, msg.to, msg.subject, msg.body); err != nil {
				d.log.Error().Err(err).
					Str("subject", msg.subject).
					Int("worker_id", id).
					Msg("email delivery failed")
			}
		}
	}
}
