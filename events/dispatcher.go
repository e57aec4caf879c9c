package events

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-pos/utils"
)

// Dispatcher decouples request handlers from slow sinks. Emit only queues;
// a single worker hands events to the sink. When the queue is full the event
// is dropped and counted.
type Dispatcher struct {
	sink     Emitter
	queue    chan Event
	StopChan chan struct{}
	done     chan struct{}
	once     sync.Once
	dropped  atomic.Int64
}

func NewDispatcher(sink Emitter, buffer int) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	return &Dispatcher{
		sink:     sink,
		queue:    make(chan Event, buffer),
		StopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	go func() {
		defer close(d.done)
		for {
			select {
			case e := <-d.queue:
				d.deliver(e)
			case <-d.StopChan:
				d.drain()
				return
			}
		}
	}()
}

// Stop flushes what is already queued and waits for the worker to exit.
// It must only be called after Start.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.StopChan) })
	<-d.done
}

func (d *Dispatcher) Emit(e Event) {
	select {
	case <-d.StopChan:
		d.drop(e, "dispatcher stopped")
		return
	default:
	}

	select {
	case d.queue <- e:
	default:
		d.drop(e, "queue full")
	}
}

// Dropped reports how many events were discarded since start.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

func (d *Dispatcher) drop(e Event, reason string) {
	d.dropped.Add(1)
	utils.ErrorLogger.WithFields(logrus.Fields{
		"event":      e.Name,
		"company_id": e.CompanyID,
		"order_id":   e.OrderID,
	}).Error("event dropped: " + reason)
}

func (d *Dispatcher) drain() {
	for {
		select {
		case e := <-d.queue:
			d.deliver(e)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(e Event) {
	defer func() {
		if r := recover(); r != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"event": e.Name,
				"panic": r,
			}).Error("event sink panicked")
		}
	}()
	d.sink.Emit(e)
}
