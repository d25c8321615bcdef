package server

import (
	"log"
	"time"

	"github.com/adhocore/gronx"

	"github.com/abdulhamid529589/kanz-chat/internal/database"
	"github.com/abdulhamid529589/kanz-chat/internal/stats"
)

const dispatchBatchSize = 100

// Dispatcher periodically sweeps for due scheduled messages and delivers
// each exactly once. Sweeps may overlap (a slow run still executing when
// the next fires, or the HTTP trigger racing the timer); correctness
// rests entirely on the store-level claim, not on dispatcher locking.
type Dispatcher struct {
	log   *log.Logger
	db    database.ChatRepository
	cs    *ChatServer
	stats stats.StatsProvider
	cron  string
	stop  chan struct{}
	done  chan struct{}
}

func NewDispatcher(logger *log.Logger, db database.ChatRepository, cs *ChatServer, su stats.StatsProvider, cron string) *Dispatcher {
	su.RegisterMetric("NumScheduledDispatched")

	return &Dispatcher{
		log:   logger,
		db:    db,
		cs:    cs,
		stats: su,
		cron:  cron,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Run sleeps until the next tick of the configured cron expression and
// sweeps. It returns when Stop is called.
func (d *Dispatcher) Run() {
	defer close(d.done)

	for {
		next, err := gronx.NextTickAfter(d.cron, time.Now().UTC(), false)
		if err != nil {
			d.log.Printf("dispatcher: next tick for %q: %v", d.cron, err)
			select {
			case <-time.After(30 * time.Second):
			case <-d.stop:
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if n, err := d.RunOnce(); err != nil {
				d.log.Println("dispatcher sweep:", err)
			} else if n > 0 {
				d.log.Printf("dispatcher delivered %d scheduled message(s)", n)
			}
		case <-d.stop:
			return
		}
	}
}

func (d *Dispatcher) Stop() {
	close(d.stop)
	<-d.done
}

// RunOnce performs a single sweep. It is safe to call repeatedly and
// concurrently: each due message is claimed with a conditional update and
// only the claim winner broadcasts. A claim that fails on a storage error
// leaves the message pending for the next sweep.
func (d *Dispatcher) RunOnce() (int, error) {
	due, err := d.db.ListDueScheduled(Now(), dispatchBatchSize)
	if err != nil {
		return 0, err
	}

	var delivered int
	for _, msg := range due {
		at := Now()
		won, err := d.db.ClaimScheduled(msg.Id, at)
		if err != nil {
			d.log.Printf("claim scheduled %s: %v", msg.Id, err)
			continue
		}
		if !won {
			// another sweep got there first
			continue
		}

		if err := d.db.UpdateConversationOnMessage(msg.ConversationId, msg.Id, msg.SenderId, at); err != nil {
			d.log.Printf("update conversation for %s: %v", msg.Id, err)
		}

		conv, err := d.db.GetConversation(msg.ConversationId)
		if err != nil {
			d.log.Printf("get conversation %s: %v", msg.ConversationId, err)
			continue
		}

		msg.IsScheduledSent = true
		d.cs.deliverMessage(ToConversation(conv), ToMessage(msg), nil)
		d.stats.Incr("NumScheduledDispatched")
		delivered++
	}

	return delivered, nil
}
