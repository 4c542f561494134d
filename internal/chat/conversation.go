package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conversation is an append-only, ordered log of messages. Messages are
// appended in batches; a batch is never interleaved with another one and
// subscribers see batches in append order.
type Conversation struct {
	mu   sync.RWMutex
	msgs []Message
	last map[Sender]time.Time
	subs map[int]func([]Message)
	next int

	// pending batches wait here until the delivering goroutine hands them
	// to their subscribers, in log order and outside mu.
	pending    []delivery
	delivering bool

	now   func() time.Time
	newID func() string
}

func NewConversation() *Conversation {
	return &Conversation{
		last:  make(map[Sender]time.Time),
		subs:  make(map[int]func([]Message)),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

type delivery struct {
	batch []Message
	subs  []func([]Message)
}

// append stamps ids and creation times on batch, logs it and notifies
// subscribers. It returns copies of the logged messages.
//
// When another append is already notifying, the batch is queued for that
// goroutine and append returns without waiting for it.
func (c *Conversation) append(batch []Message) []Message {
	if len(batch) == 0 {
		return nil
	}

	c.mu.Lock()
	logged := make([]Message, len(batch))
	for i, m := range batch {
		m = m.clone()
		m.ID = c.newID()
		m.CreatedAt = c.stamp(m.Sender)
		c.msgs = append(c.msgs, m)
		logged[i] = m
	}
	subs := make([]func([]Message), 0, len(c.subs))
	for i := 0; i < c.next; i++ {
		if fn, ok := c.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	c.pending = append(c.pending, delivery{batch: logged, subs: subs})
	if c.delivering {
		c.mu.Unlock()
		return cloneAll(logged)
	}
	c.delivering = true
	c.mu.Unlock()

	c.deliver()
	return cloneAll(logged)
}

func (c *Conversation) deliver() {
	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.delivering = false
			c.mu.Unlock()
			return
		}
		d := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()

		for _, fn := range d.subs {
			fn(cloneAll(d.batch))
		}
	}
}

// stamp keeps creation times non-decreasing per sender even if the wall
// clock steps backwards.
func (c *Conversation) stamp(s Sender) time.Time {
	t := c.now()
	if last, ok := c.last[s]; ok && t.Before(last) {
		t = last
	}
	c.last[s] = t
	return t
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.msgs)
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.msgs)
}

// Get looks a message up by id.
func (c *Conversation) Get(id string) (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.msgs {
		if m.ID == id {
			return m.clone(), true
		}
	}
	return Message{}, false
}

// Subscribe registers fn to receive every batch appended from now on. The
// returned function removes the subscription. fn may append to the
// conversation; that batch is delivered after the current one.
func (c *Conversation) Subscribe(fn func(batch []Message)) (cancel func()) {
	c.mu.Lock()
	id := c.next
	c.next++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func cloneAll(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.clone()
	}
	return out
}
