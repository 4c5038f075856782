package achan

import "github.com/qq587282/actorgo/actorerr"

// notifyEntry is a registered, notify-only observer of "this channel now
// has something a popper could consume" — it never itself consumes a
// value; the registrant is expected to follow up with TryPop. This is the
// building block Select uses to watch many channels at once without
// allocating a waiter per case (spec.md §4.3/§4.4).
type notifyEntry struct {
	fn      func(state actorerr.AsyncState)
	fired   bool
	removed bool
}

// NotifyToken identifies one AppendPopNotify registration so it can later
// be retracted via RemovePopNotify.
type NotifyToken struct {
	entry *notifyEntry
}

// AppendPopNotify registers fn to fire exactly once, the next time a pop
// would succeed (buffer gains an item, a pusher arrives at a rendezvous
// channel) or the channel closes. It does not consume anything itself.
func (c *Channel[T]) AppendPopNotify(fn func(state actorerr.AsyncState)) *NotifyToken {
	token := &NotifyToken{}
	c.run(func() {
		if c.closed {
			fn(actorerr.Closed)
			return
		}
		ready := len(c.buf) > 0 || (c.capacity == 0 && len(c.pushWait) > 0)
		if ready {
			fn(actorerr.OK)
			return
		}
		e := &notifyEntry{fn: fn}
		token.entry = e
		c.notifyList = append(c.notifyList, e)
	})
	return token
}

// RemovePopNotify retracts a registration made via AppendPopNotify. If the
// notify already fired, notify is called with OK (it already happened);
// otherwise with Cancel.
func (c *Channel[T]) RemovePopNotify(token *NotifyToken, notify VoidCallback) {
	c.run(func() {
		if token.entry == nil {
			// Already fired synchronously inside AppendPopNotify, or never
			// registered (channel was closed at registration time).
			notify(actorerr.OK)
			return
		}
		if token.entry.fired {
			// The notify already consumed the one wakeup fireOneNotify handed
			// out. Whether this registrant followed up with a TryPop is not
			// tracked, so the wakeup is always passed on to another
			// still-registered waiter; if the data it was woken for is still
			// sitting there, liveness is preserved (spec.md §4.3: "it wakes
			// one other waiter in compensation").
			c.fireOneNotify()
			notify(actorerr.OK)
			return
		}
		token.entry.removed = true
		c.removeNotifyEntry(token.entry)
		notify(actorerr.Cancel)
	})
}

func (c *Channel[T]) removeNotifyEntry(target *notifyEntry) {
	for i, e := range c.notifyList {
		if e == target {
			c.notifyList = append(c.notifyList[:i], c.notifyList[i+1:]...)
			return
		}
	}
}

// fireOneNotify wakes exactly one registered observer when new data
// becomes available — spec.md §7 "adding data to any case wakes exactly
// one select iteration."
func (c *Channel[T]) fireOneNotify() {
	for len(c.notifyList) > 0 {
		e := c.notifyList[0]
		c.notifyList = c.notifyList[1:]
		if e.removed {
			continue
		}
		e.fired = true
		e.fn(actorerr.OK)
		return
	}
}

func (c *Channel[T]) fireAllNotify(state actorerr.AsyncState) {
	list := c.notifyList
	c.notifyList = nil
	for _, e := range list {
		if e.removed {
			continue
		}
		e.fired = true
		e.fn(state)
	}
}
