package middleware

import tele "gopkg.in/telebot.v4"

const countersKey = "out_counters"

// Counters describes what a handler sent back for one update. Sends made
// through the async sender land after the handler returns and are counted
// only if they finish before the summary is read.
type Counters struct {
	Messages int
	Photos   int
	Deleted  int
	Keyboard bool
}

// countingContext wraps tele.Context and records outgoing calls in n.
type countingContext struct {
	tele.Context
	n *Counters
}

func hasKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m countingContext) sent(what any, opts []any, err error) error {
	if err != nil {
		return err
	}
	if _, ok := what.(*tele.Photo); ok {
		m.n.Photos++
	} else {
		m.n.Messages++
	}
	if hasKeyboard(opts) {
		m.n.Keyboard = true
	}
	return nil
}

func (m countingContext) Send(what any, opts ...any) error {
	return m.sent(what, opts, m.Context.Send(what, opts...))
}

func (m countingContext) Reply(what any, opts ...any) error {
	return m.sent(what, opts, m.Context.Reply(what, opts...))
}

func (m countingContext) Edit(what any, opts ...any) error {
	return m.sent(what, opts, m.Context.Edit(what, opts...))
}

func (m countingContext) EditOrSend(what any, opts ...any) error {
	return m.sent(what, opts, m.Context.EditOrSend(what, opts...))
}

func (m countingContext) EditOrReply(what any, opts ...any) error {
	return m.sent(what, opts, m.Context.EditOrReply(what, opts...))
}

func (m countingContext) Delete() error {
	err := m.Context.Delete()
	if err == nil {
		m.n.Deleted++
	}
	return err
}

// CountersMiddleware counts the messages, photos and deletions a handler
// produces. Handler summaries read them with CountersFrom.
func CountersMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		n := &Counters{}
		c.Set(countersKey, n)
		return next(countingContext{Context: c, n: n})
	}
}

// CountersFrom returns a copy of the counters of c, zero when the middleware
// did not run.
func CountersFrom(c tele.Context) Counters {
	if n, ok := c.Get(countersKey).(*Counters); ok && n != nil {
		return *n
	}
	return Counters{}
}
