package quiz

// armLocked starts the countdown for the current question. Any previous
// countdown is cancelled first so there is never more than one.
func (a *Attempt) armLocked() {
	a.cancelLocked()
	gen := a.gen
	ch, stopTicker := a.ticker(a.rules.TickInterval)
	done := make(chan struct{})
	a.stop = func() {
		close(done)
		stopTicker()
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				a.tick(gen)
			}
		}
	}()
}

// cancelLocked stops the active countdown and invalidates ticks already in flight.
func (a *Attempt) cancelLocked() {
	if a.stop != nil {
		a.stop()
		a.stop = nil
	}
	a.gen++
}

func (a *Attempt) tick(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || a.state != AwaitingAnswer {
		a.mu.Unlock()
		return
	}
	a.remaining--
	ev := Event{Kind: EventTick, Index: a.index, Remaining: a.remaining}
	if a.remaining <= 0 {
		a.remaining = 0
		a.cancelLocked()
		q := a.questions[a.index]
		reveal := a.revealLocked(TimeoutSentinel(q.Kind()), true)
		ev = Event{Kind: EventTimeout, Index: reveal.Index, Reveal: &reveal}
	}
	listener := a.listener
	a.mu.Unlock()

	if listener != nil {
		listener(ev)
	}
}
