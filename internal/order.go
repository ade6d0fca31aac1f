package internal

// OrderCounter hands out strictly increasing segment orders for one scope:
// the active live message, or one conversation turn during replay.
// The zero value is ready to use and starts at 1.
type OrderCounter struct {
	last int
}

// Next returns the next order value
func (c *OrderCounter) Next() int {
	c.last++
	return c.last
}

// Peek returns the value Next would return without consuming it
func (c *OrderCounter) Peek() int {
	return c.last + 1
}

// Last returns the most recently assigned value, 0 if none
func (c *OrderCounter) Last() int {
	return c.last
}

// Reset starts the scope over
func (c *OrderCounter) Reset() {
	c.last = 0
}

// PairState is the replay-only bookkeeping for one conversation turn
type PairState struct {
	PairIndex          int
	AssistantID        string
	Order              OrderCounter
	OpenReasoningID    string
	AttachedToLive     bool
	AwaitingToolCallID string

	// Settled turns were folded by an earlier replay; their events are
	// skipped
	Settled bool
}

// folds reports whether events for this turn still change its message
func (p *PairState) folds() bool {
	return !p.AttachedToLive && !p.Settled
}

func newPairState(pairIndex int, assistantID string) *PairState {
	return &PairState{
		PairIndex:   pairIndex,
		AssistantID: assistantID,
	}
}
