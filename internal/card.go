package internal

import "sync"

// TodoCard is the floating-card display of the latest structured-list
// snapshot. When isNewConversation is set the card replaces its state
// instead of updating it.
type TodoCard interface {
	UpdateTodoListCard(snapshot TodoSnapshot, isNewConversation bool)
}

// LatestTodoCard keeps only the most recent snapshot it was given
type LatestTodoCard struct {
	mu       sync.Mutex
	snapshot *TodoSnapshot
	replaced int
	updated  int
}

// UpdateTodoListCard implements TodoCard
func (c *LatestTodoCard) UpdateTodoListCard(snapshot TodoSnapshot, isNewConversation bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := snapshot
	c.snapshot = &s
	if isNewConversation {
		c.replaced++
	} else {
		c.updated++
	}
}

// Latest returns the current snapshot, if any
func (c *LatestTodoCard) Latest() (TodoSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return TodoSnapshot{}, false
	}
	return *c.snapshot, true
}

// Counts returns how many pushes replaced and how many updated the card
func (c *LatestTodoCard) Counts() (replaced, updated int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replaced, c.updated
}

type noopCard struct{}

func (noopCard) UpdateTodoListCard(TodoSnapshot, bool) {}
