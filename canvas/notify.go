package canvas

import "github.com/gogpu/renderserver/rid"

// Update fires the visibility notifiers of items whose on-screen state
// changed since the previous Update and starts a new visibility frame.
func (c *Culler) Update() {
	var calls []func()

	c.notifyMu.Lock()
	seen := c.seen
	c.seen = make(map[rid.RID]struct{})
	c.items.Range(func(r rid.RID, it item) bool {
		n := it.notifier
		if n == nil {
			return true
		}
		_, now := seen[r]
		_, was := c.shown[r]
		switch {
		case now && !was:
			c.shown[r] = struct{}{}
			if n.onEnter != nil {
				calls = append(calls, n.onEnter)
			}
		case !now && was:
			delete(c.shown, r)
			if n.onExit != nil {
				calls = append(calls, n.onExit)
			}
		}
		return true
	})
	c.notifyMu.Unlock()

	for _, fn := range calls {
		fn()
	}
}
