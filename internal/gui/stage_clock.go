package gui

import "codeberg.org/snonux/poetcard/internal/processor"

// StageClock decides which loading message is shown. Pipeline events
// and timer ticks both move it forward; it never moves back and never
// passes the last stage. It is not safe for concurrent use and is only
// touched on the UI thread.
type StageClock struct {
	index int
}

// Reset moves the clock back to the first stage
func (c *StageClock) Reset() processor.Stage {
	c.index = 0
	return processor.StageAt(0)
}

// Observe moves the clock to index if that is further along
func (c *StageClock) Observe(index int) processor.Stage {
	if last := len(processor.Stages) - 1; index > last {
		index = last
	}
	if index > c.index {
		c.index = index
	}
	return c.Current()
}

// Tick advances the clock by one stage
func (c *StageClock) Tick() processor.Stage {
	return c.Observe(c.index + 1)
}

// Current returns the stage the clock is at
func (c *StageClock) Current() processor.Stage {
	return processor.StageAt(c.index)
}
