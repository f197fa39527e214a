package compositor

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Start opens the compositor's window and begins running its ebiten.Game
// loop on a dedicated goroutine, mirroring the teacher's EbitenOutput.Start
// (SetWindowSize/RunGame, wait for the first Draw before returning).
func (c *Compositor) Start(title string) error {
	c.mu.Lock()
	w, h := c.width, c.height
	c.mu.Unlock()

	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizable(false)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)

	go func() {
		if err := ebiten.RunGame(c); err != nil {
			c.log.Error("compositor run loop exited", "err", err)
		}
	}()

	<-c.ready
	return nil
}
