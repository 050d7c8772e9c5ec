package replay

import "fmt"

// Session is the mutable playback state of one viewer. It is owned by a
// single goroutine.
type Session struct {
	player   *Player
	progress float64
	speed    float64
	playing  bool
}

// NewSession starts paused at the beginning, at DefaultSpeed.
func NewSession(p *Player) *Session {
	return &Session{player: p, speed: DefaultSpeed}
}

// Progress returns the current progress percentage.
func (s *Session) Progress() float64 { return s.progress }

// Speed returns the playback speed multiplier.
func (s *Session) Speed() float64 { return s.speed }

// Playing reports whether ticks advance the clock.
func (s *Session) Playing() bool { return s.playing }

// Play resumes playback, restarting from the beginning when finished.
func (s *Session) Play() {
	if s.progress >= 100 {
		s.progress = 0
	}
	s.playing = true
}

// Pause stops the clock.
func (s *Session) Pause() { s.playing = false }

// Seek jumps to a progress percentage.
func (s *Session) Seek(progress float64) { s.progress = clampProgress(progress) }

// Faster doubles the speed.
func (s *Session) Faster() { s.speed = Faster(s.speed) }

// Slower halves the speed.
func (s *Session) Slower() { s.speed = Slower(s.speed) }

// Apply executes a named control command.
func (s *Session) Apply(action string, progress float64) error {
	switch action {
	case "play":
		s.Play()
	case "pause":
		s.Pause()
	case "seek":
		s.Seek(progress)
	case "faster":
		s.Faster()
	case "slower":
		s.Slower()
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}

// Tick advances the clock by one frame when playing and returns the frame
// to draw. Playback pauses itself at the end of the route.
func (s *Session) Tick() (Frame, error) {
	if s.playing {
		var done bool
		s.progress, done = s.player.Advance(s.progress, s.speed)
		if done {
			s.playing = false
		}
	}
	return s.player.Frame(s.progress)
}
