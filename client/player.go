package client

import (
	"sync"

	"spookify/model"
)

// AudioOutput abstracts the single native audio handle the player drives.
// Implementations report progress and completion back through
// HandleProgress and HandleEnded; the player never polls.
type AudioOutput interface {
	Load(url string) error
	Play() error
	Pause()
	Seek(seconds float64)
	SetVolume(v float64) // 0.0–1.0
	Duration() float64   // seconds, 0 until the source is decoded
}

// PlayerState is the playback engine state.
type PlayerState int

const (
	StateIdle PlayerState = iota
	StateLoading
	StatePlaying
	StatePaused
)

// LoopMode controls the end-of-track transition.
type LoopMode int

const (
	LoopOff LoopMode = iota
	LoopAll
	LoopOne
)

func (m LoopMode) String() string {
	switch m {
	case LoopAll:
		return "repeat-all"
	case LoopOne:
		return "repeat-one"
	default:
		return "off"
	}
}

const defaultVolume = 70

// Player wraps one audio output. Next/previous are resolved against the
// queue, which mirrors whatever song collection is currently loaded, in the
// order the server returned it.
type Player struct {
	mu sync.Mutex

	out     AudioOutput
	state   PlayerState
	current *model.Song
	playing bool
	volume  int
	elapsed float64
	loop    LoopMode
	queue   []model.Song
}

// NewPlayer creates an idle player over the given output.
func NewPlayer(out AudioOutput) *Player {
	p := &Player{out: out, state: StateIdle, volume: defaultVolume}
	out.SetVolume(float64(defaultVolume) / 100)
	return p
}

// SetQueue replaces the collection next/previous navigate within.
func (p *Player) SetQueue(songs []model.Song) {
	p.mu.Lock()
	p.queue = make([]model.Song, len(songs))
	copy(p.queue, songs)
	p.mu.Unlock()
}

// SetCurrent switches to a new track. Elapsed time always resets to zero,
// whatever it was before. A nil song clears playback entirely.
func (p *Player) SetCurrent(song *model.Song) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setCurrentLocked(song)
}

func (p *Player) setCurrentLocked(song *model.Song) {
	p.elapsed = 0

	if song == nil {
		p.current = nil
		p.playing = false
		p.state = StateIdle
		p.out.Pause()
		return
	}

	p.current = song
	p.state = StateLoading
	if err := p.out.Load(song.URL); err != nil {
		p.playing = false
		p.state = StatePaused
		return
	}
	p.out.SetVolume(float64(p.volume) / 100)

	if p.playing {
		if err := p.out.Play(); err != nil {
			p.playing = false
			p.state = StatePaused
			return
		}
		p.state = StatePlaying
	} else {
		p.state = StatePaused
	}
}

// SetPlaying starts or pauses playback. Starting with no current track is a
// no-op.
func (p *Player) SetPlaying(playing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return
	}
	if playing {
		if err := p.out.Play(); err != nil {
			return
		}
		p.playing = true
		p.state = StatePlaying
	} else {
		p.out.Pause()
		p.playing = false
		p.state = StatePaused
	}
}

// SetVolume sets the volume, clamped to 0–100, applied to the output
// regardless of play state.
func (p *Player) SetVolume(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	p.volume = v
	p.out.SetVolume(float64(v) / 100)
}

// Volume returns the volume (0–100).
func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Seek jumps to a position, clamped to [0, duration].
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if d := p.out.Duration(); d > 0 && seconds > d {
		seconds = d
	}
	p.out.Seek(seconds)
	p.elapsed = seconds
}

// HandleProgress records a progress tick from the output. Ticks come from
// the output's own rendering callback, so elapsed time never runs ahead of
// the audio.
func (p *Player) HandleProgress(seconds float64) {
	p.mu.Lock()
	if p.playing {
		p.elapsed = seconds
	}
	p.mu.Unlock()
}

// HandleEnded reacts to the natural end of the current track according to
// the loop mode.
func (p *Player) HandleEnded() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return
	}

	switch p.loop {
	case LoopOne:
		p.elapsed = 0
		p.out.Seek(0)
		if err := p.out.Play(); err != nil {
			p.playing = false
			p.state = StatePaused
			return
		}
		p.state = StatePlaying

	case LoopAll:
		idx := p.indexOfCurrentLocked()
		if len(p.queue) == 0 || idx < 0 {
			p.setCurrentLocked(nil)
			return
		}
		next := p.queue[(idx+1)%len(p.queue)]
		p.setCurrentLocked(&next)

	default: // LoopOff
		idx := p.indexOfCurrentLocked()
		if idx >= 0 && idx+1 < len(p.queue) {
			next := p.queue[idx+1]
			p.setCurrentLocked(&next)
			return
		}
		// Last track: stay paused on the finished track rather than
		// going idle.
		p.playing = false
		p.state = StatePaused
	}
}

// PlayNext advances to the next track of the queue and starts playing. A
// no-op when there is no next track.
func (p *Player) PlayNext() {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.indexOfCurrentLocked()
	if idx < 0 || idx+1 >= len(p.queue) {
		return
	}
	next := p.queue[idx+1]
	p.playing = true
	p.setCurrentLocked(&next)
}

// PlayPrevious steps back to the previous track of the queue and starts
// playing. A no-op when there is no previous track.
func (p *Player) PlayPrevious() {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.indexOfCurrentLocked()
	if idx <= 0 {
		return
	}
	prev := p.queue[idx-1]
	p.playing = true
	p.setCurrentLocked(&prev)
}

// ToggleLoop cycles off → repeat-all → repeat-one → off.
func (p *Player) ToggleLoop() LoopMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.loop {
	case LoopOff:
		p.loop = LoopAll
	case LoopAll:
		p.loop = LoopOne
	default:
		p.loop = LoopOff
	}
	return p.loop
}

// Loop returns the loop mode.
func (p *Player) Loop() LoopMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loop
}

// Current returns the current track, or nil.
func (p *Player) Current() *model.Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// State returns the engine state.
func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Playing reports whether playback is active.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Elapsed returns the elapsed time of the current track in seconds.
func (p *Player) Elapsed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elapsed
}

// Duration returns the decoded duration of the loaded source. Authoritative
// over any persisted metadata.
func (p *Player) Duration() float64 {
	return p.out.Duration()
}

func (p *Player) indexOfCurrentLocked() int {
	if p.current == nil {
		return -1
	}
	for i, s := range p.queue {
		if s.ID == p.current.ID {
			return i
		}
	}
	return -1
}
