package hal

import "sync"

// MemoryGPIO is an in-memory GPIO backend for tests and simulation runs.
// Pin levels are tracked in a map; button reports can be injected with
// SetButtons.
type MemoryGPIO struct {
	mu      sync.Mutex
	levels  map[uint8]bool
	buttons uint32
	handler ButtonFunc
}

// NewMemoryGPIO creates an in-memory GPIO backend.
func NewMemoryGPIO() *MemoryGPIO {
	return &MemoryGPIO{levels: make(map[uint8]bool)}
}

type memoryPin struct {
	gpio *MemoryGPIO
	id   uint8
}

func (p *memoryPin) Set()   { p.gpio.setLevel(p.id, true) }
func (p *memoryPin) Clear() { p.gpio.setLevel(p.id, false) }

func (g *MemoryGPIO) setLevel(id uint8, level bool) {
	g.mu.Lock()
	g.levels[id] = level
	g.mu.Unlock()
}

// Pin returns the output line with the given number.
func (g *MemoryGPIO) Pin(id uint8) Pin {
	return &memoryPin{gpio: g, id: id}
}

// Level reports the current level of a pin. Unset pins read low.
func (g *MemoryGPIO) Level(id uint8) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.levels[id]
}

// OnButton registers the raw button transition callback.
func (g *MemoryGPIO) OnButton(fn ButtonFunc) {
	g.mu.Lock()
	g.handler = fn
	g.mu.Unlock()
}

// SetButtons injects a new button level bitmask. The registered callback is
// invoked with the changed mask, mirroring a hardware edge report.
func (g *MemoryGPIO) SetButtons(state uint32) {
	g.mu.Lock()
	changed := g.buttons ^ state
	g.buttons = state
	fn := g.handler
	g.mu.Unlock()
	if fn != nil && changed != 0 {
		fn(state, changed)
	}
}

// Close releases nothing; present to satisfy GPIO.
func (g *MemoryGPIO) Close() error {
	return nil
}
