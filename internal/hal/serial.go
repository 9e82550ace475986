package hal

import (
	"bufio"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"
)

// SerialGPIO drives pins through a serial-attached pin expander (a small MCU
// running the expander firmware). The line protocol is text based:
//
//	-> "P <pin> <0|1>"         set an output level
//	<- "B <state> <changed>"   button report, hex bitmasks
type SerialGPIO struct {
	port   serial.Port
	logger *slog.Logger

	writeMu sync.Mutex

	handlerMu sync.RWMutex
	handler   ButtonFunc

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSerialGPIO opens the expander port and starts the button read loop.
func NewSerialGPIO(portName string, baudRate int, logger *slog.Logger) (*SerialGPIO, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("serial gpio: open %s: %w", portName, err)
	}

	// USB CDC ACM: assert DTR/RTS for the expander firmware.
	_ = port.SetDTR(true)
	_ = port.SetRTS(true)

	g := &SerialGPIO{
		port:   port,
		logger: logger.With("component", "serialgpio"),
		done:   make(chan struct{}),
	}
	g.wg.Add(1)
	go g.readLoop()
	return g, nil
}

type serialPin struct {
	gpio *SerialGPIO
	id   uint8
}

func (p *serialPin) Set()   { p.gpio.writeLevel(p.id, 1) }
func (p *serialPin) Clear() { p.gpio.writeLevel(p.id, 0) }

// Pin returns the output line with the given number.
func (g *SerialGPIO) Pin(id uint8) Pin {
	return &serialPin{gpio: g, id: id}
}

func (g *SerialGPIO) writeLevel(id uint8, level int) {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	if _, err := fmt.Fprintf(g.port, "P %d %d\n", id, level); err != nil {
		// Pin writes are infallible by contract; a dead expander link is
		// unrecoverable for the control core, so log and carry on.
		g.logger.Error("pin write failed", "pin", id, "level", level, "err", err)
	}
}

// OnButton registers the raw button transition callback.
func (g *SerialGPIO) OnButton(fn ButtonFunc) {
	g.handlerMu.Lock()
	g.handler = fn
	g.handlerMu.Unlock()
}

func (g *SerialGPIO) readLoop() {
	defer g.wg.Done()
	scanner := bufio.NewScanner(g.port)
	for scanner.Scan() {
		select {
		case <-g.done:
			return
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		state, changed, err := parseButtonReport(line)
		if err != nil {
			g.logger.Debug("unrecognized expander line", "line", line, "err", err)
			continue
		}
		g.handlerMu.RLock()
		fn := g.handler
		g.handlerMu.RUnlock()
		if fn != nil {
			fn(state, changed)
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case <-g.done:
		default:
			g.logger.Error("expander read loop", "err", err)
		}
	}
}

// parseButtonReport parses "B <state> <changed>" with hex bitmask fields.
func parseButtonReport(line string) (state, changed uint32, err error) {
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != "B" {
		return 0, 0, fmt.Errorf("not a button report: %q", line)
	}
	s, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "0x"), 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("parse state: %w", err)
	}
	c, err := strconv.ParseUint(strings.TrimPrefix(fields[2], "0x"), 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("parse changed: %w", err)
	}
	return uint32(s), uint32(c), nil
}

// Close stops the read loop and closes the port.
func (g *SerialGPIO) Close() error {
	var err error
	g.closeOnce.Do(func() {
		close(g.done)
		// Close first to unblock the scanner's blocking read, then wait.
		err = g.port.Close()
		g.wg.Wait()
	})
	return err
}
