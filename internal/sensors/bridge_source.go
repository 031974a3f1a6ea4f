// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// BridgeSource reads $PODOM sentences streamed by the sensor co-processor
// and serves the most recent valid sample. Malformed lines are skipped, so
// readers always see the last good value.
type BridgeSource struct {
	geometry Geometry
	port     io.ReadCloser

	mu      sync.RWMutex
	last    ODOM
	have    bool
	samples uint64

	done chan struct{}
}

// OpenSerialPort opens a raw 8N1 serial port.
func OpenSerialPort(portName string, baudRate int) (io.ReadWriteCloser, error) {
	serialOpts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portName, err)
	}
	return port, nil
}

// OpenSerialBridge opens the co-processor UART and starts reading from it.
func OpenSerialBridge(portName string, baudRate int, geometry Geometry) (*BridgeSource, error) {
	port, err := OpenSerialPort(portName, baudRate)
	if err != nil {
		return nil, fmt.Errorf("sensor bridge: %w", err)
	}
	log.Printf("sensor bridge: serial port opened on %s at %d baud", portName, baudRate)

	return NewBridgeSource(port, geometry), nil
}

// NewBridgeSource starts reading sentences from port. The source owns port
// and closes it in Close.
func NewBridgeSource(port io.ReadCloser, geometry Geometry) *BridgeSource {
	b := &BridgeSource{
		geometry: geometry,
		port:     port,
		done:     make(chan struct{}),
	}
	go b.readLoop()
	return b
}

func (b *BridgeSource) readLoop() {
	defer close(b.done)

	reader := bufio.NewReader(b.port)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			b.handleLine(line)
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("sensor bridge: read error: %v", err)
			}
			return
		}
	}
}

func (b *BridgeSource) handleLine(line string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// partial lines are common right after the port opens
		return
	}

	switch sentence.DataType() {
	case TypeODOM:
		m := sentence.(ODOM)
		b.mu.Lock()
		b.last = m
		b.have = true
		b.samples++
		b.mu.Unlock()
	default:
		// other sentence types are ignored
	}
}

// Ready reports whether at least one valid sample has arrived.
func (b *BridgeSource) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.have
}

// Samples returns the number of valid samples received so far.
func (b *BridgeSource) Samples() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.samples
}

func (b *BridgeSource) latest() ODOM {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}

func (b *BridgeSource) Heading() float64 { return b.latest().Heading }

func (b *BridgeSource) Pitch() float64 { return b.latest().Pitch }

func (b *BridgeSource) Roll() float64 { return b.latest().Roll }

func (b *BridgeSource) Wheel(id WheelID) float64 {
	m := b.latest()
	if id == LateralWheel {
		return m.Lateral
	}
	return m.Forward
}

func (b *BridgeSource) WheelDiameter() float64 { return b.geometry.Diameter }

func (b *BridgeSource) WheelOffset(id WheelID) float64 { return b.geometry.Offset(id) }

// closeWait bounds how long Close waits for a reader blocked in the
// serial driver.
const closeWait = time.Second

// Close closes the port and waits for the reader to exit.
func (b *BridgeSource) Close() error {
	err := b.port.Close()
	select {
	case <-b.done:
	case <-time.After(closeWait):
		log.Printf("sensor bridge: reader did not exit within %s", closeWait)
	}
	log.Printf("sensor bridge: closed after %d samples", b.Samples())
	return err
}
