// Tensile Core
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Tensile Core.
//
// Tensile Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Tensile Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Tensile Core.  If not, see <http://www.gnu.org/licenses/>.

package gpio

import (
	"fmt"

	"github.com/ZaparooProject/tensile-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

type periphPin struct {
	io  gpio.PinIO
	dir Direction
}

// PeriphController drives real header pins through periph.io.
type PeriphController struct {
	pins   map[int]*periphPin
	lookup func(name string) gpio.PinIO
	scheme Scheme
	mu     syncutil.Mutex
}

// NewPeriphController initializes the periph.io host drivers.
func NewPeriphController() (*PeriphController, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gpio host drivers: %w", err)
	}
	log.Debug().Int("drivers", len(state.Loaded)).Msg("periph host drivers loaded")
	return &PeriphController{
		pins:   make(map[int]*periphPin),
		lookup: gpioreg.ByName,
	}, nil
}

// PinName returns the periph.io registry name of pin under scheme.
func PinName(scheme Scheme, pin int) (string, error) {
	switch scheme {
	case SchemeBCM:
		return fmt.Sprintf("GPIO%d", pin), nil
	case SchemeBoard:
		return fmt.Sprintf("P1_%d", pin), nil
	default:
		return "", ErrNoScheme
	}
}

func (p *PeriphController) SetMode(scheme Scheme) error {
	if scheme != SchemeBCM && scheme != SchemeBoard {
		return fmt.Errorf("invalid gpio scheme: %d", scheme)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scheme = scheme
	return nil
}

func (p *PeriphController) ConfigurePin(pin int, dir Direction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	name, err := PinName(p.scheme, pin)
	if err != nil {
		return err
	}
	io := p.lookup(name)
	if io == nil {
		return fmt.Errorf("no gpio line found for %s", name)
	}

	if dir == Out {
		err = io.Out(gpio.Low)
	} else {
		err = io.In(gpio.PullDown, gpio.NoEdge)
	}
	if err != nil {
		return fmt.Errorf("failed to configure %s as %s: %w", name, dir, err)
	}

	p.pins[pin] = &periphPin{io: io, dir: dir}
	log.Debug().Str("line", name).Stringer("direction", dir).Msg("gpio pin configured")
	return nil
}

func (p *PeriphController) ReadPin(pin int) (Level, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.pins[pin]
	if !ok {
		return Low, fmt.Errorf("%w: %d", ErrPinNotConfigured, pin)
	}
	if st.io.Read() == gpio.High {
		return High, nil
	}
	return Low, nil
}

func (p *PeriphController) WritePin(pin int, level Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.pins[pin]
	if !ok {
		return fmt.Errorf("%w: %d", ErrPinNotConfigured, pin)
	}
	if st.dir != Out {
		return fmt.Errorf("%w: %d", ErrNotOutput, pin)
	}
	l := gpio.Low
	if level == High {
		l = gpio.High
	}
	if err := st.io.Out(l); err != nil {
		return fmt.Errorf("failed to write pin %d: %w", pin, err)
	}
	return nil
}

// ReleaseAll drives outputs low and returns every configured pin to a
// floating input.
func (p *PeriphController) ReleaseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for pin, st := range p.pins {
		if st.dir == Out {
			if err := st.io.Out(gpio.Low); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("failed to release pin %d: %w", pin, err)
			}
		}
		if err := st.io.In(gpio.Float, gpio.NoEdge); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to release pin %d: %w", pin, err)
		}
	}
	p.pins = make(map[int]*periphPin)
	p.scheme = 0
	return firstErr
}
