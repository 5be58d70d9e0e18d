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
)

type proxyPin struct {
	dir   Direction
	level Level
}

// ProxyController stands in for real GPIO on hosts without a header. It
// keeps pin state in memory; inputs read Low unless set with SetInput.
type ProxyController struct {
	pins   map[int]*proxyPin
	scheme Scheme
	mu     syncutil.Mutex
}

func NewProxyController() *ProxyController {
	return &ProxyController{pins: make(map[int]*proxyPin)}
}

func (p *ProxyController) SetMode(scheme Scheme) error {
	if scheme != SchemeBCM && scheme != SchemeBoard {
		return fmt.Errorf("invalid gpio scheme: %d", scheme)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scheme = scheme
	log.Debug().Stringer("scheme", scheme).Msg("proxy gpio mode set")
	return nil
}

func (p *ProxyController) ConfigurePin(pin int, dir Direction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scheme == 0 {
		return ErrNoScheme
	}
	p.pins[pin] = &proxyPin{dir: dir}
	log.Debug().Int("pin", pin).Stringer("direction", dir).Msg("proxy gpio pin configured")
	return nil
}

func (p *ProxyController) ReadPin(pin int) (Level, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.pins[pin]
	if !ok {
		return Low, fmt.Errorf("%w: %d", ErrPinNotConfigured, pin)
	}
	return st.level, nil
}

func (p *ProxyController) WritePin(pin int, level Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.pins[pin]
	if !ok {
		return fmt.Errorf("%w: %d", ErrPinNotConfigured, pin)
	}
	if st.dir != Out {
		return fmt.Errorf("%w: %d", ErrNotOutput, pin)
	}
	st.level = level
	log.Debug().Int("pin", pin).Stringer("level", level).Msg("proxy gpio write")
	return nil
}

func (p *ProxyController) ReleaseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pins = make(map[int]*proxyPin)
	p.scheme = 0
	return nil
}

// SetInput simulates an external signal on an input pin.
func (p *ProxyController) SetInput(pin int, level Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.pins[pin]
	if !ok {
		return fmt.Errorf("%w: %d", ErrPinNotConfigured, pin)
	}
	st.level = level
	return nil
}
