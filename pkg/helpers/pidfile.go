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


package helpers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/platforms"
)

var ErrNotRunning = errors.New("service not running")

// PidFile tracks the process id of the running service in the platform
// temp dir.
type PidFile struct {
	path string
}

func NewPidFile(pl platforms.Platform) *PidFile {
	return &PidFile{path: filepath.Join(pl.Settings().TempDir, config.PidFile)}
}

func (p *PidFile) Path() string {
	return p.path
}

// Create writes the current process id.
func (p *PidFile) Create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o750); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}
	err := os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
	if err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

func (p *PidFile) Remove() error {
	err := os.Remove(p.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// Pid returns the recorded process id, or 0 if there is no pid file.
func (p *PidFile) Pid() (int, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("error reading pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("error parsing pid: %w", err)
	}
	return pid, nil
}

func (p *PidFile) process() (*os.Process, error) {
	pid, err := p.Pid()
	if err != nil {
		return nil, err
	}
	if pid <= 0 {
		return nil, ErrNotRunning
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to find process: %w", err)
	}
	if !IsProcessRunning(proc) {
		return nil, ErrNotRunning
	}
	return proc, nil
}

// Running reports whether the recorded process is alive.
func (p *PidFile) Running() bool {
	_, err := p.process()
	return err == nil
}

// Stop asks the recorded process to shut down.
func (p *PidFile) Stop() error {
	proc, err := p.process()
	if err != nil {
		return err
	}
	if runtime.GOOS == "windows" {
		err = proc.Kill()
	} else {
		err = proc.Signal(syscall.SIGTERM)
	}
	if err != nil {
		return fmt.Errorf("failed to stop process %d: %w", proc.Pid, err)
	}
	return nil
}
