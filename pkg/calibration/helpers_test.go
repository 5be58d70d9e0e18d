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

package calibration

import (
	"context"
	"errors"
	"sync"
)

// memStore is an in-memory Store that mirrors the sqlite store semantics:
// missing rows read as defaults and unknown fields are ignored.
type memStore struct {
	records  map[string]Record
	fetchErr error
	mu       sync.Mutex
	updates  int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]Record)}
}

func (s *memStore) FetchCalibration(_ context.Context, channel string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return Record{}, s.fetchErr
	}
	if rec, ok := s.records[channel]; ok {
		return rec, nil
	}
	return DefaultRecord(channel), nil
}

func (s *memStore) UpdateCalibration(_ context.Context, channel string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[channel]
	if !ok {
		rec = DefaultRecord(channel)
	}
	for k, v := range fields {
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		switch k {
		case FieldDecimalPoint:
			rec.DecimalPoint = int(f)
		case FieldResolution:
			rec.Resolution = f
		case FieldMaxCapacity:
			rec.MaxCapacity = f
		case FieldCalCapacity:
			rec.CalCapacity = f
		case FieldCalZero:
			rec.CalZero = f
		case FieldCalSpan:
			rec.CalSpan = f
		}
	}
	s.records[channel] = rec
	s.updates++
	return nil
}

func (s *memStore) get(channel string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[channel]
	return rec, ok
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, errors.New("unsupported value type")
	}
}
