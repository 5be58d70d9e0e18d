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

// Package publishers forwards acquired samples to external systems.
package publishers

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/samples"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	publishTimeout = 2 * time.Second
	connectWait    = 10 * time.Second
)

// samplePayload is the JSON body of one published sample.
type samplePayload struct {
	samples.Frame
	Device string `json:"device,omitempty"`
	Seq    int64  `json:"seq"`
}

// MQTTPublisher publishes samples to an MQTT broker, optionally keeping
// only every Nth sample.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient func(*mqtt.ClientOptions) mqtt.Client
	stopCh    chan struct{}
	done      chan struct{}
	broker    string
	topic     string
	device    string
	everyN    int64
	seen      int64
	stopOnce  sync.Once
}

// NewMQTTPublisher creates a publisher for broker and topic. everyN below 1
// publishes every sample.
func NewMQTTPublisher(broker, topic, device string, everyN int) *MQTTPublisher {
	if everyN < 1 {
		everyN = 1
	}
	return &MQTTPublisher{
		broker:    broker,
		topic:     topic,
		device:    device,
		everyN:    int64(everyN),
		newClient: mqtt.NewClient,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start connects to the MQTT broker and begins publishing frames.
func (p *MQTTPublisher) Start(frames <-chan samples.Frame) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(p.broker))
	opts.SetClientID("tensile-publisher-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Msgf("mqtt publisher: connected to %s", p.broker)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt publisher: connection lost")
	}

	p.client = p.newClient(opts)

	// with connect retry enabled the token only completes once connected
	token := p.client.Connect()
	if !token.WaitTimeout(connectWait) {
		log.Warn().Str("broker", p.broker).Msg("mqtt publisher: broker not reachable yet, retrying")
	} else if token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Info().
		Str("broker", p.broker).
		Str("topic", p.topic).
		Int64("every_n", p.everyN).
		Msg("mqtt publisher started")

	go p.publishFrames(frames)

	return nil
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Stop ends publishing and disconnects. Safe to call more than once.
func (p *MQTTPublisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		if p.client != nil && p.client.IsConnected() {
			log.Debug().Msg("mqtt publisher: disconnecting")
			p.client.Disconnect(250)
		}
	})
}

// Done is closed when the publishing goroutine exits.
func (p *MQTTPublisher) Done() <-chan struct{} {
	return p.done
}

func (p *MQTTPublisher) publishFrames(frames <-chan samples.Frame) {
	defer close(p.done)

	for {
		select {
		case <-p.stopCh:
			log.Debug().Msg("mqtt publisher: stopping sample publisher")
			return
		case f, ok := <-frames:
			if !ok {
				log.Debug().Msg("mqtt publisher: sample channel closed")
				return
			}

			seq, keep := p.decimate()
			if !keep {
				continue
			}

			payload, err := json.Marshal(samplePayload{Frame: f, Device: p.device, Seq: seq})
			if err != nil {
				log.Error().Err(err).Msg("mqtt publisher: failed to marshal sample")
				continue
			}

			token := p.client.Publish(p.topic, 0, false, payload)
			if !token.WaitTimeout(publishTimeout) {
				log.Warn().Msg("mqtt publisher: publish timed out")
				continue
			}
			if token.Error() != nil {
				log.Error().Err(token.Error()).Msg("mqtt publisher: failed to publish message")
			}
		}
	}
}

// decimate counts a received sample and reports whether it is published.
func (p *MQTTPublisher) decimate() (seq int64, keep bool) {
	seq = p.seen
	p.seen++
	return seq, seq%p.everyN == 0
}
