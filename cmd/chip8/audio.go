//go:build !headless

// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

const (
	SAMPLE_RATE    = 44100
	TONE_FREQUENCY = 440
	TONE_VOLUME    = 0.2
)

// beeper plays a square wave for as long as the machine's sound timer runs
type beeper struct {
	ctx    *oto.Context
	player *oto.Player
	tone   *atomic.Bool
	phase  int
}

func newBeeper(tone *atomic.Bool) (*beeper, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SAMPLE_RATE,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)

	if err != nil {
		return nil, err
	}

	<-ready

	bp := &beeper{ctx: ctx, tone: tone}
	bp.player = ctx.NewPlayer(bp)
	bp.player.Play()

	return bp, nil
}

func (bp *beeper) Read(p []byte) (int, error) {
	const period = SAMPLE_RATE / TONE_FREQUENCY

	samples := len(p) / 4
	playing := bp.tone.Load()

	for i := 0; i < samples; i++ {
		var sample float32 = 0

		if playing {
			if bp.phase < period/2 {
				sample = TONE_VOLUME
			} else {
				sample = -TONE_VOLUME
			}

			bp.phase = (bp.phase + 1) % period
		}

		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(sample))
	}

	return samples * 4, nil
}

func (bp *beeper) Close() error {
	return bp.player.Close()
}
