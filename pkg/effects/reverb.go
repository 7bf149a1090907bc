package effects

import (
	"sync/atomic"

	"github.com/justyntemme/spatial3d/pkg/dsp/reverb"
	"github.com/justyntemme/spatial3d/pkg/scene"
)

// RoomReverb is the default send/return reverb. Environment changes arrive on
// the update thread and are applied by the render thread at the next block.
type RoomReverb struct {
	base
	room    *reverb.Room
	pending atomic.Pointer[scene.Environment]
}

// NewRoomReverb creates the default reverb.
func NewRoomReverb() *RoomReverb {
	return &RoomReverb{base: base{name: "reverb/default"}}
}

// Initialize allocates the comb and allpass delay lines.
func (r *RoomReverb) Initialize(setup Setup) error {
	if err := r.base.Initialize(setup); err != nil {
		return err
	}
	r.room = reverb.NewRoom(setup.SampleRate)
	r.apply(scene.DefaultEnvironment())
	return nil
}

// UpdateEnvironment queues new room parameters.
func (r *RoomReverb) UpdateEnvironment(env scene.Environment) {
	r.pending.Store(&env)
}

func (r *RoomReverb) apply(env scene.Environment) {
	r.room.SetRoom(env.RoomSize.Scale(), env.ReverbTime, env.Dampening)
}

// Process renders the wet return of the send bus.
func (r *RoomReverb) Process(inL, inR, outL, outR []float32) {
	if r.room == nil {
		clear(outL)
		clear(outR)
		return
	}
	if env := r.pending.Swap(nil); env != nil {
		r.apply(*env)
	}
	r.room.Process(inL, inR, outL, outR)
}

// Room exposes the underlying processor for inspection.
func (r *RoomReverb) Room() *reverb.Room {
	return r.room
}

// Dispose releases the delay lines.
func (r *RoomReverb) Dispose() {
	r.base.Dispose()
	r.room = nil
}
