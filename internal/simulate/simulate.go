// Package simulate implements the simulation driver (C10): init,
// the per-0.1s main loop with 30-second channel-refresh maintenance,
// and termination. Grounded top-to-bottom on
// original_source/src/process.rs's process() function.
package simulate

import (
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gpssim/internal/channel"
	"gpssim/internal/coord"
	"gpssim/internal/ephstore"
	"gpssim/internal/gpslog"
	"gpssim/internal/gpssim"
	"gpssim/internal/gpstime"
	"gpssim/internal/iqpack"
	"gpssim/internal/nco"
	"gpssim/internal/rangeengine"
	"gpssim/internal/trajectory"
)

// BlockInterval is the simulation's fixed update period, per spec.md §4.10.
const BlockInterval = 0.1

// Params collects everything the driver needs that isn't already
// captured by the ephemeris table: sample rate, output format, gain
// override, start-time resolution inputs, and the position source.
type Params struct {
	Table        *ephstore.Table
	Position     trajectory.Source
	SampleRateHz float64
	Format       iqpack.Format
	FixedGain    float64
	DurationSec  float64
	StartTime    gpstime.GpsTime
	HasStartTime bool
	TimeOverride bool
	IonoDisable  bool
	Log          logrus.FieldLogger
}

// Driver owns the live simulation state across the run.
type Driver struct {
	p       Params
	runID   string
	log     logrus.FieldLogger
	mgr     *channel.Manager
	setIdx  int
	g       gpstime.GpsTime
	rxPos   coord.Ecef
	samples int64
	maxSamples int64
}

// New resolves the receiver start time, selects the current ephemeris
// set, and returns an initialized Driver ready to Run.
func New(p Params) (*Driver, error) {
	log := p.Log
	if log == nil {
		log = gpslog.Discard()
	}
	runID := uuid.New().String()
	log = log.WithField("run_id", runID)

	if p.IonoDisable {
		p.Table.Iono.Enable = false
	}

	t0 := p.StartTime
	if !p.HasStartTime {
		earliest, ok := p.Table.Earliest()
		if !ok {
			return nil, gpssim.New(gpssim.NoCurrentEphemerides, "simulate: no ephemerides loaded to default a start time from")
		}
		t0 = earliest
	}

	if p.TimeOverride {
		t0 = p.Table.ApplyTimeOverride(t0)
	}

	setIdx, err := p.Table.SelectInitial(t0)
	if err != nil {
		return nil, err
	}

	rxPos, err := p.Position.Next()
	if err != nil {
		return nil, gpssim.Wrap(gpssim.InputFormat, "simulate: reading initial receiver position", err)
	}

	d := &Driver{
		p: p, runID: runID, log: log,
		mgr: channel.NewManager(log), setIdx: setIdx, g: t0, rxPos: rxPos,
		maxSamples: int64(math.Round(p.DurationSec/BlockInterval)) * int64(math.Floor(p.SampleRateHz*BlockInterval)),
	}
	d.mgr.FixedGain = p.FixedGain

	d.mgr.Refresh(p.Table, d.setIdx, d.rxPos, d.g)
	d.logChannelDump(logrus.InfoLevel)

	return d, nil
}

// logChannelDump logs every allocated channel's az/el/distance/iono at
// the given level: info at start, debug (verbose only) every 30s.
func (d *Driver) logChannelDump(level logrus.Level) {
	for i := range d.mgr.Channels {
		ch := &d.mgr.Channels[i]
		if !ch.Allocated {
			continue
		}
		r := rangeengine.Compute(ch.Eph, d.p.Table.Iono, d.rxPos, d.g)
		d.log.WithFields(logrus.Fields{
			"prn": ch.Prn, "az": r.Azel.Az, "el": r.Azel.El,
			"dist": r.Dist, "iono": r.IonoDelay,
		}).Log(level, "channel state")
	}
}

// Run drives the simulation to completion, writing quantized I/Q
// samples to w. It returns once DurationSec worth of blocks have been
// produced or the position source is exhausted.
func (d *Driver) Run(w *iqpack.Writer) error {
	blockSamples := int(math.Floor(d.p.SampleRateHz * BlockInterval))
	igrx := int64(0)

	states := make(map[int]*nco.ChannelState)

	for d.maxSamples == 0 || d.samples < d.maxSamples {
		if igrx%300 == 0 && igrx != 0 {
			d.regenerateNavMsgs()
			d.mgr.Refresh(d.p.Table, d.setIdx, d.rxPos, d.g)
			d.logChannelDump(logrus.DebugLevel)
		}

		d.updateRanges(states, blockSamples)

		active := d.activeStates(states)
		for s := 0; s < blockSamples; s++ {
			i, q := nco.Sample(active, d.p.SampleRateHz)
			if err := w.WriteSample(i, q); err != nil {
				return gpssim.Wrap(gpssim.Io, "simulate: writing sample", err)
			}
		}

		next, err := d.p.Position.Next()
		if err == nil {
			d.rxPos = next
		}
		d.g = gpstime.AddSecs(d.g, BlockInterval)
		d.setIdx = d.p.Table.Advance(d.setIdx, d.g)
		igrx++
		d.samples += int64(blockSamples)

		// A static position source yields exactly one point, then
		// io.EOF forever; it keeps that point for the rest of a
		// fixed-duration run. Any other source ends the run once it
		// is exhausted.
		_, static := d.p.Position.(*trajectory.Static)
		if err != nil && (d.maxSamples == 0 || !static) {
			break
		}
	}

	return w.Flush()
}

// updateRanges recomputes each active channel's range solution and
// seeds/refreshes its NCO synthesis state for the coming block.
func (d *Driver) updateRanges(states map[int]*nco.ChannelState, blockSamples int) {
	for i := range d.mgr.Channels {
		ch := &d.mgr.Channels[i]
		if !ch.Allocated {
			delete(states, ch.Prn)
			continue
		}
		ch.Rho0 = ch.Rho1
		ch.Rho1 = rangeengine.Compute(ch.Eph, d.p.Table.Iono, d.rxPos, d.g)

		st := nco.InitChannel(ch, d.p.SampleRateHz, d.mgr.GainFor)
		states[ch.Prn] = &st
	}
}

func (d *Driver) activeStates(states map[int]*nco.ChannelState) []*nco.ChannelState {
	out := make([]*nco.ChannelState, 0, len(states))
	for i := range d.mgr.Channels {
		ch := &d.mgr.Channels[i]
		if !ch.Allocated {
			continue
		}
		if st, ok := states[ch.Prn]; ok {
			out = append(out, st)
		}
	}
	return out
}

// regenerateNavMsgs rebuilds every allocated channel's 60-word data
// buffer for the next 30-second cycle. Called unconditionally on every
// 300-block (30s) maintenance tick, matching
// original_source/src/process.rs's main loop: generate_nav_msg runs
// for every channel regardless of where its data-bit pointer happens
// to be, not in response to a per-channel wrap signal from the NCO.
func (d *Driver) regenerateNavMsgs() {
	for i := range d.mgr.Channels {
		ch := &d.mgr.Channels[i]
		if !ch.Allocated {
			continue
		}
		ch.Dwrd = ch.Gen.NextSuperframe()
	}
}
