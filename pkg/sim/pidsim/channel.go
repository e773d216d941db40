package pidsim

import (
	"math"
	"time"
)

// maxStep limits the integration step of the model.
const maxStep = 5 * time.Millisecond

// Channel is the simulated state of one motor channel.
type Channel struct {
	Kp, Ki, Kd, Kn float32
	TargetCPS      int32
	Stopped        bool

	CurrentCPS    float64
	Integrator    float64
	Filter        float64
	Gain          float64
	SetpointError float64

	updated time.Time
}

// DefaultChannel is the power-on state of a channel.
var DefaultChannel = Channel{
	Kp:      0.5,
	Ki:      5,
	Stopped: true,
}

// advance integrates the controller and the motor up to now. The motor is
// a first-order lag from the controller output to the speed.
func (c *Channel) advance(now time.Time, tau time.Duration) {
	if c.updated.IsZero() || !now.After(c.updated) {
		c.updated = now
		return
	}
	elapsed := now.Sub(c.updated)
	c.updated = now
	for elapsed > 0 {
		step := elapsed
		if step > maxStep {
			step = maxStep
		}
		elapsed -= step
		c.step(step.Seconds(), tau.Seconds())
	}
}

func (c *Channel) step(dt, tau float64) {
	if c.Stopped {
		c.Gain = 0
	} else {
		e := float64(c.TargetCPS) - c.CurrentCPS
		c.SetpointError = e
		c.Integrator += e * dt
		// derivative through a first-order filter with coefficient Kn.
		var d float64
		if c.Kn > 0 {
			d = float64(c.Kn) * (float64(c.Kd)*e - c.Filter)
			c.Filter += d * dt
		}
		c.Gain = float64(c.Kp)*e + float64(c.Ki)*c.Integrator + d
	}
	if tau <= 0 {
		c.CurrentCPS = c.Gain
	} else {
		c.CurrentCPS += (c.Gain - c.CurrentCPS) * math.Min(dt/tau, 1)
	}
}

func (c *Channel) reset() {
	c.Integrator, c.Filter, c.Gain, c.SetpointError = 0, 0, 0, 0
}
