package tmc2209

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"scurve.dev/stepper"
)

// PinDevice pulses a TMC2209's STEP pin, steering DIR first, directly
// from the host's GPIO. It implements stepper.Device.
type PinDevice struct {
	StepPin gpio.PinOut
	DirPin  gpio.PinOut

	lastDir gpio.Level
	primed  bool
}

// Step pulses StepPin high then low, first steering DirPin if it
// changed since the previous call.
func (p *PinDevice) Step(dir stepper.Direction) error {
	level := gpio.Low
	if dir == stepper.Forward {
		level = gpio.High
	}
	if !p.primed || level != p.lastDir {
		if err := p.DirPin.Out(level); err != nil {
			return fmt.Errorf("tmc2209: set DIR: %w", err)
		}
		p.lastDir = level
		p.primed = true
	}
	if err := p.StepPin.Out(gpio.High); err != nil {
		return fmt.Errorf("tmc2209: pulse STEP high: %w", err)
	}
	if err := p.StepPin.Out(gpio.Low); err != nil {
		return fmt.Errorf("tmc2209: pulse STEP low: %w", err)
	}
	return nil
}
