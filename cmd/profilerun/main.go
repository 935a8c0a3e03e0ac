// Command profilerun solves a jerk-limited S-curve motion profile from
// flags and either prints its step-delta table or drives a real axis
// through a TMC2209 over UART and a GPIO step/dir pin pair.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/tarm/serial"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"scurve.dev/driver/tmc2209"
	"scurve.dev/motion"
	"scurve.dev/scurve"
	"scurve.dev/stepper"
)

var (
	v0    = flag.Float64("v0", 0, "entry velocity")
	v     = flag.Float64("v", 10, "velocity ceiling")
	a     = flag.Float64("a", 50, "acceleration ceiling")
	j     = flag.Float64("j", 500, "jerk ceiling")
	s     = flag.Float64("s", 20, "total displacement")
	t     = flag.Float64("t", 0, "total time target (0 disables)")
	alpha = flag.Float64("alpha", 200, "steps per unit of displacement")

	drive      = flag.Bool("drive", false, "pulse real hardware instead of printing the delta table")
	reverse    = flag.Bool("reverse", false, "run the profile in the backward direction")
	uartDev    = flag.String("uart", "/dev/ttyAMA0", "TMC2209 UART device")
	uartBaud   = flag.Int("baud", 115200, "TMC2209 UART baud rate")
	uartAddr   = flag.Int("addr", 0, "TMC2209 UART slave address")
	sense      = flag.Int("sense", 110, "sense resistor value in milliohm")
	runCurrent = flag.Int("current", 800, "run current in mA")
	stallThr   = flag.Int("stallthreshold", 0, "StallGuard sensitivity threshold")
	stepPin    = flag.String("steppin", "GPIO20", "STEP GPIO pin name")
	dirPin     = flag.String("dirpin", "GPIO21", "DIR GPIO pin name")
	sharedUART = flag.Bool("shared-uart", false, "raise SENDDELAY before configuring, for a bus with multiple TMC2209s")
)

func main() {
	flag.Parse()
	if err := run(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "profilerun: %v\n", err)
		os.Exit(2)
	}
}

func run(stdout io.Writer) error {
	req := motion.Request{V0: *v0, V: *v, A: *a, J: *j, S: *s, T: *t}
	opts := scurve.NewOptions()
	profile, err := scurve.Solve(req, *alpha, opts)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	log.Printf("profilerun: %s profile, %d steps, %.4fs total, peak v=%.3f peak a=%.3f",
		profile.Kind(), profile.StepCount(), profile.TotalTime(), profile.PeakVelocity(), profile.PeakAcceleration())

	if !*drive {
		return printDeltas(stdout, profile)
	}
	return driveProfile(profile)
}

func printDeltas(stdout io.Writer, profile *scurve.Profile) error {
	for i, d := range profile.Deltas() {
		if _, err := fmt.Fprintf(stdout, "%d\t%.9f\n", i, d); err != nil {
			return err
		}
	}
	return nil
}

func driveProfile(profile *scurve.Profile) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("host init: %w", err)
	}
	step := gpioreg.ByName(*stepPin)
	if step == nil {
		return fmt.Errorf("no such GPIO pin: %s", *stepPin)
	}
	dir := gpioreg.ByName(*dirPin)
	if dir == nil {
		return fmt.Errorf("no such GPIO pin: %s", *dirPin)
	}
	if err := step.Out(gpio.Low); err != nil {
		return fmt.Errorf("init STEP pin: %w", err)
	}
	if err := dir.Out(gpio.Low); err != nil {
		return fmt.Errorf("init DIR pin: %w", err)
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        *uartDev,
		Baud:        *uartBaud,
		ReadTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("open uart: %w", err)
	}
	defer port.Close()

	dev := &tmc2209.Device{
		Bus:   port,
		Addr:  uint8(*uartAddr),
		Sense: *sense,
	}
	if *sharedUART {
		if err := dev.SetupSharedUART(); err != nil {
			return fmt.Errorf("setup shared uart: %w", err)
		}
	}
	if err := dev.Configure(); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	if err := dev.TuneForProfile(profile.PeakVelocity()*(*alpha), *runCurrent, *stallThr); err != nil {
		return fmt.Errorf("tune: %w", err)
	}
	time.Sleep(tmc2209.StandstillTuningPeriod)

	pinDev := &tmc2209.PinDevice{StepPin: step, DirPin: dir}
	driver := stepper.New(pinDev, nil)

	direction := stepper.Forward
	if *reverse {
		direction = stepper.Backward
	}
	diag := make(chan struct{})
	runErr := driver.Run(context.Background(), stepper.ModeRun, diag, direction, profile)
	logDiagnostics(dev)
	return runErr
}

// logDiagnostics reads back the driver's post-run status — error flags,
// StallGuard load, the measured step duration at standstill, and the
// PWM autotune result — and logs them for postmortem, regardless of
// whether the run itself succeeded.
func logDiagnostics(dev *tmc2209.Device) {
	if err := dev.Error(); err != nil {
		log.Printf("profilerun: driver reported an error: %v", err)
	}
	if load, err := dev.Load(); err != nil {
		log.Printf("profilerun: read StallGuard load: %v", err)
	} else {
		log.Printf("profilerun: StallGuard load=%d", load)
	}
	if dt, err := dev.StepDuration(); err != nil {
		log.Printf("profilerun: read step duration: %v", err)
	} else {
		log.Printf("profilerun: measured step duration=%s", dt)
	}
	if pwm, err := dev.PWMAuto(); err != nil {
		log.Printf("profilerun: read PWM autotune: %v", err)
	} else {
		log.Printf("profilerun: PWM_AUTO=%#x", pwm)
	}
}
