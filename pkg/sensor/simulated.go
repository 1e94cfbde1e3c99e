package sensor

import "math"

// SimulatedSource sweeps both controllers around a circle in front of the
// operator, one step per Poll. Left and right are mirrored on the X axis.
type SimulatedSource struct {
	Radius   float64
	StepRads float64

	step int
}

func CreateSimulatedSource() *SimulatedSource {
	return &SimulatedSource{
		Radius:   200,
		StepRads: math.Pi / 100,
	}
}

func (s *SimulatedSource) Poll() (ControllerSample, ControllerSample) {
	theta := float64(s.step) * s.StepRads
	s.step++

	left := s.sampleAt(theta, -1)
	right := s.sampleAt(theta, 1)
	return left, right
}

func (s *SimulatedSource) sampleAt(theta float64, mirror float64) ControllerSample {
	half := theta / 2
	return ControllerSample{
		Position: Vector3{
			X: mirror * s.Radius * math.Cos(theta),
			Y: s.Radius * math.Sin(theta),
			Z: -300,
		},
		// Rotation about Y by theta.
		Rotation: Quaternion{
			W: math.Cos(half),
			I: 0,
			J: math.Sin(half),
			K: 0,
		},
		Joystick: Joystick{
			X: math.Sin(theta),
			Y: math.Cos(theta),
		},
		Trigger: (1 + math.Sin(theta)) / 2,
	}
}
