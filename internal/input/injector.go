package input

import (
	"github.com/go-vgo/robotgo"
)

// Injector is the raw device boundary. The real implementation drives
// robotgo; tests substitute a recorder.
type Injector interface {
	MoveMouse(x, y int)
	Click(button string)
	KeyDown(key string) error
	KeyUp(key string) error
	CursorPosition() (x, y int)
}

// RobotgoInjector forwards to the OS input facilities.
type RobotgoInjector struct{}

func (RobotgoInjector) MoveMouse(x, y int) {
	robotgo.MoveMouse(x, y)
}

func (RobotgoInjector) Click(button string) {
	robotgo.Click(button)
}

func (RobotgoInjector) KeyDown(key string) error {
	return robotgo.KeyDown(key)
}

func (RobotgoInjector) KeyUp(key string) error {
	return robotgo.KeyUp(key)
}

func (RobotgoInjector) CursorPosition() (int, int) {
	return robotgo.Location()
}
