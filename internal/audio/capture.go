// Package audio captures microphone input as fixed-size float32 frames.
package audio

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

// DeviceError means microphone access failed: no device, an out-of-range
// device index, or the host API refusing the stream.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("microphone unavailable: %v", e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Source produces audio frames. Start invokes onFrame once per captured
// frame until Stop is called. Implementations deliver frames in capture
// order on a single goroutine.
type Source interface {
	Start(onFrame func(frame []float32)) error
	Stop() error
}

// Capture is the portaudio-backed Source: mono float32 frames at the
// configured sample rate, framesPerBuffer samples each.
type Capture struct {
	sampleRate      int
	framesPerBuffer int
	deviceIndex     int
	logger          *log.Logger

	stream *portaudio.Stream
}

// NewCapture selects the input device by index; a negative index means the
// system default.
func NewCapture(sampleRate, framesPerBuffer, deviceIndex int, logger *log.Logger) *Capture {
	return &Capture{
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		deviceIndex:     deviceIndex,
		logger:          logger,
	}
}

func (c *Capture) Start(onFrame func(frame []float32)) error {
	if err := portaudio.Initialize(); err != nil {
		return &DeviceError{Err: err}
	}

	device, err := c.inputDevice()
	if err != nil {
		portaudio.Terminate()
		return &DeviceError{Err: err}
	}

	params := portaudio.LowLatencyParameters(device, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(c.sampleRate)
	params.FramesPerBuffer = c.framesPerBuffer

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		onFrame(in)
	})
	if err != nil {
		portaudio.Terminate()
		return &DeviceError{Err: fmt.Errorf("failed to open stream: %w", err)}
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return &DeviceError{Err: fmt.Errorf("failed to start stream: %w", err)}
	}

	c.stream = stream
	c.logger.Info("capturing", "device", device.Name, "rate", c.sampleRate, "frame", c.framesPerBuffer)

	return nil
}

// Stop tears the stream down. Calling it with no stream open is a no-op.
func (c *Capture) Stop() error {
	if c.stream == nil {
		return nil
	}

	err := c.stream.Stop()
	c.stream.Close()
	c.stream = nil
	portaudio.Terminate()
	return err
}

func (c *Capture) inputDevice() (*portaudio.DeviceInfo, error) {
	if c.deviceIndex < 0 {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	if c.deviceIndex >= len(devices) {
		return nil, fmt.Errorf("device index %d out of range", c.deviceIndex)
	}
	return devices[c.deviceIndex], nil
}

// DeviceInfo describes one input-capable device for the devices command.
type DeviceInfo struct {
	Index    int
	Name     string
	Channels int
}

// ListInputDevices enumerates devices that can capture audio.
func ListInputDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, &DeviceError{Err: err}
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, &DeviceError{Err: err}
	}

	var out []DeviceInfo
	for i, d := range devices {
		if d.MaxInputChannels > 0 {
			out = append(out, DeviceInfo{Index: i, Name: d.Name, Channels: d.MaxInputChannels})
		}
	}
	return out, nil
}
