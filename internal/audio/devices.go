// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"
)

var ErrNoOutput = errors.New("device has no output channels")

// Seams for tests.
var (
	paLibInitialize           = portaudio.Initialize
	paLibTerminate            = portaudio.Terminate
	paDevicesFunc             = paDevices
	paDefaultOutputDeviceFunc = portaudio.DefaultOutputDevice
	paLibDevicesFunc          = portaudio.Devices
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any device operation and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// Device describes a host audio device.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// HostDevices returns every device PortAudio reports, indexed by ID.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		}
	}
	return devices, nil
}

// OutputDevice returns the output device with the given ID, or the system
// default for -1.
func OutputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == -1 {
		return paDefaultOutputDeviceFunc()
	}
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	if devices[deviceID].MaxOutputChannels <= 0 {
		return nil, fmt.Errorf("device %d: %w", deviceID, ErrNoOutput)
	}
	return devices[deviceID], nil
}

// ListDevices writes a description of every audio device to w.
func ListDevices(w io.Writer) error {
	devices, err := paDevicesFunc()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for i, device := range devices {
		inputChannels := device.MaxInputChannels
		outputChannels := device.MaxOutputChannels

		deviceType := ""
		if inputChannels > 0 && outputChannels > 0 {
			deviceType = "Input/Output"
		} else if inputChannels > 0 {
			deviceType = "Input"
		} else if outputChannels > 0 {
			deviceType = "Output"
		}

		fmt.Fprintf(w, "[%d] %s (%s)\n", i, device.Name, deviceType)
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", inputChannels, outputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			device.DefaultLowOutputLatency.Seconds()*1000,
			device.DefaultHighOutputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}

	return nil
}

func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}

// Preview plays the rendered output on the output device deviceID (-1 for
// the default) and blocks until playback finishes or ctx is cancelled.
// PortAudio must be initialized.
func (e *Engine) Preview(ctx context.Context, deviceID int) error {
	dev, err := OutputDevice(deviceID)
	if err != nil {
		return err
	}
	data := e.Audio()
	return play(ctx, dev, data, e.format.SampleRate, e.format.BlockSize)
}

func play(ctx context.Context, dev *portaudio.DeviceInfo, data [][]float64, sampleRate, framesPerBuffer int) error {
	params := portaudio.HighLatencyParameters(nil, dev)
	params.Output.Channels = Channels
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = framesPerBuffer

	out := make([]float32, framesPerBuffer*Channels)
	stream, err := portaudio.OpenStream(params, &out)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	total := 0
	if len(data) > 0 {
		total = len(data[0])
	}
	logger.Infof("previewing %d frames on %s", total, dev.Name)
	for start := 0; start < total; start += framesPerBuffer {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range framesPerBuffer {
			for c := range Channels {
				var v float64
				if start+i < total {
					v = data[c][start+i]
				}
				out[i*Channels+c] = float32(v)
			}
		}
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}
