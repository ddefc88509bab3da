// SPDX-License-Identifier: MIT

// Package config holds the fixed parameters the interceptor starts with.
// There is no config file, no environment variable, and no CLI flag: every
// installation binds the same physical input device, the same synthetic
// output device, and the same loopback RPC address, so the values below
// are a compiled-in literal rather than something loaded at startup.
package config

// Config is the full set of fixed parameters wiring depends on.
type Config struct {
	// InputDeviceName is the exact evdev device name to grab, as reported
	// by the kernel for the 4x3 braille perkins-style keyboard.
	InputDeviceName string

	// OutputDeviceName is the name the synthetic uinput keyboard reports
	// itself under once created.
	OutputDeviceName string

	// RPCAddress is the loopback address the gRPC surface binds to.
	RPCAddress string

	// ChannelCapacity bounds the buffered channels used for subscription
	// delivery and device event intake.
	ChannelCapacity int
}

// Default returns the fixed configuration used by the single supported
// deployment of this interceptor.
func Default() Config {
	return Config{
		InputDeviceName:  "4x3braille",
		OutputDeviceName: "btspeak-key-interceptor",
		RPCAddress:       "127.0.0.1:54123",
		ChannelCapacity:  32,
	}
}
