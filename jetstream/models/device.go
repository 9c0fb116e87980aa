// Package models provides the data structures exchanged with the Jetstream v3 API.
package models

import (
	"strings"
	"time"
)

// Device a logical device registered with the account
type Device struct {
	Name             string     `json:"Name"`
	SerialNumber     string     `json:"SerialNumber"`
	DeviceDefinition string     `json:"DeviceDefinition"`
	Region           string     `json:"Region,omitempty"`
	PolicyId         string     `json:"PolicyId,omitempty"`
	PolicyName       string     `json:"PolicyName,omitempty"`
	Status           string     `json:"Status,omitempty"`
	LastHeartbeat    *time.Time `json:"LastHeartbeat,omitempty"`
	Aliases          []Alias    `json:"Aliases,omitempty"`
}

// AddDeviceRequest body of POST v3/devices
type AddDeviceRequest struct {
	DeviceName       string `json:"DeviceName"`
	SerialNumber     string `json:"SerialNumber"`
	DeviceDefinition string `json:"DeviceDefinition"`
	Region           string `json:"Region,omitempty"`
	PolicyName       string `json:"PolicyName,omitempty"`
}

// UpdateDeviceRequest body of PUT v3/devices/{name}; empty fields are left unchanged
type UpdateDeviceRequest struct {
	PolicyName string `json:"PolicyName,omitempty"`
	Region     string `json:"Region,omitempty"`
}

// DeviceDefinition a hardware model Jetstream knows how to talk to
type DeviceDefinition struct {
	Id                      string                   `json:"Id"`
	Name                    string                   `json:"Name"`
	ConfigurationParameters []ConfigurationParameter `json:"ConfigurationParameters,omitempty"`
	Commands                []string                 `json:"Commands,omitempty"`
}

// ConfigurationParameter one tunable on a device definition
type ConfigurationParameter struct {
	Name         string `json:"Name"`
	DefaultValue string `json:"DefaultValue,omitempty"`
	Type         string `json:"Type,omitempty"`
	Validator    string `json:"Validator,omitempty"`
}

// SupportsCommand reports whether name is listed in Commands (case-insensitive).
func (d *DeviceDefinition) SupportsCommand(name string) bool {
	for _, c := range d.Commands {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}
