package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Command names accepted by POST v3/devices/{name}/commands/{command}
const (
	CommandGetConfigurationValues = "getconfigurationvalues"
	CommandSetConfigurationValues = "setconfigurationvalues"
	CommandLockDoor               = "lockdoor"
	CommandUnlockDoor             = "unlockdoor"
	CommandReboot                 = "reboot"
	CommandUpdateFirmware         = "updatefirmware"
	CommandGetObjects             = "getobjects"
	CommandGetCredentials         = "getcredentials"
	CommandUpdateCredentials      = "updatecredentials"
)

// Command status values
const (
	CommandStatusQueued    = "Queued"
	CommandStatusExecuting = "Executing"
	CommandStatusSuccess   = "Success"
	CommandStatusFailure   = "Failure"
	CommandStatusTimedOut  = "TimedOut"
)

// CommandResponse state of a device command. Result is command specific and
// only present once the command has completed.
type CommandResponse struct {
	Id          string          `json:"Id"`
	DeviceName  string          `json:"DeviceName"`
	CommandName string          `json:"CommandName"`
	Status      string          `json:"Status"`
	Message     string          `json:"Message,omitempty"`
	Result      json.RawMessage `json:"Result,omitempty"`
	CreatedOn   *time.Time      `json:"CreatedOn,omitempty"`
	CompletedOn *time.Time      `json:"CompletedOn,omitempty"`
}

// IsComplete reports whether the command reached a final status
func (c *CommandResponse) IsComplete() bool {
	switch c.Status {
	case CommandStatusSuccess, CommandStatusFailure, CommandStatusTimedOut:
		return true
	}
	return false
}

// DecodeResult unmarshals Result into out.
func (c *CommandResponse) DecodeResult(out interface{}) error {
	if len(c.Result) == 0 || string(c.Result) == "null" {
		return fmt.Errorf("command %s (%s) has no result, status %s", c.Id, c.CommandName, c.Status)
	}
	if err := json.Unmarshal(c.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", c.CommandName, err)
	}
	return nil
}

// ConfigurationValues result of getconfigurationvalues
type ConfigurationValues struct {
	DeviceName string               `json:"DeviceName"`
	Values     []ConfigurationValue `json:"Values"`
}

// ConfigurationValue a single parameter/value pair
type ConfigurationValue struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// Map returns the values keyed by parameter name
func (c *ConfigurationValues) Map() map[string]string {
	m := make(map[string]string, len(c.Values))
	for _, v := range c.Values {
		m[v.Name] = v.Value
	}
	return m
}

// CredentialList access control credentials stored on a device
type CredentialList struct {
	DeviceName  string       `json:"DeviceName"`
	Credentials []Credential `json:"Credentials"`
}

// Credential a badge/PIN value and the user it belongs to
type Credential struct {
	Value    string `json:"Value"`
	Type     string `json:"Type,omitempty"`
	UserName string `json:"UserName,omitempty"`
}

// ObjectList result of getobjects: the tags currently inside the device
type ObjectList struct {
	DeviceName string      `json:"DeviceName"`
	Objects    []ObjectTag `json:"Objects"`
}

// ObjectTag an RFID tag read by a device
type ObjectTag struct {
	Epc      string     `json:"Epc"`
	Antenna  int        `json:"Antenna,omitempty"`
	ReadTime *time.Time `json:"ReadTime,omitempty"`
}

// command request bodies

// GetConfigurationValuesCommand body of getconfigurationvalues
type GetConfigurationValuesCommand struct {
	Parameters []string `json:"Parameters"`
}

// SetConfigurationValuesCommand body of setconfigurationvalues
type SetConfigurationValuesCommand struct {
	Values []ConfigurationValue `json:"Values"`
}

// DoorCommand body of lockdoor/unlockdoor; Duration in seconds, 0 = device default
type DoorCommand struct {
	Duration int `json:"Duration,omitempty"`
}

// UpdateFirmwareCommand body of updatefirmware
type UpdateFirmwareCommand struct {
	FirmwareUrl string `json:"FirmwareUrl"`
	Version     string `json:"Version,omitempty"`
}

// UpdateCredentialsCommand body of updatecredentials
type UpdateCredentialsCommand struct {
	Add    []Credential `json:"Add,omitempty"`
	Remove []string     `json:"Remove,omitempty"`
}
