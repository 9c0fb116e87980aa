// Package application is the v1.5 "application" API of Jetstream: one
// request type per action, encoded into the query string of
// <base>/v1.5/application/, with XML response bodies.
package application

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"jetstream-go/jetstream"
)

// Action names accepted by the v1.5 application endpoint.
const (
	ActionAddLogicalDevice       = "AddLogicalDevice"
	ActionRemoveLogicalDevice    = "RemoveLogicalDevice"
	ActionGetDevices             = "GetDevices"
	ActionGetDeviceDefinitions   = "GetDeviceDefinitions"
	ActionAddPolicy              = "AddPolicy"
	ActionRemovePolicy           = "RemovePolicy"
	ActionGetPolicies            = "GetPolicies"
	ActionGetEvents              = "GetEvents"
	ActionRemoveEvents           = "RemoveEvents"
	ActionGetConfigValuesCommand = "GetConfigValuesCommand"
	ActionSetConfigValuesCommand = "SetConfigValuesCommand"
	ActionGetEPCListCommand      = "GetEPCListCommand"
	ActionUpdateEPCListCommand   = "UpdateEPCListCommand"
	ActionLockDoorCommand        = "LockDoorCommand"
	ActionUnlockDoorCommand      = "UnlockDoorCommand"
	ActionResetCommand           = "ResetCommand"
	ActionUpdateFirmwareCommand  = "UpdateFirmwareCommand"
	ActionDeviceStatusCommand    = "DeviceStatusCommand"
)

const (
	// DefaultEventLimit is used when GetEventsRequest.Limit is zero.
	DefaultEventLimit = 100
	// MaxEventLimit caps GetEventsRequest.Limit.
	MaxEventLimit = 500
)

// Request is one v1.5 action with its parameters.
type Request interface {
	Action() string
	Method() string
	Validate() error
	Values() url.Values
}

// BuildQuery renders "action=<Action>&accesskey=<key>&<params>". Parameters
// follow in sorted key order so the same request always yields the same URL.
func BuildQuery(accessKey string, r Request) (string, error) {
	if r == nil {
		return "", &jetstream.ArgumentError{Field: "request"}
	}
	if err := jetstream.Require("accessKey", accessKey); err != nil {
		return "", err
	}
	if err := r.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("action=")
	b.WriteString(url.QueryEscape(r.Action()))
	b.WriteString("&accesskey=")
	b.WriteString(url.QueryEscape(accessKey))
	if params := r.Values().Encode(); params != "" {
		b.WriteByte('&')
		b.WriteString(params)
	}
	return b.String(), nil
}

func methodFor(action string) string {
	if strings.HasPrefix(action, "Get") {
		return http.MethodGet
	}
	return http.MethodPost
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}

// encodeConfigValues renders Name=Value pairs joined by ';', sorted by name.
func encodeConfigValues(values map[string]string) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+values[name])
	}
	return strings.Join(pairs, ";")
}

// checkConfigValues rejects names and values that would make the Name=Value;
// encoding ambiguous.
func checkConfigValues(field string, values map[string]string) error {
	for name, value := range values {
		if name == "" || strings.ContainsAny(name, ";=") || strings.ContainsRune(value, ';') {
			return fmt.Errorf("jetstream: %s entry %q contains a reserved character", field, name)
		}
	}
	return nil
}

func requireList(field string, items []string) error {
	if len(items) == 0 {
		return &jetstream.ArgumentError{Field: field}
	}
	return nil
}

// ============================================
// Devices
// ============================================

type AddLogicalDeviceRequest struct {
	LogicalDeviceId    string
	DeviceSerialNumber string
	DeviceDefinitionId string
	PolicyId           string // optional
}

func (r AddLogicalDeviceRequest) Action() string { return ActionAddLogicalDevice }
func (r AddLogicalDeviceRequest) Method() string { return methodFor(r.Action()) }

func (r AddLogicalDeviceRequest) Validate() error {
	return jetstream.Require(
		"LogicalDeviceId", r.LogicalDeviceId,
		"DeviceSerialNumber", r.DeviceSerialNumber,
		"DeviceDefinitionId", r.DeviceDefinitionId,
	)
}

func (r AddLogicalDeviceRequest) Values() url.Values {
	v := url.Values{
		"LogicalDeviceId":    {r.LogicalDeviceId},
		"DeviceSerialNumber": {r.DeviceSerialNumber},
		"DeviceDefinitionId": {r.DeviceDefinitionId},
	}
	if r.PolicyId != "" {
		v.Set("PolicyId", r.PolicyId)
	}
	return v
}

type RemoveLogicalDeviceRequest struct {
	LogicalDeviceId string
}

func (r RemoveLogicalDeviceRequest) Action() string { return ActionRemoveLogicalDevice }
func (r RemoveLogicalDeviceRequest) Method() string { return methodFor(r.Action()) }
func (r RemoveLogicalDeviceRequest) Validate() error {
	return jetstream.Require("LogicalDeviceId", r.LogicalDeviceId)
}
func (r RemoveLogicalDeviceRequest) Values() url.Values {
	return url.Values{"LogicalDeviceId": {r.LogicalDeviceId}}
}

type GetDevicesRequest struct{}

func (GetDevicesRequest) Action() string     { return ActionGetDevices }
func (GetDevicesRequest) Method() string     { return http.MethodGet }
func (GetDevicesRequest) Validate() error    { return nil }
func (GetDevicesRequest) Values() url.Values { return url.Values{} }

type GetDeviceDefinitionsRequest struct{}

func (GetDeviceDefinitionsRequest) Action() string     { return ActionGetDeviceDefinitions }
func (GetDeviceDefinitionsRequest) Method() string     { return http.MethodGet }
func (GetDeviceDefinitionsRequest) Validate() error    { return nil }
func (GetDeviceDefinitionsRequest) Values() url.Values { return url.Values{} }

// ============================================
// Policies
// ============================================

type AddPolicyRequest struct {
	Name               string
	DeviceDefinitionId string
	Parameters         map[string]string
}

func (r AddPolicyRequest) Action() string { return ActionAddPolicy }
func (r AddPolicyRequest) Method() string { return methodFor(r.Action()) }

func (r AddPolicyRequest) Validate() error {
	if err := jetstream.Require("Name", r.Name, "DeviceDefinitionId", r.DeviceDefinitionId); err != nil {
		return err
	}
	return checkConfigValues("Parameters", r.Parameters)
}

func (r AddPolicyRequest) Values() url.Values {
	v := url.Values{
		"Name":               {r.Name},
		"DeviceDefinitionId": {r.DeviceDefinitionId},
	}
	if len(r.Parameters) > 0 {
		v.Set("Parameters", encodeConfigValues(r.Parameters))
	}
	return v
}

type RemovePolicyRequest struct {
	PolicyId string
}

func (r RemovePolicyRequest) Action() string     { return ActionRemovePolicy }
func (r RemovePolicyRequest) Method() string     { return methodFor(r.Action()) }
func (r RemovePolicyRequest) Validate() error    { return jetstream.Require("PolicyId", r.PolicyId) }
func (r RemovePolicyRequest) Values() url.Values { return url.Values{"PolicyId": {r.PolicyId}} }

type GetPoliciesRequest struct{}

func (GetPoliciesRequest) Action() string     { return ActionGetPolicies }
func (GetPoliciesRequest) Method() string     { return http.MethodGet }
func (GetPoliciesRequest) Validate() error    { return nil }
func (GetPoliciesRequest) Values() url.Values { return url.Values{} }

// ============================================
// Events
// ============================================

// GetEventsRequest Limit 0 means DefaultEventLimit; values above
// MaxEventLimit are capped.
type GetEventsRequest struct {
	Limit int
}

func (r GetEventsRequest) Action() string  { return ActionGetEvents }
func (r GetEventsRequest) Method() string  { return http.MethodGet }
func (r GetEventsRequest) Validate() error { return nil }

// EffectiveLimit is the limit actually sent.
func (r GetEventsRequest) EffectiveLimit() int {
	switch {
	case r.Limit <= 0:
		return DefaultEventLimit
	case r.Limit > MaxEventLimit:
		return MaxEventLimit
	default:
		return r.Limit
	}
}

func (r GetEventsRequest) Values() url.Values {
	return url.Values{"Limit": {strconv.Itoa(r.EffectiveLimit())}}
}

// RemoveEventsRequest acknowledges events by id.
type RemoveEventsRequest struct {
	EventIds []string
}

func (r RemoveEventsRequest) Action() string     { return ActionRemoveEvents }
func (r RemoveEventsRequest) Method() string     { return methodFor(r.Action()) }
func (r RemoveEventsRequest) Validate() error    { return requireList("EventIds", r.EventIds) }
func (r RemoveEventsRequest) Values() url.Values { return url.Values{"EventIds": {joinList(r.EventIds)}} }

// ============================================
// Device commands
// ============================================

// deviceCommand carries the device every command is addressed to.
type deviceCommand struct {
	LogicalDeviceId string
}

func (c deviceCommand) validate() error {
	return jetstream.Require("LogicalDeviceId", c.LogicalDeviceId)
}

func (c deviceCommand) values() url.Values {
	return url.Values{"LogicalDeviceId": {c.LogicalDeviceId}}
}

type GetConfigValuesCommandRequest struct {
	LogicalDeviceId string
	Parameters      []string
}

func (r GetConfigValuesCommandRequest) Action() string { return ActionGetConfigValuesCommand }
func (r GetConfigValuesCommandRequest) Method() string { return methodFor(r.Action()) }

func (r GetConfigValuesCommandRequest) Validate() error {
	if err := (deviceCommand{r.LogicalDeviceId}).validate(); err != nil {
		return err
	}
	return requireList("Parameters", r.Parameters)
}

func (r GetConfigValuesCommandRequest) Values() url.Values {
	v := deviceCommand{r.LogicalDeviceId}.values()
	v.Set("Parameters", joinList(r.Parameters))
	return v
}

type SetConfigValuesCommandRequest struct {
	LogicalDeviceId string
	ConfigValues    map[string]string
}

func (r SetConfigValuesCommandRequest) Action() string { return ActionSetConfigValuesCommand }
func (r SetConfigValuesCommandRequest) Method() string { return methodFor(r.Action()) }

func (r SetConfigValuesCommandRequest) Validate() error {
	if err := (deviceCommand{r.LogicalDeviceId}).validate(); err != nil {
		return err
	}
	if len(r.ConfigValues) == 0 {
		return &jetstream.ArgumentError{Field: "Values"}
	}
	return checkConfigValues("Values", r.ConfigValues)
}

func (r SetConfigValuesCommandRequest) Values() url.Values {
	v := deviceCommand{r.LogicalDeviceId}.values()
	v.Set("Values", encodeConfigValues(r.ConfigValues))
	return v
}

type GetEPCListCommandRequest struct {
	LogicalDeviceId string
}

func (r GetEPCListCommandRequest) Action() string  { return ActionGetEPCListCommand }
func (r GetEPCListCommandRequest) Method() string  { return methodFor(r.Action()) }
func (r GetEPCListCommandRequest) Validate() error { return deviceCommand{r.LogicalDeviceId}.validate() }
func (r GetEPCListCommandRequest) Values() url.Values {
	return deviceCommand{r.LogicalDeviceId}.values()
}

// EPC list update modes
const (
	EPCListAdd     = "Add"
	EPCListRemove  = "Remove"
	EPCListReplace = "Replace"
)

// UpdateEPCListCommandRequest Type defaults to EPCListAdd.
type UpdateEPCListCommandRequest struct {
	LogicalDeviceId string
	Type            string
	EPCs            []string
}

func (r UpdateEPCListCommandRequest) Action() string { return ActionUpdateEPCListCommand }
func (r UpdateEPCListCommandRequest) Method() string { return methodFor(r.Action()) }

func (r UpdateEPCListCommandRequest) Validate() error {
	if err := (deviceCommand{r.LogicalDeviceId}).validate(); err != nil {
		return err
	}
	return requireList("EPCs", r.EPCs)
}

func (r UpdateEPCListCommandRequest) Values() url.Values {
	v := deviceCommand{r.LogicalDeviceId}.values()
	mode := r.Type
	if mode == "" {
		mode = EPCListAdd
	}
	v.Set("Type", mode)
	v.Set("EPCs", joinList(r.EPCs))
	return v
}

type LockDoorCommandRequest struct {
	LogicalDeviceId string
}

func (r LockDoorCommandRequest) Action() string  { return ActionLockDoorCommand }
func (r LockDoorCommandRequest) Method() string  { return methodFor(r.Action()) }
func (r LockDoorCommandRequest) Validate() error { return deviceCommand{r.LogicalDeviceId}.validate() }
func (r LockDoorCommandRequest) Values() url.Values {
	return deviceCommand{r.LogicalDeviceId}.values()
}

// UnlockDoorCommandRequest Duration in seconds, 0 keeps the device default.
type UnlockDoorCommandRequest struct {
	LogicalDeviceId string
	Duration        int
}

func (r UnlockDoorCommandRequest) Action() string  { return ActionUnlockDoorCommand }
func (r UnlockDoorCommandRequest) Method() string  { return methodFor(r.Action()) }
func (r UnlockDoorCommandRequest) Validate() error { return deviceCommand{r.LogicalDeviceId}.validate() }

func (r UnlockDoorCommandRequest) Values() url.Values {
	v := deviceCommand{r.LogicalDeviceId}.values()
	if r.Duration > 0 {
		v.Set("Duration", strconv.Itoa(r.Duration))
	}
	return v
}

type ResetCommandRequest struct {
	LogicalDeviceId string
}

func (r ResetCommandRequest) Action() string  { return ActionResetCommand }
func (r ResetCommandRequest) Method() string  { return methodFor(r.Action()) }
func (r ResetCommandRequest) Validate() error { return deviceCommand{r.LogicalDeviceId}.validate() }
func (r ResetCommandRequest) Values() url.Values {
	return deviceCommand{r.LogicalDeviceId}.values()
}

type UpdateFirmwareCommandRequest struct {
	LogicalDeviceId string
	FirmwareUrl     string
}

func (r UpdateFirmwareCommandRequest) Action() string { return ActionUpdateFirmwareCommand }
func (r UpdateFirmwareCommandRequest) Method() string { return methodFor(r.Action()) }

func (r UpdateFirmwareCommandRequest) Validate() error {
	return jetstream.Require("LogicalDeviceId", r.LogicalDeviceId, "FirmwareUrl", r.FirmwareUrl)
}

func (r UpdateFirmwareCommandRequest) Values() url.Values {
	v := deviceCommand{r.LogicalDeviceId}.values()
	v.Set("FirmwareUrl", r.FirmwareUrl)
	return v
}

type DeviceStatusCommandRequest struct {
	LogicalDeviceId string
}

func (r DeviceStatusCommandRequest) Action() string  { return ActionDeviceStatusCommand }
func (r DeviceStatusCommandRequest) Method() string  { return methodFor(r.Action()) }
func (r DeviceStatusCommandRequest) Validate() error { return deviceCommand{r.LogicalDeviceId}.validate() }
func (r DeviceStatusCommandRequest) Values() url.Values {
	return deviceCommand{r.LogicalDeviceId}.values()
}
