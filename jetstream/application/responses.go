package application

import (
	"encoding/xml"
	"time"

	"jetstream-go/jetstream/models"
)

// ResponseNamespacePrefix is followed by the response element name,
// e.g. http://Jetstream.TersoSolutions.com/v1.5/GetDevicesResponse.
const ResponseNamespacePrefix = "http://Jetstream.TersoSolutions.com/v1.5/"

// ResponseNamespace returns the namespace of the named response element.
func ResponseNamespace(element string) string {
	return ResponseNamespacePrefix + element
}

// ============================================
// Devices
// ============================================

type GetDevicesResponse struct {
	XMLName xml.Name     `xml:"http://Jetstream.TersoSolutions.com/v1.5/GetDevicesResponse GetDevicesResponse"`
	Devices []DeviceInfo `xml:"DeviceList>Device"`
}

type DeviceInfo struct {
	LogicalDeviceId    string     `xml:"LogicalDeviceId,attr"`
	SerialNumber       string     `xml:"SerialNumber,attr"`
	DeviceDefinitionId string     `xml:"DeviceDefinitionId,attr"`
	Region             string     `xml:"Region,attr,omitempty"`
	PolicyId           string     `xml:"PolicyId,attr,omitempty"`
	PolicyName         string     `xml:"PolicyName,attr,omitempty"`
	Status             string     `xml:"Status,attr,omitempty"`
	LastHeartbeat      *time.Time `xml:"LastHeartbeat,attr,omitempty"`
}

// ToModel maps the v1.5 device onto the v3 shape.
func (d DeviceInfo) ToModel() models.Device {
	return models.Device{
		Name:             d.LogicalDeviceId,
		SerialNumber:     d.SerialNumber,
		DeviceDefinition: d.DeviceDefinitionId,
		Region:           d.Region,
		PolicyId:         d.PolicyId,
		PolicyName:       d.PolicyName,
		Status:           d.Status,
		LastHeartbeat:    d.LastHeartbeat,
	}
}

// ModelDevices converts every device in the response.
func (r *GetDevicesResponse) ModelDevices() []models.Device {
	out := make([]models.Device, 0, len(r.Devices))
	for _, d := range r.Devices {
		out = append(out, d.ToModel())
	}
	return out
}

type GetDeviceDefinitionsResponse struct {
	XMLName           xml.Name               `xml:"http://Jetstream.TersoSolutions.com/v1.5/GetDeviceDefinitionsResponse GetDeviceDefinitionsResponse"`
	DeviceDefinitions []DeviceDefinitionInfo `xml:"DeviceDefinitionList>DeviceDefinition"`
}

type DeviceDefinitionInfo struct {
	Id               string                `xml:"Id,attr"`
	Name             string                `xml:"Name,attr"`
	ConfigParameters []ConfigParameterInfo `xml:"ConfigParameterList>ConfigParameter"`
	Commands         []string              `xml:"CommandList>Command"`
}

type ConfigParameterInfo struct {
	Name         string `xml:"Name,attr"`
	DefaultValue string `xml:"DefaultValue,attr,omitempty"`
	Type         string `xml:"Type,attr,omitempty"`
	Validator    string `xml:"Validator,attr,omitempty"`
}

func (d DeviceDefinitionInfo) ToModel() models.DeviceDefinition {
	def := models.DeviceDefinition{Id: d.Id, Name: d.Name, Commands: d.Commands}
	for _, p := range d.ConfigParameters {
		def.ConfigurationParameters = append(def.ConfigurationParameters, models.ConfigurationParameter{
			Name:         p.Name,
			DefaultValue: p.DefaultValue,
			Type:         p.Type,
			Validator:    p.Validator,
		})
	}
	return def
}

// ============================================
// Policies
// ============================================

type GetPoliciesResponse struct {
	XMLName  xml.Name     `xml:"http://Jetstream.TersoSolutions.com/v1.5/GetPoliciesResponse GetPoliciesResponse"`
	Policies []PolicyInfo `xml:"PolicyList>Policy"`
}

type PolicyInfo struct {
	Id                 string          `xml:"Id,attr"`
	Name               string          `xml:"Name,attr"`
	DeviceDefinitionId string          `xml:"DeviceDefinitionId,attr"`
	Parameters         []ParameterInfo `xml:"ParameterList>Parameter"`
}

type ParameterInfo struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

func (p PolicyInfo) ToModel() models.Policy {
	policy := models.Policy{Id: p.Id, Name: p.Name, DeviceDefinitionId: p.DeviceDefinitionId}
	for _, param := range p.Parameters {
		policy.Parameters = append(policy.Parameters, models.PolicyParameter{Name: param.Name, Value: param.Value})
	}
	return policy
}

type AddPolicyResponse struct {
	XMLName  xml.Name `xml:"http://Jetstream.TersoSolutions.com/v1.5/AddPolicyResponse AddPolicyResponse"`
	PolicyId string   `xml:"PolicyId,attr"`
}

// ============================================
// Events
// ============================================

type GetEventsResponse struct {
	XMLName xml.Name  `xml:"http://Jetstream.TersoSolutions.com/v1.5/GetEventsResponse GetEventsResponse"`
	Events  EventList `xml:"EventList"`
}

// ============================================
// Commands
// ============================================

// CommandResponse is returned by every command that has no typed result.
type CommandResponse struct {
	XMLName         xml.Name `xml:"http://Jetstream.TersoSolutions.com/v1.5/CommandResponse CommandResponse"`
	CommandId       string   `xml:"CommandId,attr"`
	LogicalDeviceId string   `xml:"LogicalDeviceId,attr"`
	Status          string   `xml:"Status,attr,omitempty"`
	Message         string   `xml:"Message,omitempty"`
}

type GetConfigValuesResponse struct {
	XMLName         xml.Name      `xml:"http://Jetstream.TersoSolutions.com/v1.5/GetConfigValuesResponse GetConfigValuesResponse"`
	CommandId       string        `xml:"CommandId,attr,omitempty"`
	LogicalDeviceId string        `xml:"LogicalDeviceId,attr"`
	Values          []ConfigValue `xml:"ConfigValueList>ConfigValue"`
}

type ConfigValue struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

// Map returns the values keyed by parameter name.
func (r *GetConfigValuesResponse) Map() map[string]string {
	m := make(map[string]string, len(r.Values))
	for _, v := range r.Values {
		m[v.Name] = v.Value
	}
	return m
}

type GetEPCListResponse struct {
	XMLName         xml.Name `xml:"http://Jetstream.TersoSolutions.com/v1.5/GetEPCListResponse GetEPCListResponse"`
	CommandId       string   `xml:"CommandId,attr,omitempty"`
	LogicalDeviceId string   `xml:"LogicalDeviceId,attr"`
	EPCs            []string `xml:"EPCList>EPC"`
}

type DeviceStatusResponse struct {
	XMLName         xml.Name   `xml:"http://Jetstream.TersoSolutions.com/v1.5/DeviceStatusResponse DeviceStatusResponse"`
	CommandId       string     `xml:"CommandId,attr,omitempty"`
	LogicalDeviceId string     `xml:"LogicalDeviceId,attr"`
	Status          string     `xml:"Status,attr"`
	LastHeartbeat   *time.Time `xml:"LastHeartbeat,attr,omitempty"`
	DoorOpen        bool       `xml:"DoorOpen,attr,omitempty"`
	FirmwareVersion string     `xml:"FirmwareVersion,attr,omitempty"`
}
