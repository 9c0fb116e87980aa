package models

import "time"

// Policy named set of configuration values applied to devices of one definition
type Policy struct {
	Id                 string            `json:"Id"`
	Name               string            `json:"Name"`
	DeviceDefinitionId string            `json:"DeviceDefinitionId"`
	Parameters         []PolicyParameter `json:"Parameters,omitempty"`
	CreatedOn          *time.Time        `json:"CreatedOn,omitempty"`
}

// PolicyParameter expected value of one configuration parameter
type PolicyParameter struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// AddPolicyRequest body of POST v3/policies
type AddPolicyRequest struct {
	Name               string            `json:"Name"`
	DeviceDefinitionId string            `json:"DeviceDefinitionId"`
	Parameters         []PolicyParameter `json:"Parameters"`
}

// Parameter returns the value of the named parameter.
func (p *Policy) Parameter(name string) (string, bool) {
	for _, param := range p.Parameters {
		if param.Name == name {
			return param.Value, true
		}
	}
	return "", false
}
