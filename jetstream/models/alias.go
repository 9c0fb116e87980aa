package models

// Alias application defined name/value pair attached to a device
type Alias struct {
	Id         string `json:"Id"`
	DeviceName string `json:"DeviceName"`
	Name       string `json:"Name"`
	Value      string `json:"Value"`
	Type       string `json:"Type,omitempty"`
}

// AddAliasRequest body of POST v3/aliases
type AddAliasRequest struct {
	DeviceName string `json:"DeviceName"`
	Name       string `json:"Name"`
	Value      string `json:"Value"`
	Type       string `json:"Type,omitempty"`
}

// UpdateAliasRequest body of PUT v3/aliases/{id}
type UpdateAliasRequest struct {
	Name  string `json:"Name,omitempty"`
	Value string `json:"Value"`
	Type  string `json:"Type,omitempty"`
}
