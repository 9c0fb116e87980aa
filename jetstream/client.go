package jetstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	commonlogger "jetstream-go/common/logger"
	"jetstream-go/jetstream/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// MaxEventLimit is the largest page GET v3/events serves.
const MaxEventLimit = 500

// Client calls the resource oriented v3 API. Every method takes a context and
// issues exactly one HTTP request; there is no retry.
type Client struct {
	httpClient *resty.Client
	accessKey  string
	logger     *zap.Logger
}

// NewClient creates a v3 client. BaseURL and AccessKey are required.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = commonlogger.OrNop(logger)
	return &Client{
		httpClient: NewHTTPClient(cfg, "application/json"),
		accessKey:  cfg.AccessKey,
		logger:     logger,
	}, nil
}

type call struct {
	method     string
	path       string
	pathParams map[string]string
	query      url.Values
	body       interface{}
	result     interface{}
}

func (c *Client) do(ctx context.Context, cl call) error {
	req := c.httpClient.R().
		SetContext(ctx).
		SetHeader("AccessKey", c.accessKey)
	if cl.pathParams != nil {
		req.SetPathParams(cl.pathParams)
	}
	if cl.query != nil {
		req.SetQueryParamsFromValues(cl.query)
	}
	if cl.body != nil {
		req.SetBody(cl.body)
	}

	start := time.Now()
	resp, err := req.Execute(cl.method, cl.path)
	if err != nil {
		c.logger.Error("Jetstream API call failed",
			zap.String("method", cl.method),
			zap.String("path", cl.path),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call Jetstream %s %s: %w", cl.method, cl.path, err)
	}

	if err := CheckResponse(resp); err != nil {
		c.logger.Warn("Jetstream API returned error",
			zap.String("method", cl.method),
			zap.String("path", cl.path),
			zap.Int("status_code", resp.StatusCode()),
		)
		return err
	}

	c.logger.Debug("Jetstream API call",
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)

	if cl.result != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), cl.result); err != nil {
			return fmt.Errorf("failed to decode %s %s response: %w", cl.method, cl.path, err)
		}
	}
	return nil
}

// ============================================
// Devices
// ============================================

// GetDevices lists every logical device on the account
func (c *Client) GetDevices(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device
	err := c.do(ctx, call{method: http.MethodGet, path: "/v3/devices", result: &devices})
	return devices, err
}

// GetDevice fetches one device by name. IsNotFound(err) is true when it does not exist.
func (c *Client) GetDevice(ctx context.Context, name string) (*models.Device, error) {
	if err := Require("name", name); err != nil {
		return nil, err
	}
	var device models.Device
	err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       "/v3/devices/{name}",
		pathParams: map[string]string{"name": name},
		result:     &device,
	})
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// AddDevice registers a logical device
func (c *Client) AddDevice(ctx context.Context, req models.AddDeviceRequest) (*models.Device, error) {
	if err := Require(
		"DeviceName", req.DeviceName,
		"SerialNumber", req.SerialNumber,
		"DeviceDefinition", req.DeviceDefinition,
	); err != nil {
		return nil, err
	}
	var device models.Device
	if err := c.do(ctx, call{method: http.MethodPost, path: "/v3/devices", body: req, result: &device}); err != nil {
		return nil, err
	}
	return &device, nil
}

// UpdateDevice changes the policy or region of a device
func (c *Client) UpdateDevice(ctx context.Context, name string, req models.UpdateDeviceRequest) (*models.Device, error) {
	if err := Require("name", name); err != nil {
		return nil, err
	}
	var device models.Device
	err := c.do(ctx, call{
		method:     http.MethodPut,
		path:       "/v3/devices/{name}",
		pathParams: map[string]string{"name": name},
		body:       req,
		result:     &device,
	})
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// RemoveDevice unregisters a logical device
func (c *Client) RemoveDevice(ctx context.Context, name string) error {
	if err := Require("name", name); err != nil {
		return err
	}
	return c.do(ctx, call{
		method:     http.MethodDelete,
		path:       "/v3/devices/{name}",
		pathParams: map[string]string{"name": name},
	})
}

// GetDeviceDefinitions lists the hardware models available to the account
func (c *Client) GetDeviceDefinitions(ctx context.Context) ([]models.DeviceDefinition, error) {
	var defs []models.DeviceDefinition
	err := c.do(ctx, call{method: http.MethodGet, path: "/v3/devicedefinitions", result: &defs})
	return defs, err
}

// ============================================
// Policies
// ============================================

func (c *Client) GetPolicies(ctx context.Context) ([]models.Policy, error) {
	var policies []models.Policy
	err := c.do(ctx, call{method: http.MethodGet, path: "/v3/policies", result: &policies})
	return policies, err
}

func (c *Client) GetPolicy(ctx context.Context, id string) (*models.Policy, error) {
	if err := Require("id", id); err != nil {
		return nil, err
	}
	var policy models.Policy
	err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       "/v3/policies/{id}",
		pathParams: map[string]string{"id": id},
		result:     &policy,
	})
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (c *Client) AddPolicy(ctx context.Context, req models.AddPolicyRequest) (*models.Policy, error) {
	if err := Require("Name", req.Name, "DeviceDefinitionId", req.DeviceDefinitionId); err != nil {
		return nil, err
	}
	var policy models.Policy
	if err := c.do(ctx, call{method: http.MethodPost, path: "/v3/policies", body: req, result: &policy}); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (c *Client) RemovePolicy(ctx context.Context, id string) error {
	if err := Require("id", id); err != nil {
		return err
	}
	return c.do(ctx, call{
		method:     http.MethodDelete,
		path:       "/v3/policies/{id}",
		pathParams: map[string]string{"id": id},
	})
}

// ============================================
// Aliases
// ============================================

// GetAliases lists aliases, restricted to one device when deviceName is set
func (c *Client) GetAliases(ctx context.Context, deviceName string) ([]models.Alias, error) {
	var query url.Values
	if deviceName != "" {
		query = url.Values{"deviceName": {deviceName}}
	}
	var aliases []models.Alias
	err := c.do(ctx, call{method: http.MethodGet, path: "/v3/aliases", query: query, result: &aliases})
	return aliases, err
}

func (c *Client) AddAlias(ctx context.Context, req models.AddAliasRequest) (*models.Alias, error) {
	if err := Require("DeviceName", req.DeviceName, "Name", req.Name, "Value", req.Value); err != nil {
		return nil, err
	}
	var alias models.Alias
	if err := c.do(ctx, call{method: http.MethodPost, path: "/v3/aliases", body: req, result: &alias}); err != nil {
		return nil, err
	}
	return &alias, nil
}

func (c *Client) UpdateAlias(ctx context.Context, id string, req models.UpdateAliasRequest) (*models.Alias, error) {
	if err := Require("id", id, "Value", req.Value); err != nil {
		return nil, err
	}
	var alias models.Alias
	err := c.do(ctx, call{
		method:     http.MethodPut,
		path:       "/v3/aliases/{id}",
		pathParams: map[string]string{"id": id},
		body:       req,
		result:     &alias,
	})
	if err != nil {
		return nil, err
	}
	return &alias, nil
}

func (c *Client) RemoveAlias(ctx context.Context, id string) error {
	if err := Require("id", id); err != nil {
		return err
	}
	return c.do(ctx, call{
		method:     http.MethodDelete,
		path:       "/v3/aliases/{id}",
		pathParams: map[string]string{"id": id},
	})
}

// ============================================
// Events
// ============================================

// GetEvents fetches up to limit pending events (1..MaxEventLimit, 0 lets the
// server choose). The events stay pending until RemoveEvents is called with
// the returned BatchId.
func (c *Client) GetEvents(ctx context.Context, limit int) (*models.EventBatch, error) {
	if limit < 0 || limit > MaxEventLimit {
		return nil, fmt.Errorf("jetstream: limit must be between 0 and %d, got %d", MaxEventLimit, limit)
	}
	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	batch := &models.EventBatch{}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/v3/events", query: query, result: batch}); err != nil {
		return nil, err
	}
	return batch, nil
}

// RemoveEvents acknowledges a batch returned by GetEvents
func (c *Client) RemoveEvents(ctx context.Context, batchID string) error {
	if err := Require("batchID", batchID); err != nil {
		return err
	}
	return c.do(ctx, call{
		method:     http.MethodDelete,
		path:       "/v3/events/{batchId}",
		pathParams: map[string]string{"batchId": batchID},
	})
}

// ============================================
// Commands
// ============================================

// SendCommand queues a command on a device. Most callers use the typed
// helpers below.
func (c *Client) SendCommand(ctx context.Context, deviceName, command string, body interface{}) (*models.CommandResponse, error) {
	if err := Require("deviceName", deviceName, "command", command); err != nil {
		return nil, err
	}
	if body == nil {
		body = struct{}{}
	}
	var resp models.CommandResponse
	err := c.do(ctx, call{
		method:     http.MethodPost,
		path:       "/v3/devices/{name}/commands/{command}",
		pathParams: map[string]string{"name": deviceName, "command": command},
		body:       body,
		result:     &resp,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCommand returns the current state of a command
func (c *Client) GetCommand(ctx context.Context, id string) (*models.CommandResponse, error) {
	if err := Require("id", id); err != nil {
		return nil, err
	}
	var resp models.CommandResponse
	err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       "/v3/commands/{id}",
		pathParams: map[string]string{"id": id},
		result:     &resp,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetConfigurationValues reads the named parameters from the device
func (c *Client) GetConfigurationValues(ctx context.Context, deviceName string, parameters []string) (*models.ConfigurationValues, error) {
	if len(parameters) == 0 {
		return nil, &ArgumentError{Field: "parameters"}
	}
	resp, err := c.SendCommand(ctx, deviceName, models.CommandGetConfigurationValues,
		models.GetConfigurationValuesCommand{Parameters: parameters})
	if err != nil {
		return nil, err
	}
	var values models.ConfigurationValues
	if err := resp.DecodeResult(&values); err != nil {
		return nil, err
	}
	return &values, nil
}

// SetConfigurationValues writes parameter values to the device
func (c *Client) SetConfigurationValues(ctx context.Context, deviceName string, values []models.ConfigurationValue) (*models.CommandResponse, error) {
	if len(values) == 0 {
		return nil, &ArgumentError{Field: "values"}
	}
	return c.SendCommand(ctx, deviceName, models.CommandSetConfigurationValues,
		models.SetConfigurationValuesCommand{Values: values})
}

// LockDoor locks the device door; seconds 0 uses the device default
func (c *Client) LockDoor(ctx context.Context, deviceName string, seconds int) (*models.CommandResponse, error) {
	return c.SendCommand(ctx, deviceName, models.CommandLockDoor, models.DoorCommand{Duration: seconds})
}

// UnlockDoor unlocks the device door; seconds 0 uses the device default
func (c *Client) UnlockDoor(ctx context.Context, deviceName string, seconds int) (*models.CommandResponse, error) {
	return c.SendCommand(ctx, deviceName, models.CommandUnlockDoor, models.DoorCommand{Duration: seconds})
}

func (c *Client) Reboot(ctx context.Context, deviceName string) (*models.CommandResponse, error) {
	return c.SendCommand(ctx, deviceName, models.CommandReboot, nil)
}

func (c *Client) UpdateFirmware(ctx context.Context, deviceName string, cmd models.UpdateFirmwareCommand) (*models.CommandResponse, error) {
	if err := Require("FirmwareUrl", cmd.FirmwareUrl); err != nil {
		return nil, err
	}
	return c.SendCommand(ctx, deviceName, models.CommandUpdateFirmware, cmd)
}

// GetObjects returns the tags currently inside the device
func (c *Client) GetObjects(ctx context.Context, deviceName string) (*models.ObjectList, error) {
	resp, err := c.SendCommand(ctx, deviceName, models.CommandGetObjects, nil)
	if err != nil {
		return nil, err
	}
	var objects models.ObjectList
	if err := resp.DecodeResult(&objects); err != nil {
		return nil, err
	}
	return &objects, nil
}

// GetCredentials returns the access control list stored on the device
func (c *Client) GetCredentials(ctx context.Context, deviceName string) (*models.CredentialList, error) {
	resp, err := c.SendCommand(ctx, deviceName, models.CommandGetCredentials, nil)
	if err != nil {
		return nil, err
	}
	var creds models.CredentialList
	if err := resp.DecodeResult(&creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// UpdateCredentials adds and removes credentials on the device
func (c *Client) UpdateCredentials(ctx context.Context, deviceName string, cmd models.UpdateCredentialsCommand) (*models.CommandResponse, error) {
	if len(cmd.Add) == 0 && len(cmd.Remove) == 0 {
		return nil, &ArgumentError{Field: "Add or Remove"}
	}
	return c.SendCommand(ctx, deviceName, models.CommandUpdateCredentials, cmd)
}
