package application

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"time"

	commonlogger "jetstream-go/common/logger"
	"jetstream-go/jetstream"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ApplicationPath is the v1.5 endpoint every action is sent to.
const ApplicationPath = "/v1.5/application/"

// ServiceClient calls the v1.5 application API. Calls are synchronous and
// issue exactly one HTTP request; only 200 counts as success.
type ServiceClient struct {
	httpClient *resty.Client
	accessKey  string
	logger     *zap.Logger
}

// NewServiceClient creates a v1.5 client. BaseURL and AccessKey are required.
func NewServiceClient(cfg jetstream.Config, logger *zap.Logger) (*ServiceClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = commonlogger.OrNop(logger)
	return &ServiceClient{
		httpClient: jetstream.NewHTTPClient(cfg, "application/xml"),
		accessKey:  cfg.AccessKey,
		logger:     logger,
	}, nil
}

// Do sends r and decodes the XML body into out when out is not nil.
func (c *ServiceClient) Do(r Request, out interface{}) error {
	return c.DoContext(context.Background(), r, out)
}

// DoContext is Do bound to ctx.
func (c *ServiceClient) DoContext(ctx context.Context, r Request, out interface{}) error {
	query, err := BuildQuery(c.accessKey, r)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Execute(r.Method(), ApplicationPath+"?"+query)
	if err != nil {
		// the transport error carries the request URL, access key included
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = jetstream.RedactURL(uerr.URL)
		}
		c.logger.Error("Jetstream v1.5 call failed",
			zap.String("action", r.Action()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call Jetstream action %s: %w", r.Action(), err)
	}

	if err := jetstream.CheckStatusOK(resp); err != nil {
		c.logger.Warn("Jetstream v1.5 returned error",
			zap.String("action", r.Action()),
			zap.Int("status_code", resp.StatusCode()),
		)
		return err
	}

	c.logger.Debug("Jetstream v1.5 call",
		zap.String("action", r.Action()),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)

	if out != nil && len(resp.Body()) > 0 {
		if err := xml.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", r.Action(), err)
		}
	}
	return nil
}

// ============================================
// Devices
// ============================================

func (c *ServiceClient) AddLogicalDevice(req AddLogicalDeviceRequest) error {
	return c.Do(req, nil)
}

func (c *ServiceClient) RemoveLogicalDevice(req RemoveLogicalDeviceRequest) error {
	return c.Do(req, nil)
}

func (c *ServiceClient) GetDevices() (*GetDevicesResponse, error) {
	var resp GetDevicesResponse
	if err := c.Do(GetDevicesRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ServiceClient) GetDeviceDefinitions() (*GetDeviceDefinitionsResponse, error) {
	var resp GetDeviceDefinitionsResponse
	if err := c.Do(GetDeviceDefinitionsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ============================================
// Policies
// ============================================

func (c *ServiceClient) AddPolicy(req AddPolicyRequest) (*AddPolicyResponse, error) {
	var resp AddPolicyResponse
	if err := c.Do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ServiceClient) RemovePolicy(req RemovePolicyRequest) error {
	return c.Do(req, nil)
}

func (c *ServiceClient) GetPolicies() (*GetPoliciesResponse, error) {
	var resp GetPoliciesResponse
	if err := c.Do(GetPoliciesRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ============================================
// Events
// ============================================

func (c *ServiceClient) GetEvents(req GetEventsRequest) (*GetEventsResponse, error) {
	var resp GetEventsResponse
	if err := c.Do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveEvents acknowledges events returned by GetEvents.
func (c *ServiceClient) RemoveEvents(req RemoveEventsRequest) error {
	return c.Do(req, nil)
}

// ============================================
// Device commands
// ============================================

func (c *ServiceClient) GetConfigValues(req GetConfigValuesCommandRequest) (*GetConfigValuesResponse, error) {
	var resp GetConfigValuesResponse
	if err := c.Do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ServiceClient) SetConfigValues(req SetConfigValuesCommandRequest) (*CommandResponse, error) {
	return c.command(req)
}

func (c *ServiceClient) GetEPCList(req GetEPCListCommandRequest) (*GetEPCListResponse, error) {
	var resp GetEPCListResponse
	if err := c.Do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ServiceClient) UpdateEPCList(req UpdateEPCListCommandRequest) (*CommandResponse, error) {
	return c.command(req)
}

func (c *ServiceClient) LockDoor(req LockDoorCommandRequest) (*CommandResponse, error) {
	return c.command(req)
}

func (c *ServiceClient) UnlockDoor(req UnlockDoorCommandRequest) (*CommandResponse, error) {
	return c.command(req)
}

// Reset restarts the device.
func (c *ServiceClient) Reset(req ResetCommandRequest) (*CommandResponse, error) {
	return c.command(req)
}

func (c *ServiceClient) UpdateFirmware(req UpdateFirmwareCommandRequest) (*CommandResponse, error) {
	return c.command(req)
}

func (c *ServiceClient) DeviceStatus(req DeviceStatusCommandRequest) (*DeviceStatusResponse, error) {
	var resp DeviceStatusResponse
	if err := c.Do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ServiceClient) command(req Request) (*CommandResponse, error) {
	var resp CommandResponse
	if err := c.Do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
