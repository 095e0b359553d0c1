// Package carnet implements the vehicle cloud connection over HTTP.
package carnet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	corecarnet "github.com/evhome/carnet-hass/core/carnet"
	"github.com/evhome/carnet-hass/core/model"
	"github.com/evhome/carnet-hass/infra/logger"
)

// Config holds the HTTP client settings.
type Config struct {
	BaseURL        string `json:"base_url"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Client talks to the vehicle cloud REST API. It implements
// corecarnet.Connection.
type Client struct {
	cfg  Config
	http *http.Client
	log  logger.Logger

	mu    sync.Mutex
	token string
}

// New creates a Client. The session is established lazily via Login.
func New(cfg Config) *Client {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:  logger.New("carnet_client"),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Login authenticates with username and password and stores the session
// token.
func (c *Client) Login(ctx context.Context) error {
	body := map[string]string{
		"username": c.cfg.Username,
		"password": c.cfg.Password,
	}
	var tok tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &tok, false); err != nil {
		return err
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("%w: empty token", corecarnet.ErrUnauthorized)
	}
	c.mu.Lock()
	c.token = tok.AccessToken
	c.mu.Unlock()
	c.log.Infof("session established")
	return nil
}

// LoggedIn reports whether a session token is held.
func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

// Logout invalidates the session token server-side and locally.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, true)
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	return err
}

type wireVehicle struct {
	VIN           string     `json:"vin"`
	DeviceID      string     `json:"device_id"`
	Model         string     `json:"model"`
	ModelYear     string     `json:"model_year"`
	ModelImageURL string     `json:"model_image_url"`
	Status        wireStatus `json:"status"`
}

type wireStatus struct {
	BatteryLevel        *int       `json:"battery_level"`
	Charging            *bool      `json:"charging"`
	ChargingTimeLeftMin *int       `json:"charging_time_left_min"`
	ChargerMaxCurrentA  *int       `json:"charger_max_current_a"`
	ElectricRangeKM     *float64   `json:"electric_range_km"`
	CombustionRangeKM   *float64   `json:"combustion_range_km"`
	FuelLevel           *int       `json:"fuel_level"`
	OdometerKM          *float64   `json:"odometer_km"`
	ClimatisationOn     *bool      `json:"climatisation_on"`
	TargetTemperatureC  *float64   `json:"target_temperature_c"`
	WindowHeaterOn      *bool      `json:"window_heater_on"`
	ParkingLightsOn     *bool      `json:"parking_lights_on"`
	DoorsLocked         *bool      `json:"doors_locked"`
	TrunkLocked         *bool      `json:"trunk_locked"`
	ExternalPowerOn     *bool      `json:"external_power_on"`
	Latitude            *float64   `json:"latitude"`
	Longitude           *float64   `json:"longitude"`
	LastConnected       *time.Time `json:"last_connected"`
	ServiceInspectionKM *float64   `json:"service_inspection_km"`
}

// Update fetches the vehicle list with current status reports.
func (c *Client) Update(ctx context.Context) ([]model.Vehicle, error) {
	var wire []wireVehicle
	if err := c.do(ctx, http.MethodGet, "/vehicles", nil, &wire, true); err != nil {
		return nil, err
	}
	vehicles := make([]model.Vehicle, 0, len(wire))
	for _, w := range wire {
		vehicles = append(vehicles, w.toModel())
	}
	return vehicles, nil
}

func (w wireVehicle) toModel() model.Vehicle {
	v := model.Vehicle{
		VIN:           w.VIN,
		DeviceID:      w.DeviceID,
		Model:         w.Model,
		ModelYear:     w.ModelYear,
		ModelImageURL: w.ModelImageURL,
		Status: model.Status{
			BatteryLevel:        w.Status.BatteryLevel,
			Charging:            w.Status.Charging,
			ChargingTimeLeftMin: w.Status.ChargingTimeLeftMin,
			ChargerMaxCurrentA:  w.Status.ChargerMaxCurrentA,
			ElectricRangeKM:     w.Status.ElectricRangeKM,
			CombustionRangeKM:   w.Status.CombustionRangeKM,
			FuelLevel:           w.Status.FuelLevel,
			OdometerKM:          w.Status.OdometerKM,
			ClimatisationOn:     w.Status.ClimatisationOn,
			TargetTemperatureC:  w.Status.TargetTemperatureC,
			WindowHeaterOn:      w.Status.WindowHeaterOn,
			ParkingLightsOn:     w.Status.ParkingLightsOn,
			DoorsLocked:         w.Status.DoorsLocked,
			TrunkLocked:         w.Status.TrunkLocked,
			ExternalPowerOn:     w.Status.ExternalPowerOn,
			LastConnected:       w.Status.LastConnected,
			ServiceInspectionKM: w.Status.ServiceInspectionKM,
		},
	}
	if w.Status.Latitude != nil && w.Status.Longitude != nil {
		v.Status.Position = &model.Position{
			Latitude:  *w.Status.Latitude,
			Longitude: *w.Status.Longitude,
		}
	}
	return v
}

// RequestReport asks the backend to pull a fresh report from the vehicle.
func (c *Client) RequestReport(ctx context.Context, vin string) error {
	path := fmt.Sprintf("/vehicles/%s/report-request", vin)
	return c.do(ctx, http.MethodPost, path, nil, nil, true)
}

// SetChargerMaxCurrent sets the charger current limit on the telematics unit.
func (c *Client) SetChargerMaxCurrent(ctx context.Context, deviceID, current string) error {
	path := fmt.Sprintf("/devices/%s/charger/max-current", deviceID)
	return c.do(ctx, http.MethodPut, path, map[string]string{"max_current": current}, nil, true)
}

// SetTimerBasicSettings updates shared departure timer defaults.
func (c *Client) SetTimerBasicSettings(ctx context.Context, deviceID string, s corecarnet.TimerBasicSettings) error {
	path := fmt.Sprintf("/devices/%s/timers/basic-settings", deviceID)
	return c.do(ctx, http.MethodPut, path, s, nil, true)
}

// UpdateSchedule replaces one departure schedule slot.
func (c *Client) UpdateSchedule(ctx context.Context, deviceID string, s corecarnet.ScheduleUpdate) error {
	path := fmt.Sprintf("/devices/%s/timers/%d", deviceID, s.TimerID)
	return c.do(ctx, http.MethodPut, path, s, nil, true)
}

// UpdateProfile replaces one charging/climatisation profile.
func (c *Client) UpdateProfile(ctx context.Context, deviceID string, p corecarnet.ProfileUpdate) error {
	path := fmt.Sprintf("/devices/%s/profiles/%d", deviceID, p.ProfileID)
	return c.do(ctx, http.MethodPut, path, p, nil, true)
}

// do performs one request. A 401 response clears the held token so the next
// cycle re-authenticates.
func (c *Client) do(ctx context.Context, method, path string, in, out any, authed bool) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		c.mu.Lock()
		token := c.token
		c.mu.Unlock()
		if token == "" {
			return fmt.Errorf("%w: no session", corecarnet.ErrUnauthorized)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return fmt.Errorf("%w: %s %s", corecarnet.ErrUnauthorized, method, path)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", corecarnet.ErrNotFound, method, path)
	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("carnet: %s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("carnet: decode %s: %w", path, err)
		}
	}
	return nil
}
