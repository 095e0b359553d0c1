// Package hass publishes vehicle state to Home Assistant over MQTT discovery
// and executes the command services arriving on the command topics.
package hass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evhome/carnet-hass/core/coordinator"
	"github.com/evhome/carnet-hass/core/entity"
	"github.com/evhome/carnet-hass/core/model"
	"github.com/evhome/carnet-hass/core/services"
	"github.com/evhome/carnet-hass/infra/logger"
	"github.com/evhome/carnet-hass/infra/mqtt"
)

// Config holds the bridge settings.
type Config struct {
	// TopicPrefix roots all state and command topics.
	TopicPrefix string `json:"topic_prefix"`
	// DiscoveryPrefix is Home Assistant's discovery root, usually
	// "homeassistant".
	DiscoveryPrefix string `json:"discovery_prefix"`
	// Resources restricts which attributes become entities. Empty means all
	// reported attributes.
	Resources []string `json:"resources"`
	// CommandTimeoutSeconds bounds one service dispatch.
	CommandTimeoutSeconds int `json:"command_timeout_seconds"`
}

func (c *Config) setDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "carnet"
	}
	if c.DiscoveryPrefix == "" {
		c.DiscoveryPrefix = "homeassistant"
	}
	if c.CommandTimeoutSeconds <= 0 {
		c.CommandTimeoutSeconds = 30
	}
}

// Bridge couples one coordinator to one MQTT broker. Entities are registered
// dynamically: an attribute first reported in a later cycle gets its
// discovery config published then.
type Bridge struct {
	client mqtt.Client
	coord  *coordinator.Coordinator
	svc    *services.Services
	cfg    Config
	log    logger.Logger
	vin    string
	topics topics

	mu         sync.Mutex
	registered map[string]*entity.Entity
	release    func()
}

// New creates a Bridge for the coordinator's configured vehicle.
func New(client mqtt.Client, coord *coordinator.Coordinator, svc *services.Services, vin string, cfg Config, log logger.Logger) *Bridge {
	cfg.setDefaults()
	return &Bridge{
		client:     client,
		coord:      coord,
		svc:        svc,
		cfg:        cfg,
		log:        log,
		vin:        vin,
		topics:     topics{prefix: cfg.TopicPrefix, vin: vin},
		registered: make(map[string]*entity.Entity),
	}
}

// Start registers the current entities, subscribes the command topics and
// begins mirroring refresh cycles to the broker. The store must hold a
// snapshot already, so call it after the first successful refresh.
func (b *Bridge) Start() error {
	if err := b.subscribeCommands(); err != nil {
		return err
	}
	b.sync()
	b.release = b.coord.Events().SubscribeFunc(func(ev coordinator.RefreshEvent) {
		if ev.Err != nil {
			b.publishAvailability(false)
			return
		}
		b.sync()
	})
	return nil
}

// Close announces the offline state and detaches from the coordinator.
func (b *Bridge) Close() {
	if b.release != nil {
		b.release()
	}
	b.publishAvailability(false)
}

// Entities returns the adapters registered so far.
func (b *Bridge) Entities() []*entity.Entity {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*entity.Entity, 0, len(b.registered))
	for _, e := range b.registered {
		out = append(out, e)
	}
	return out
}

// sync registers newly reported instruments and publishes the current state
// of every entity.
func (b *Bridge) sync() {
	snapshot := b.coord.Store().Snapshot()
	for idx := range snapshot {
		in := &snapshot[idx]
		if !b.allowed(in.Attribute) {
			continue
		}
		e := entity.New(b.coord.Store(), b.coord, in.Vehicle.VIN, in.Capability, in.Attribute)
		b.mu.Lock()
		_, known := b.registered[e.UniqueID()]
		if !known {
			b.registered[e.UniqueID()] = e
		}
		b.mu.Unlock()
		if !known {
			if err := b.publishDiscovery(e, *in); err != nil {
				b.log.Errorf("discovery %s: %v", e.UniqueID(), err)
			}
		}
	}

	b.publishAvailability(b.coord.LastUpdateSuccess())
	for _, e := range b.Entities() {
		b.publishState(e)
	}
}

// allowed applies the resource allowlist. An empty list admits everything.
func (b *Bridge) allowed(attribute string) bool {
	if len(b.cfg.Resources) == 0 {
		return true
	}
	for _, r := range b.cfg.Resources {
		if r == attribute {
			return true
		}
	}
	return false
}

func (b *Bridge) publishDiscovery(e *entity.Entity, in model.Instrument) error {
	name := b.coord.Store().VehicleName(in.Vehicle)
	payload, err := json.Marshal(newDiscoveryPayload(e, in, b.topics, name))
	if err != nil {
		return err
	}
	topic := discoveryTopic(b.cfg.DiscoveryPrefix, b.vin, e.Capability(), e.Attribute())
	return b.client.Publish(topic, payload, true)
}

func (b *Bridge) publishAvailability(online bool) {
	payload := "offline"
	if online {
		payload = "online"
	}
	if err := b.client.Publish(b.topics.availability(), []byte(payload), true); err != nil {
		b.log.Errorf("availability publish: %v", err)
	}
}

func (b *Bridge) publishState(e *entity.Entity) {
	in, ok := e.Instrument()
	if !ok {
		// Attribute dropped out of the report; HA shows it unavailable via
		// the availability topic, nothing to publish.
		return
	}
	state := formatState(in.State)
	if err := b.client.Publish(b.topics.state(e.Capability(), e.Attribute()), []byte(state), false); err != nil {
		b.log.Errorf("state publish %s: %v", e.UniqueID(), err)
		return
	}
	attrs := e.ExtraStateAttributes()
	if len(attrs) == 0 {
		return
	}
	payload, err := json.Marshal(attrs)
	if err != nil {
		b.log.Errorf("attributes encode %s: %v", e.UniqueID(), err)
		return
	}
	if err := b.client.Publish(b.topics.attributes(e.Capability(), e.Attribute()), payload, false); err != nil {
		b.log.Errorf("attributes publish %s: %v", e.UniqueID(), err)
	}
}

func formatState(state any) string {
	switch v := state.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "ON"
		}
		return "OFF"
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// commandResult is published on the result topic after every dispatch.
type commandResult struct {
	ID      string `json:"id"`
	Service string `json:"service"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (b *Bridge) subscribeCommands() error {
	handlers := map[string]func(context.Context, []byte) error{
		services.ServiceSetChargerMaxCurrent: func(ctx context.Context, payload []byte) error {
			var req services.ChargerMaxCurrentRequest
			if err := decodeStrict(payload, &req); err != nil {
				return err
			}
			return b.svc.SetChargerMaxCurrent(ctx, req)
		},
		services.ServiceSetTimerBasicSettings: func(ctx context.Context, payload []byte) error {
			var req services.TimerBasicSettingsRequest
			if err := decodeStrict(payload, &req); err != nil {
				return err
			}
			return b.svc.SetTimerBasicSettings(ctx, req)
		},
		services.ServiceUpdateSchedule: func(ctx context.Context, payload []byte) error {
			var req services.ScheduleUpdateRequest
			if err := decodeStrict(payload, &req); err != nil {
				return err
			}
			return b.svc.UpdateSchedule(ctx, req)
		},
		services.ServiceUpdateProfile: func(ctx context.Context, payload []byte) error {
			var req services.ProfileUpdateRequest
			if err := decodeStrict(payload, &req); err != nil {
				return err
			}
			return b.svc.UpdateProfile(ctx, req)
		},
	}

	for service, handle := range handlers {
		service, handle := service, handle
		err := b.client.Subscribe(b.topics.command(service), func(_ string, payload []byte) {
			b.handleCommand(service, handle, payload)
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", service, err)
		}
	}
	return nil
}

// handleCommand runs one dispatch and reports the outcome on the result
// topic. A successful command triggers a refresh so entity state catches up
// with the backend.
func (b *Bridge) handleCommand(service string, handle func(context.Context, []byte) error, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(b.cfg.CommandTimeoutSeconds)*time.Second)
	defer cancel()

	result := commandResult{ID: uuid.NewString(), Service: service, Success: true}
	if err := handle(ctx, payload); err != nil {
		b.log.Warnf("service %s: %v", service, err)
		result.Success = false
		result.Error = err.Error()
	}

	raw, err := json.Marshal(result)
	if err == nil {
		if perr := b.client.Publish(b.topics.result(service), raw, false); perr != nil {
			b.log.Errorf("result publish %s: %v", service, perr)
		}
	}

	if result.Success {
		if err := b.coord.RequestRefresh(ctx); err != nil {
			b.log.Warnf("post-command refresh: %v", err)
		}
	}
}

// decodeStrict rejects payloads carrying fields outside the request schema.
func decodeStrict(payload []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	return nil
}
