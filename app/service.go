// Package app wires the configured components into a running service.
package app

import (
	"context"
	"fmt"

	"github.com/evhome/carnet-hass/config"
	"github.com/evhome/carnet-hass/core/coordinator"
	coremetrics "github.com/evhome/carnet-hass/core/metrics"
	"github.com/evhome/carnet-hass/core/services"
	"github.com/evhome/carnet-hass/core/store"
	infracarnet "github.com/evhome/carnet-hass/infra/carnet"
	"github.com/evhome/carnet-hass/infra/hass"
	"github.com/evhome/carnet-hass/infra/logger"
	inframetrics "github.com/evhome/carnet-hass/infra/metrics"
	"github.com/evhome/carnet-hass/infra/mqtt"
)

// Service orchestrates the coordinator and the Home Assistant bridge.
type Service struct {
	Coordinator *coordinator.Coordinator
	Bridge      *hass.Bridge
	client      mqtt.Client
	log         logger.Logger
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	conn := infracarnet.New(cfg.Carnet)
	st := store.New(cfg.Entry.NamePolicy())
	coord := coordinator.New(conn, st, cfg.Entry.CoordinatorConfig(), sink, logger.New("coordinator"))
	svc := services.New(conn, sink, logger.New("services"))

	client, err := mqtt.NewPahoClient(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}
	bridge := hass.New(client, coord, svc, cfg.Entry.Vehicle, cfg.Bridge, logger.New("bridge"))

	return &Service{
		Coordinator: coord,
		Bridge:      bridge,
		client:      client,
		log:         logg,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

// Run logs in, performs the first refresh, announces the entities and then
// drives the periodic refresh loop until the context is cancelled. Login and
// first-refresh failures abort startup.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Coordinator.Login(ctx); err != nil {
		return fmt.Errorf("startup login: %w", err)
	}
	if err := s.Coordinator.RequestRefresh(ctx); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}
	if err := s.Bridge.Start(); err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	if s.promPort != "" {
		go func() {
			if err := inframetrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	s.log.Infof("entities announced, entering refresh loop")
	return s.Coordinator.Run(ctx)
}

// Close releases resources held by the service. Logout is best effort.
func (s *Service) Close() error {
	s.Bridge.Close()
	s.Coordinator.Logout(context.Background())
	s.client.Disconnect()
	return nil
}
