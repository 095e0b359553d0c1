package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evhome/carnet-hass/config"
	"github.com/evhome/carnet-hass/core/services"
	infracarnet "github.com/evhome/carnet-hass/infra/carnet"
	"github.com/evhome/carnet-hass/infra/logger"
)

var invokePayload string

var invokeCmd = &cobra.Command{
	Use:   "invoke <service>",
	Short: "Invoke a command service directly against the vehicle cloud",
	Long: "Invoke one of the command services without a broker round-trip.\n" +
		"Services: set_charger_max_current, set_timer_basic_settings,\n" +
		"update_schedule, update_profile. The payload is strict JSON matching\n" +
		"the service schema.",
	Args: cobra.ExactArgs(1),
	RunE: invokeService,
}

func init() {
	invokeCmd.Flags().StringVarP(&invokePayload, "payload", "p", "{}", "JSON request payload")
	rootCmd.AddCommand(invokeCmd)
}

func invokeService(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetLevel(cfg.Logging.Level)

	conn := infracarnet.New(cfg.Carnet)
	if err := conn.Login(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer func() {
		if err := conn.Logout(ctx); err != nil {
			logger.New("invoke").Warnf("logout: %v", err)
		}
	}()

	svc := services.New(conn, nil, logger.New("invoke"))
	switch args[0] {
	case services.ServiceSetChargerMaxCurrent:
		var req services.ChargerMaxCurrentRequest
		if err := decodePayload(&req); err != nil {
			return err
		}
		return svc.SetChargerMaxCurrent(ctx, req)
	case services.ServiceSetTimerBasicSettings:
		var req services.TimerBasicSettingsRequest
		if err := decodePayload(&req); err != nil {
			return err
		}
		return svc.SetTimerBasicSettings(ctx, req)
	case services.ServiceUpdateSchedule:
		var req services.ScheduleUpdateRequest
		if err := decodePayload(&req); err != nil {
			return err
		}
		return svc.UpdateSchedule(ctx, req)
	case services.ServiceUpdateProfile:
		var req services.ProfileUpdateRequest
		if err := decodePayload(&req); err != nil {
			return err
		}
		return svc.UpdateProfile(ctx, req)
	default:
		return fmt.Errorf("unknown service %q", args[0])
	}
}

func decodePayload(out any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(invokePayload)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("payload: %w", err)
	}
	return nil
}
