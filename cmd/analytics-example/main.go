// Command analytics-example walks through the analytics wrapper: anonymous
// capture, identify, alias, batch capture and reset.
//
// Set POSTHOG_API_KEY (and optionally POSTHOG_API_HOST) to send real events.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"kongflow/analytics-bridge/internal/config"
	"kongflow/analytics-bridge/internal/logger"
	"kongflow/analytics-bridge/internal/services/analytics"
)

func main() {
	log := logger.New("analytics-example")

	cfg, err := config.Load()
	if err != nil {
		log.Errorf("failed to load configuration: %v", err)
		os.Exit(1)
	}
	cfg.PostHog.InitStrategy = analytics.InitLazy

	service, err := analytics.NewClientWrapper(cfg.PostHog, analytics.WithLogger(log.Named("analytics")))
	if err != nil {
		log.Errorf("failed to create analytics wrapper: %v", err)
		os.Exit(1)
	}
	defer service.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Println("=== Device ===")
	fmt.Printf("device id:          %s\n", service.DeviceID())
	fmt.Printf("effective distinct: %s\n", service.EffectiveDistinctID())

	fmt.Println("\n=== Anonymous capture ===")
	if err := service.Capture(ctx, analytics.CaptureRequest{
		Event:      "app_opened",
		Anonymous:  true,
		Properties: map[string]interface{}{"version": "1.0.0"},
	}); err != nil {
		log.Warnf("capture failed: %v", err)
	} else {
		fmt.Println("✓ captured app_opened")
	}

	fmt.Println("\n=== Identify and alias ===")
	service.Identify("user-123")
	if err := service.Alias(ctx, "john.doe@example.com"); err != nil {
		log.Warnf("alias failed: %v", err)
	} else {
		fmt.Println("✓ aliased user-123")
	}

	fmt.Println("\n=== Batch capture ===")
	now := time.Now()
	err = service.CaptureBatch(ctx, []analytics.CaptureRequest{
		{Event: "project_created", Properties: map[string]interface{}{"template": "blank"}},
		{
			Event:     "subscription_started",
			Groups:    map[string]analytics.GroupID{"company": "acme"},
			Timestamp: &now,
		},
	})
	if err != nil {
		log.Warnf("batch failed: %v", err)
	} else {
		fmt.Println("✓ captured batch of 2")
	}

	fmt.Println("\n=== Reset ===")
	service.Reset()
	if _, ok := service.DistinctID(); !ok {
		fmt.Println("✓ distinct id cleared")
	}
}
