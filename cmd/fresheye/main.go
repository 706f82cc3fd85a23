package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fresheye/fresheye/internal/api"
	"github.com/fresheye/fresheye/internal/capture"
	"github.com/fresheye/fresheye/internal/config"
	"github.com/fresheye/fresheye/internal/gateway"
	"github.com/fresheye/fresheye/internal/models"
	"github.com/fresheye/fresheye/internal/ocr"
	"github.com/fresheye/fresheye/internal/render"
	"github.com/fresheye/fresheye/internal/scan"
	"github.com/fresheye/fresheye/internal/sensor"
	"github.com/fresheye/fresheye/internal/storage"
)

func main() {
	cmd := flag.String("cmd", "dashboard", "Command: dashboard|scan|spoilage|sensors|history|profile|notifications")
	configPath := flag.String("config", "", "Path to the configuration file (default: FRESHEYE_CONFIG, then config.json)")
	serverFlag := flag.String("server", "", "Override backend base URL (e.g. http://192.168.1.20:5000)")
	sourceFlag := flag.String("source", "", "Capture source: file|camera|esp32")
	fileFlag := flag.String("file", "", "Image file to scan (with the file source)")
	shareFlag := flag.String("share", "", "Email a successful label scan result to this address")
	latestFlag := flag.Bool("latest", false, "Show the backend's latest spoilage prediction instead of scanning")
	watchFlag := flag.Bool("watch", false, "Keep printing sensor readings until interrupted")
	portFlag := flag.String("port", "", "Serial port for the backend's sensor reader")
	nameFlag := flag.String("name", "", "Profile name to save")
	emailFlag := flag.String("email", "", "Profile email to save")
	dietFlag := flag.String("diet", "", "Comma-separated dietary preferences to save")
	allergiesFlag := flag.String("allergies", "", "Comma-separated allergies to save")
	spoilageAlerts := flag.String("spoilage-alerts", "", "Toggle spoilage alerts: on|off")
	expiryReminders := flag.String("expiry-reminders", "", "Toggle expiry reminders: on|off")
	dailyReport := flag.String("daily-report", "", "Toggle the daily report: on|off")
	reportEmail := flag.String("report-email", "", "Delivery address for alerts and reports")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if *serverFlag != "" {
		cfg.Backend.URL = strings.TrimRight(*serverFlag, "/")
	}

	switch *cmd {
	case "dashboard":
		err = runDashboard(cfg)
	case "scan":
		err = scanLabel(cfg, *sourceFlag, *fileFlag, *shareFlag)
	case "spoilage":
		err = checkSpoilage(cfg, *sourceFlag, *fileFlag, *latestFlag)
	case "sensors":
		err = showSensors(cfg, *watchFlag, *portFlag)
	case "history":
		err = showHistory(cfg)
	case "profile":
		err = editProfile(cfg, *nameFlag, *emailFlag, *dietFlag, *allergiesFlag)
	case "notifications":
		err = editNotifications(cfg, *spoilageAlerts, *expiryReminders, *dailyReport, *reportEmail)
	default:
		fmt.Println("Unknown command:", *cmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

// runDashboard starts the gateway with everything wired: scan flows, history
// storage, the sensor monitor and the remote camera sources.
func runDashboard(cfg *config.Config) error {
	client, err := backendClient(cfg)
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	engine, err := ocr.NewEngine(cfg.OCR.Engine, cfg.OCR.ConfigPath)
	if err != nil {
		return fmt.Errorf("create text recognizer: %w", err)
	}
	// A recognizer that fails to load only breaks label scans; spoilage
	// checks and the sensor dashboard keep working.
	if err := engine.Load(context.Background()); err != nil {
		log.Printf("Warning: text recognizer unavailable, label scans will fail: %v", err)
	}

	fetcher, closeFeed, err := sensorFeed(cfg, client)
	if err != nil {
		return err
	}
	if closeFeed != nil {
		defer closeFeed()
	}
	monitor := sensor.NewMonitor(fetcher, cfg.SensorInterval())

	svc := scan.NewService(client, engine, store)
	g := gateway.New(svc, store, client, monitor, cfg.Gateway.Debug)
	g.RegisterSource(capture.NewCameraSource(cfg.Camera.Device, cfg.Camera.Grabber))
	g.RegisterSource(capture.NewESP32Source(client))
	return g.Start(cfg.Gateway.Port, cfg.Gateway.StaticDir)
}

// scanLabel runs one label scan and prints the nutrition breakdown. With
// -share the result is also mailed through the backend.
func scanLabel(cfg *config.Config, sourceName, file, share string) error {
	ctx := context.Background()
	client, err := backendClient(cfg)
	if err != nil {
		return err
	}

	engine, err := ocr.NewEngine(cfg.OCR.Engine, cfg.OCR.ConfigPath)
	if err != nil {
		return fmt.Errorf("create text recognizer: %w", err)
	}
	if err := engine.Load(ctx); err != nil {
		return fmt.Errorf("load text recognizer: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	svc := scan.NewService(client, engine, store)
	src, err := captureSource(cfg, client, sourceName, file)
	if err != nil {
		return err
	}
	if err := svc.SetNutritionSource(src); err != nil {
		return err
	}

	result, err := svc.ScanNutrition(ctx)
	if err != nil {
		return err
	}
	render.WriteNutrition(os.Stdout, result)

	if share != "" {
		if err := client.SendEmail(ctx, share, result); err != nil {
			return fmt.Errorf("share result: %w", err)
		}
		fmt.Println("Report sent to", share)
	}
	return nil
}

// checkSpoilage runs one freshness check and prints the verdict. With
// -latest the backend's most recent prediction is shown instead of
// capturing a new image.
func checkSpoilage(cfg *config.Config, sourceName, file string, latest bool) error {
	ctx := context.Background()
	client, err := backendClient(cfg)
	if err != nil {
		return err
	}

	if latest {
		result, err := client.LatestPrediction(ctx)
		if err != nil {
			return err
		}
		render.WriteSpoilage(os.Stdout, result)
		return nil
	}

	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	svc := scan.NewService(client, nil, store)
	src, err := captureSource(cfg, client, sourceName, file)
	if err != nil {
		return err
	}
	if err := svc.SetSpoilageSource(src); err != nil {
		return err
	}

	result, err := svc.ScanSpoilage(ctx)
	if err != nil {
		return err
	}
	render.WriteSpoilage(os.Stdout, result)
	return nil
}

// showSensors prints the current reading, or keeps printing with -watch.
func showSensors(cfg *config.Config, watch bool, port string) error {
	ctx := context.Background()
	client, err := backendClient(cfg)
	if err != nil {
		return err
	}

	if port != "" {
		if err := client.SetSerialPort(ctx, port); err != nil {
			return fmt.Errorf("set serial port: %w", err)
		}
		fmt.Println("Serial port set to", port)
	}

	fetcher, closeFeed, err := sensorFeed(cfg, client)
	if err != nil {
		return err
	}
	if closeFeed != nil {
		defer closeFeed()
	}

	if !watch {
		reading, err := fetcher.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("read sensors: %w", err)
		}
		render.WriteSensor(os.Stdout, reading)
		return nil
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		<-sigChan
		cancel()
	}()

	monitor := sensor.NewMonitor(fetcher, cfg.SensorInterval())
	monitor.Run(runCtx, func(reading models.SensorReading) {
		render.WriteSensor(os.Stdout, reading)
	})
	return nil
}

func showHistory(cfg *config.Config) error {
	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	records, err := store.RecentScans(context.Background(), 20)
	if err != nil {
		return err
	}
	render.WriteHistory(os.Stdout, records)
	return nil
}

// editProfile prints the stored profile. Any non-empty flag updates that
// field first.
func editProfile(cfg *config.Config, name, email, diet, allergies string) error {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	profile, err := store.Profile(ctx)
	if err != nil {
		return err
	}
	changed := false
	if name != "" {
		profile.Name = name
		changed = true
	}
	if email != "" {
		profile.Email = email
		changed = true
	}
	if diet != "" {
		profile.DietaryPreferences = splitList(diet)
		changed = true
	}
	if allergies != "" {
		profile.Allergies = splitList(allergies)
		changed = true
	}
	if changed {
		if err := store.SaveProfile(ctx, profile); err != nil {
			return err
		}
	}

	fmt.Println("Name:     ", profile.Name)
	fmt.Println("Email:    ", profile.Email)
	fmt.Println("Diet:     ", strings.Join(profile.DietaryPreferences, ", "))
	fmt.Println("Allergies:", strings.Join(profile.Allergies, ", "))
	return nil
}

// editNotifications prints the alert settings. Toggle flags accept on|off
// and leave the setting unchanged when empty.
func editNotifications(cfg *config.Config, spoilageAlerts, expiryReminders, dailyReport, email string) error {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	settings, err := store.NotificationSettings(ctx)
	if err != nil {
		return err
	}
	changed := false
	for _, toggle := range []struct {
		value  string
		target *bool
	}{
		{spoilageAlerts, &settings.SpoilageAlerts},
		{expiryReminders, &settings.ExpiryReminders},
		{dailyReport, &settings.DailyReport},
	} {
		if toggle.value == "" {
			continue
		}
		on, err := parseToggle(toggle.value)
		if err != nil {
			return err
		}
		*toggle.target = on
		changed = true
	}
	if email != "" {
		settings.Email = email
		changed = true
	}
	if changed {
		if err := store.SaveNotificationSettings(ctx, settings); err != nil {
			return err
		}
	}

	fmt.Println("Spoilage alerts: ", onOff(settings.SpoilageAlerts))
	fmt.Println("Expiry reminders:", onOff(settings.ExpiryReminders))
	fmt.Println("Daily report:    ", onOff(settings.DailyReport))
	fmt.Println("Email:           ", settings.Email)
	return nil
}

// ===== Helpers =====

func backendClient(cfg *config.Config) (*api.Client, error) {
	client, err := api.New(cfg.Backend.URL, &http.Client{Timeout: cfg.BackendTimeout()})
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}
	return client, nil
}

func captureSource(cfg *config.Config, client *api.Client, name, file string) (capture.Source, error) {
	switch name {
	case "", "file":
		if file == "" {
			return nil, fmt.Errorf("-file is required with the file source")
		}
		return capture.NewFileSource(file), nil
	case "camera":
		return capture.NewCameraSource(cfg.Camera.Device, cfg.Camera.Grabber), nil
	case "esp32":
		return capture.NewESP32Source(client), nil
	default:
		return nil, fmt.Errorf("unknown capture source %q", name)
	}
}

// sensorFeed builds the reading fetcher named by the configuration. The
// returned func, if any, must be called to release the feed.
func sensorFeed(cfg *config.Config, client *api.Client) (sensor.Fetcher, func(), error) {
	switch cfg.Sensor.Source {
	case "", "backend":
		return &sensor.BackendFetcher{API: client}, nil, nil
	case "nodemcu":
		return &sensor.NodeMCUFetcher{API: client}, nil, nil
	case "mqtt":
		feed, err := sensor.NewMQTTFeed(sensor.MQTTFeedConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to MQTT broker: %w", err)
		}
		return feed, feed.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown sensor source %q", cfg.Sensor.Source)
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseToggle(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid toggle %q: want on or off", s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
