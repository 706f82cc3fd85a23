// Package gateway serves the browser shell: REST endpoints for the dashboard
// polls and a websocket for the interactive flows (scanning, history,
// profile, settings, email sharing). Sensor readings are pushed to every
// connected client as they arrive.
package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/fresheye/fresheye/internal/analysis"
	"github.com/fresheye/fresheye/internal/api"
	"github.com/fresheye/fresheye/internal/capture"
	"github.com/fresheye/fresheye/internal/models"
	"github.com/fresheye/fresheye/internal/scan"
	"github.com/fresheye/fresheye/internal/sensor"
	"github.com/fresheye/fresheye/internal/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, this should be more restrictive
	},
}

// client is one websocket connection. Writes are serialized because scan
// results and sensor broadcasts arrive from different goroutines.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type Gateway struct {
	scans     *scan.Service
	store     storage.Store
	backend   *api.Client
	monitor   *sensor.Monitor
	sources   map[string]capture.Source
	clients   sync.Map
	staticDir string
	debug     bool
}

func New(scans *scan.Service, store storage.Store, backend *api.Client, monitor *sensor.Monitor, debug bool) *Gateway {
	if debug {
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		log.Println("Debug logging enabled")
	}
	return &Gateway{
		scans:   scans,
		store:   store,
		backend: backend,
		monitor: monitor,
		sources: make(map[string]capture.Source),
		debug:   debug,
	}
}

// RegisterSource makes a capture source selectable from the shell by name.
func (g *Gateway) RegisterSource(src capture.Source) {
	g.sources[src.Name()] = src
}

// Handler builds the HTTP routing table.
func (g *Gateway) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", g.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/frame", g.handleFrame).Methods(http.MethodGet)
	r.HandleFunc("/api/sensor", g.handleSensor).Methods(http.MethodGet)
	r.HandleFunc("/api/history", g.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/ws", g.handleWebSocket)
	if g.staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(g.staticDir)))
	}
	return r
}

// Start serves until SIGINT or SIGTERM. The sensor monitor runs alongside
// the server and stops with it. staticDir, when set, is served at the root
// as the browser shell.
func (g *Gateway) Start(port, staticDir string) error {
	g.staticDir = staticDir

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if g.monitor != nil {
		go g.monitor.Run(ctx, func(reading models.SensorReading) {
			g.Broadcast("sensor_update", reading)
		})
	}

	srv := &http.Server{Addr: ":" + port, Handler: g.Handler()}
	go func() {
		log.Printf("Starting gateway on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gateway...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	defer conn.Close()

	clientID := uuid.New().String()
	c := &client{conn: conn}
	g.clients.Store(clientID, c)
	defer g.clients.Delete(clientID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg map[string]any
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Println("Error parsing message:", err)
			continue
		}

		g.handleMessage(c, msg)
	}
}

func (g *Gateway) handleMessage(c *client, message map[string]any) {
	messageType, ok := message["type"].(string)
	if !ok {
		g.sendError(c, "Invalid message format")
		return
	}

	data, _ := message["data"].(map[string]any)

	switch messageType {
	case "scan":
		// Scans block on OCR and the backend; run them off the read loop so
		// the connection stays responsive and the session guard does its job.
		go g.handleScan(c, data)
	case "get_history":
		g.handleGetHistory(c)
	case "get_profile":
		g.handleGetProfile(c)
	case "save_profile":
		g.handleSaveProfile(c, data)
	case "get_settings":
		g.handleGetSettings(c)
	case "save_settings":
		g.handleSaveSettings(c, data)
	case "send_email":
		g.handleSendEmail(c, data)
	case "get_sensor":
		reading := models.Disconnected()
		if g.monitor != nil {
			reading = g.monitor.Last()
		}
		g.sendMessage(c, "sensor_update", reading)
	default:
		g.sendError(c, "Unknown message type")
	}
}

func (g *Gateway) handleScan(c *client, data map[string]any) {
	kind, _ := data["kind"].(string)
	if kind == "" {
		kind = string(models.ScanNutrition)
	}

	src, err := g.scanSource(data)
	if err != nil {
		g.sendError(c, err.Error())
		return
	}

	ctx := context.Background()
	var result any
	switch models.ScanKind(kind) {
	case models.ScanNutrition:
		if err := g.scans.SetNutritionSource(src); err != nil {
			g.sendError(c, err.Error())
			return
		}
		result, err = g.scans.ScanNutrition(ctx)
	case models.ScanSpoilage:
		if err := g.scans.SetSpoilageSource(src); err != nil {
			g.sendError(c, err.Error())
			return
		}
		result, err = g.scans.ScanSpoilage(ctx)
	default:
		g.sendError(c, "Unknown scan kind: "+kind)
		return
	}
	if err != nil {
		g.sendError(c, err.Error())
		return
	}

	g.sendMessage(c, "scan_result", map[string]any{"kind": kind, "result": result})
}

// scanSource picks the capture source for a scan request: inline image bytes
// win, then a registered source by name.
func (g *Gateway) scanSource(data map[string]any) (capture.Source, error) {
	if imageStr, ok := data["image"].(string); ok && imageStr != "" {
		imageData, err := base64.StdEncoding.DecodeString(imageStr)
		if err != nil {
			return nil, errInvalidImage
		}
		return capture.NewMemorySource(imageData, "")
	}
	if name, ok := data["source"].(string); ok && name != "" {
		src, ok := g.sources[name]
		if !ok {
			return nil, errUnknownSource(name)
		}
		return src, nil
	}
	return nil, errNoImage
}

func (g *Gateway) handleGetHistory(c *client) {
	ctx := context.Background()
	records, err := g.store.RecentScans(ctx, 20)
	if err != nil {
		log.Printf("Error retrieving history: %v", err)
		g.sendError(c, "Failed to retrieve history")
		return
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfWeek := now.AddDate(0, 0, -int(now.Weekday()))
	startOfWeek = time.Date(startOfWeek.Year(), startOfWeek.Month(), startOfWeek.Day(), 0, 0, 0, 0, startOfWeek.Location())

	var dayTotal, weekTotal struct {
		Scans   int
		Spoiled int
	}

	for _, rec := range records {
		if !rec.CreatedAt.After(startOfWeek) {
			continue
		}
		spoiled := 0
		if rec.Kind == models.ScanSpoilage {
			var sp analysis.Spoilage
			if err := json.Unmarshal(rec.Result, &sp); err == nil && sp.Status == analysis.StatusSpoiled {
				spoiled = 1
			}
		}
		weekTotal.Scans++
		weekTotal.Spoiled += spoiled
		if rec.CreatedAt.After(startOfDay) {
			dayTotal.Scans++
			dayTotal.Spoiled += spoiled
		}
	}

	response := map[string]any{
		"items": records,
		"day_total": map[string]int{
			"scans":   dayTotal.Scans,
			"spoiled": dayTotal.Spoiled,
		},
		"week_total": map[string]int{
			"scans":   weekTotal.Scans,
			"spoiled": weekTotal.Spoiled,
		},
	}

	g.sendMessage(c, "history", response)
}

func (g *Gateway) handleGetProfile(c *client) {
	profile, err := g.store.Profile(context.Background())
	if err != nil {
		log.Printf("Error loading profile: %v", err)
		g.sendError(c, "Failed to load profile")
		return
	}
	g.sendMessage(c, "profile", profile)
}

func (g *Gateway) handleSaveProfile(c *client, data map[string]any) {
	var profile models.UserProfile
	if err := decodeData(data, &profile); err != nil {
		g.sendError(c, "Invalid profile data")
		return
	}
	if err := g.store.SaveProfile(context.Background(), &profile); err != nil {
		log.Printf("Error saving profile: %v", err)
		g.sendError(c, "Failed to save profile")
		return
	}
	g.sendMessage(c, "profile", &profile)
}

func (g *Gateway) handleGetSettings(c *client) {
	settings, err := g.store.NotificationSettings(context.Background())
	if err != nil {
		log.Printf("Error loading settings: %v", err)
		g.sendError(c, "Failed to load settings")
		return
	}
	g.sendMessage(c, "settings", settings)
}

func (g *Gateway) handleSaveSettings(c *client, data map[string]any) {
	var settings models.NotificationSettings
	if err := decodeData(data, &settings); err != nil {
		g.sendError(c, "Invalid settings data")
		return
	}
	if err := g.store.SaveNotificationSettings(context.Background(), &settings); err != nil {
		log.Printf("Error saving settings: %v", err)
		g.sendError(c, "Failed to save settings")
		return
	}
	g.sendMessage(c, "settings", &settings)
}

func (g *Gateway) handleSendEmail(c *client, data map[string]any) {
	email, _ := data["email"].(string)
	nutrition := g.scans.LastNutrition()
	if nutrition == nil {
		g.sendError(c, "No nutrition result to share yet")
		return
	}
	if err := g.backend.SendEmail(context.Background(), email, nutrition); err != nil {
		g.sendError(c, err.Error())
		return
	}
	g.sendMessage(c, "email_sent", map[string]string{"email": email})
}

// Broadcast pushes a message to every connected client.
func (g *Gateway) Broadcast(messageType string, data any) {
	msg := map[string]any{"type": messageType, "data": data}
	g.clients.Range(func(key, value any) bool {
		c, ok := value.(*client)
		if !ok {
			return true
		}
		if err := c.writeJSON(msg); err != nil {
			log.Printf("Error broadcasting to %v: %v", key, err)
		}
		return true
	})
}

func (g *Gateway) sendMessage(c *client, messageType string, data any) {
	msg := map[string]any{
		"type": messageType,
		"data": data,
	}
	if g.debug {
		log.Printf("Sending message - Type: %s, Data: %+v", messageType, data)
	}
	if err := c.writeJSON(msg); err != nil {
		log.Println("Error sending message:", err)
	}
}

func (g *Gateway) sendError(c *client, message string) {
	msg := map[string]any{
		"type":    "error",
		"message": message,
	}
	if err := c.writeJSON(msg); err != nil {
		log.Println("Error sending error message:", err)
	}
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleFrame proxies the newest remote camera frame so the shell has a
// same-origin preview URL. Caching is disabled; every poll must see the
// latest frame.
func (g *Gateway) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := g.backend.LatestFrame(r.Context())
	if err != nil {
		writeJSONError(w, err)
		return
	}
	w.Header().Set("Content-Type", frame.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(frame.Data)
}

func (g *Gateway) handleSensor(w http.ResponseWriter, r *http.Request) {
	reading := models.Disconnected()
	if g.monitor != nil {
		reading = g.monitor.Last()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reading)
}

func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := g.store.RecentScans(r.Context(), 20)
	if err != nil {
		writeJSONError(w, err)
		return
	}
	if records == nil {
		records = []*models.ScanRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func writeJSONError(w http.ResponseWriter, err error) {
	code := http.StatusBadGateway
	if se, ok := err.(*api.StatusError); ok {
		code = se.Code
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": err.Error()})
}

func decodeData(data map[string]any, v any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Shell-facing validation messages.
var (
	errInvalidImage = errors.New("Invalid image format")
	errNoImage      = errors.New("No image or capture source given")
)

func errUnknownSource(name string) error {
	return fmt.Errorf("Unknown capture source: %s", name)
}
