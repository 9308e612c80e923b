package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/handspace/internal/app"
	"github.com/ayusman/handspace/internal/capture"
	"github.com/ayusman/handspace/internal/config"
	"github.com/ayusman/handspace/internal/detector"
	"github.com/ayusman/handspace/internal/server"
	"github.com/ayusman/handspace/internal/store"
	"github.com/ayusman/handspace/internal/tray"
)

var sphereColor = color.RGBA{R: 0x33, G: 0xcc, B: 0xff, A: 0xff}

func main() {
	fmt.Println("Handspace - 3D Hand Joint Tracking")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	a := app.New(app.Config{
		Session:    cfg.Session(),
		Detector:   newDetector(cfg),
		Store:      st,
		Tracker:    cfg.Tracker(),
		Rate:       cfg.DetectionRate,
		FPS:        cfg.FPS,
		Handedness: cfg.Handedness,
		Record:     cfg.Record,
		Source:     cfg.SourceName(),
	})

	joints, err := cfg.TrackedJoints()
	if err != nil {
		log.Fatalf("Invalid joints: %v", err)
	}
	if err := a.AttachSpheres(joints, cfg.SphereRadius, sphereColor); err != nil {
		log.Fatalf("Failed to attach spheres: %v", err)
	}

	if err := a.Start(); err != nil {
		if !errors.Is(err, capture.ErrDepthUnsupported) {
			log.Fatalf("Failed to start tracking: %v", err)
		}
		// Already reported; keep serving recordings.
	}
	defer a.Stop()

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
	})

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Addr)
		if err := srv.ListenAndServe(cfg.Addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if cfg.Tray {
		runTray(a, viewerURL(cfg.Addr))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Println("Shutting down")
}

// newDetector prefers MediaPipe and falls back to a detector that never
// finds a hand.
func newDetector(cfg config.Config) detector.Detector {
	mp, err := detector.NewMediaPipeDetector(cfg.Detector())
	if err == nil {
		log.Println("Using MediaPipe hand detection")
		return mp
	}
	log.Printf("MediaPipe not available (%v), using mock detector", err)
	return detector.NewMockDetector()
}

func runTray(a *app.App, url string) {
	t := tray.New(a.Rate())
	t.OnToggle(a.SetEnabled)
	t.OnRate(a.SetRate)
	t.OnViewer(func() { openBrowser(url) })

	updates, cancel := a.Subscribe()
	defer cancel()
	go func() {
		for u := range updates {
			t.SetHandVisible(u.HandVisible)
		}
	}()

	t.Run()
}

func viewerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		log.Printf("Unsupported platform: %s", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
