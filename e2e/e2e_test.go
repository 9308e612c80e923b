package e2e

import (
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handspace/internal/app"
	"github.com/ayusman/handspace/internal/capture"
	"github.com/ayusman/handspace/internal/detector"
	"github.com/ayusman/handspace/internal/server"
	"github.com/ayusman/handspace/internal/store"
	"github.com/ayusman/handspace/internal/tracker"
)

const (
	replayFrames  = 6
	replayDepthMM = 1200
)

var cameraInfo = capture.CameraInfo{FX: 0.9, FY: 1.2, CX: 0.5, CY: 0.5}

// writeReplay records a flat RGB-D sequence at replayDepthMM.
func writeReplay(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	if err := capture.WriteCameraInfo(dir, cameraInfo); err != nil {
		t.Fatalf("WriteCameraInfo() error = %v", err)
	}

	for i := 0; i < replayFrames; i++ {
		c := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
		d := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV16U)
		d.SetTo(gocv.NewScalar(replayDepthMM, 0, 0, 0))

		err := capture.WriteReplayFrame(dir, i, c, d)
		c.Close()
		d.Close()
		if err != nil {
			t.Fatalf("WriteReplayFrame() error = %v", err)
		}
	}
	return dir
}

func getJSON(t *testing.T, client *http.Client, url string, v any) {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, http.StatusOK)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestE2E_ReplayRecording(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	dir := writeReplay(t)

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})

	cfg := app.DefaultConfig()
	cfg.Session = capture.NewReplaySession(dir, false)
	cfg.Detector = det
	cfg.Store = s
	cfg.Rate = tracker.EveryOtherFrame
	cfg.FPS = 100
	cfg.Record = true
	cfg.Source = "replay:" + dir
	a := app.New(cfg)

	joints := []detector.Joint{detector.Wrist, detector.IndexTip}
	if err := a.AttachSpheres(joints, 0.01, color.RGBA{B: 255, A: 255}); err != nil {
		t.Fatalf("AttachSpheres() error = %v", err)
	}

	updates, cancel := a.Subscribe()
	defer cancel()

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for i := 0; i < replayFrames; i++ {
		select {
		case u := <-updates:
			if len(u.Positions) != len(joints) {
				t.Errorf("frame %d: %d positions, want %d", i, len(u.Positions), len(joints))
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}
	a.Stop()

	if det.Calls() != replayFrames/2 {
		t.Errorf("detector called %d times, want %d", det.Calls(), replayFrames/2)
	}

	ts := httptest.NewServer(server.New(server.Config{Store: s, App: a}))
	defer ts.Close()
	client := ts.Client()

	var list struct {
		Recordings []struct {
			ID            string `json:"id"`
			Frames        int    `json:"frames"`
			DetectionRate int    `json:"detection_rate"`
			EndedAt       string `json:"ended_at"`
		} `json:"recordings"`
	}
	getJSON(t, client, ts.URL+"/api/recordings", &list)

	if len(list.Recordings) != 1 {
		t.Fatalf("got %d recordings, want 1", len(list.Recordings))
	}
	rec := list.Recordings[0]
	if rec.Frames != replayFrames || rec.DetectionRate != 2 || rec.EndedAt == "" {
		t.Errorf("recording = %+v", rec)
	}

	var samples struct {
		Samples []store.JointSample `json:"samples"`
	}
	getJSON(t, client, ts.URL+"/api/recordings/"+rec.ID+"/samples", &samples)

	if len(samples.Samples) != replayFrames*len(joints) {
		t.Fatalf("got %d samples, want %d", len(samples.Samples), replayFrames*len(joints))
	}

	cam, err := cameraInfo.Camera()
	if err != nil {
		t.Fatalf("Camera() error = %v", err)
	}
	hand := detector.OpenPalmLandmarks()
	screen, _ := hand.ScreenPosition(detector.Wrist)
	ray, _ := cam.Ray(screen)
	want := ray.At(float64(float32(replayDepthMM) / 1000))

	first := samples.Samples[0]
	if first.Joint != "wrist" {
		t.Fatalf("first sample joint = %s, want wrist", first.Joint)
	}
	const eps = 1e-9
	if abs(first.X-want.X()) > eps || abs(first.Y-want.Y()) > eps || abs(first.Z-want.Z()) > eps {
		t.Errorf("wrist = (%f, %f, %f), want %v", first.X, first.Y, first.Z, want)
	}
}

func TestE2E_DepthUnsupported(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	cfg := app.DefaultConfig()
	cfg.Session = capture.NewDeviceSession(capture.DeviceConfig{ColorID: 0, DepthID: capture.NoDevice})
	cfg.Detector = detector.NewMockDetector()
	a := app.New(cfg)

	if err := a.Start(); err == nil {
		a.Stop()
		t.Fatal("expected Start() to refuse a source without depth")
	}

	ts := httptest.NewServer(server.New(server.Config{App: a}))
	defer ts.Close()

	var health map[string]any
	getJSON(t, ts.Client(), ts.URL+"/api/health", &health)
	if health["tracking"] != false {
		t.Errorf("tracking = %v, want false", health["tracking"])
	}

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings", strings.NewReader(`{"detection_rate": "4"}`))
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("PUT /api/settings error = %v", err)
	}
	resp.Body.Close()
	if a.Rate() != tracker.EveryFourthFrame {
		t.Errorf("rate = %s, want %s", a.Rate(), tracker.EveryFourthFrame)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
