package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"time"

	_ "golang.org/x/image/bmp"

	"github.com/steadycam/steady/internal/landmarks"
	"github.com/steadycam/steady/internal/models"
	"github.com/steadycam/steady/internal/pipeline"
	"github.com/steadycam/steady/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("encoding health response", "error", err)
	}
}

// modelsHandler lists the landmark models the server resolves from its
// models directory, flagging which files are actually present.
func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	face := models.GetFaceModelPath(s.cfg.ModelsDir)
	body := models.GetBodyModelPath(s.cfg.ModelsDir)
	scene := models.GetSceneModelPath(s.cfg.ModelsDir)
	modelList := []ModelInfo{
		{Name: models.FaceLandmarks, Path: face, Kind: string(landmarks.KindFace), Present: fileExists(face)},
		{Name: models.BodyLandmarks, Path: body, Kind: string(landmarks.KindBody), Present: fileExists(body)},
		{Name: models.SceneFeatures, Path: scene, Kind: string(landmarks.KindLandscape), Present: fileExists(scene)},
	}

	response := ModelsResponse{Models: modelList, Count: len(modelList)}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("encoding models response", "error", err)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// alignImageHandler aligns one uploaded frame. The default response is
// a JSON summary; format=png returns the aligned frame itself.
func (s *Server) alignImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxBytes := s.cfg.MaxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > maxBytes {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}
	uploadSizeBytes.Observe(float64(header.Size))

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return
	}
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := s.aligner.AlignImage(r.Context(), img)
	duration := time.Since(start)

	if err != nil {
		alignRequestsTotal.WithLabelValues("image", "error").Inc()
		status := http.StatusInternalServerError
		if errors.Is(err, landmarks.ErrNoSubject) {
			status = http.StatusUnprocessableEntity
		}
		s.writeErrorResponse(w, "Alignment failed: "+err.Error(), status)
		return
	}

	alignRequestsTotal.WithLabelValues("image", "success").Inc()
	alignProcessingDuration.WithLabelValues("image").Observe(duration.Seconds())
	alignConfidence.WithLabelValues("image").Observe(res.Confidence)

	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}
	if format == "png" {
		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, res.Image); err != nil {
			s.logger.Error("encoding aligned frame", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	response := AlignResponse{Success: true, Result: summarize(res)}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("encoding align response", "error", err)
	}
}

// summarize flattens a pipeline result into the wire summary.
func summarize(res *pipeline.AlignResult) AlignResult {
	out := AlignResult{
		ContentKind: string(res.ContentKind),
		Confidence:  res.Confidence,
		Converged:   true,
		Matrix:      [6]float64{1, 0, 0, 0, 1, 0},
	}
	if res.Image != nil {
		b := res.Image.Bounds()
		out.Width, out.Height = b.Dx(), b.Dy()
	}
	if st := res.Stabilization; st != nil {
		out.Passes = len(st.Result.Passes)
		out.StopReason = string(st.Result.StopReason)
		out.FinalScore = st.Result.FinalScore.Value
		out.Converged = st.Result.Success
		m := st.Matrix
		out.Matrix = [6]float64{m.ScaleX, m.SkewX, m.TranslateX, m.SkewY, m.ScaleY, m.TranslateY}
	}
	if ls := res.Landscape; ls != nil {
		out.Passes = ls.Passes
		out.Converged = ls.Converged
		out.FinalScore = ls.Result.Reprojection.MeanError
	}
	return out
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := AlignResponse{Success: false, Error: message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("writing error response", "error", err)
	}
}
