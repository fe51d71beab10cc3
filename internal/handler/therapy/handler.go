package therapy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sentio-ai/sentio/backend/internal/model/therapy"
	therapyservice "github.com/sentio-ai/sentio/backend/internal/service/therapy"
	"github.com/sentio-ai/sentio/backend/pkg/utils"
)

// maxUploadBytes bounds multipart request memory/file size (32 MiB).
const maxUploadBytes = 32 << 20

// TurnProcessor is the orchestrator surface the transport layer consumes.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, in therapyservice.TurnInput) (therapy.Response, error)
	FirstImpression(ctx context.Context, imagePath string) therapy.Impression
}

// Handler exposes the conversational endpoints.
type Handler struct {
	processor TurnProcessor
	dataDir   string
	audioDir  string
	logger    *log.Logger
}

// New creates the therapy handler. dataDir receives uploads and impression
// captures; audioDir is where synthesized clips live.
func New(processor TurnProcessor, dataDir, audioDir string, logger *log.Logger) *Handler {
	return &Handler{
		processor: processor,
		dataDir:   dataDir,
		audioDir:  audioDir,
		logger:    logger,
	}
}

// RegisterRoutes wires the endpoints onto the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/therapist/message", h.handleMessage)
	r.Post("/therapist/audio", h.handleAudio)
	r.Get("/therapist/audio/{name}", h.handleClip)
	r.Post("/user/impression", h.handleImpression)
}

type messageRequest struct {
	Message string `json:"message"`
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	response, err := h.processor.ProcessTurn(r.Context(), therapyservice.TurnInput{Text: req.Message})
	if err != nil {
		h.respondTurnError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, response)
}

func (h *Handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	audioFile, audioHeader, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer audioFile.Close()

	audioPath, err := h.saveUpload(audioFile, audioHeader.Filename)
	if err != nil {
		h.logger.Error("failed to save audio upload", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer os.Remove(audioPath)

	in := therapyservice.TurnInput{AudioPath: audioPath}

	if imageFile, imageHeader, err := r.FormFile("image"); err == nil {
		defer imageFile.Close()
		imagePath, err := h.saveUpload(imageFile, imageHeader.Filename)
		if err != nil {
			h.logger.Error("failed to save image upload", "error", err)
			utils.RespondError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}
		defer os.Remove(imagePath)
		in.ImagePath = imagePath
	}

	response, err := h.processor.ProcessTurn(r.Context(), in)
	if err != nil {
		h.respondTurnError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, response)
}

// handleClip streams a synthesized wav back to the client.
func (h *Handler) handleClip(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(chi.URLParam(r, "name"))
	if name == "." || name == "/" || !strings.HasSuffix(name, ".wav") {
		utils.RespondError(w, http.StatusBadRequest, "invalid clip name")
		return
	}

	path := filepath.Join(h.audioDir, name)
	f, err := os.Open(path)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "clip not found")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	if _, err := io.Copy(w, f); err != nil {
		h.logger.Warn("clip stream interrupted", "clip", name, "error", err)
	}
}

func (h *Handler) handleImpression(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	imageFile, _, err := r.FormFile("image")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer imageFile.Close()

	saveDir := filepath.Join(h.dataDir, "user", "first_impression")
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		h.logger.Error("failed to create impression dir", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	entries, _ := os.ReadDir(saveDir)
	path := filepath.Join(saveDir, fmt.Sprintf("image_%d.jpg", len(entries)+1))

	out, err := os.Create(path)
	if err != nil {
		h.logger.Error("failed to store impression image", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	if _, err := io.Copy(out, imageFile); err != nil {
		out.Close()
		utils.RespondError(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	out.Close()

	impression := h.processor.FirstImpression(r.Context(), path)
	utils.RespondJSON(w, http.StatusOK, impression)
}

// saveUpload copies a multipart part to a uniquely named temp file and
// returns its path.
func (h *Handler) saveUpload(file multipart.File, original string) (string, error) {
	dir := filepath.Join(h.dataDir, "tmp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	ext := filepath.Ext(original)
	path := filepath.Join(dir, fmt.Sprintf("upload_%s%s", uuid.NewString(), ext))

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// respondTurnError maps orchestration outcomes onto transport status codes.
func (h *Handler) respondTurnError(w http.ResponseWriter, err error) {
	var stageErr *therapyservice.StageError

	switch {
	case errors.Is(err, therapyservice.ErrNoQuery):
		utils.RespondError(w, http.StatusBadRequest, "no query provided")
	case errors.As(err, &stageErr):
		h.logger.Error("turn failed", "stage", stageErr.Stage, "error", stageErr.Err)
		utils.RespondError(w, http.StatusBadGateway, stageErr.Stage+" failed")
	default:
		h.logger.Error("turn failed", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
