package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kdimtricp/instasave/internal/apperr"
	"github.com/kdimtricp/instasave/internal/database"
	"github.com/kdimtricp/instasave/internal/logger"
	"github.com/kdimtricp/instasave/internal/models"
	"github.com/kdimtricp/instasave/internal/processing"
	"github.com/kdimtricp/instasave/internal/ratelimit"
	"github.com/kdimtricp/instasave/internal/storage"
	"github.com/kdimtricp/instasave/internal/validation"
)

type ReelRepository interface {
	FindByID(ctx context.Context, id string) (*models.Reel, error)
	FindByURL(ctx context.Context, url string) (*models.Reel, error)
	List(ctx context.Context) ([]models.Reel, error)
	Search(ctx context.Context, query string) ([]models.Reel, error)
	Delete(ctx context.Context, id string) error
}

type TopicRepository interface {
	Counts(ctx context.Context) ([]database.TopicCount, error)
	ReelsWithTopic(ctx context.Context, topic string) ([]models.Reel, error)
}

type ReelAnalyzer interface {
	AnalyzeURL(ctx context.Context, url, collection string) (*models.Reel, bool, error)
	AnalyzeUpload(ctx context.Context, file io.Reader, info storage.FileInfo) (*processing.Result, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Reels         ReelRepository
	Topics        TopicRepository
	Analyzer      ReelAnalyzer
	DB            Pinger
	Validator     *validation.Validator
	Limiter       *ratelimit.Limiter
	MaxUploadSize int64
	CORSOrigins   []string
	Log           *logger.Logger
}

const multipartOverhead = 1 << 20

var allowedUploadExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
}

type analyzeReelRequest struct {
	ReelURL    string `json:"reelUrl" validate:"required,http_url"`
	Collection string `json:"collection" validate:"omitempty,max=100"`
}

type analyzeResponse struct {
	Summary    string   `json:"summary"`
	Topics     []string `json:"topics"`
	Transcript string   `json:"transcript"`
}

func (app *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if app.DB != nil {
		if err := app.DB.Ping(r.Context()); err != nil {
			app.Log.WithRequest(r).WithField("error", err.Error()).Error("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (app *App) AnalyzeReelHandler(w http.ResponseWriter, r *http.Request) {
	var req analyzeReelRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		app.writeError(w, r, apperr.Validation("Invalid request body").WithCause(err), "")
		return
	}
	req.ReelURL = strings.TrimSpace(req.ReelURL)
	if err := app.Validator.Validate(req); err != nil {
		app.writeError(w, r, err, "")
		return
	}

	// The pipeline runs to completion even if the client goes away, so the
	// result is still stored for the next request.
	ctx := context.WithoutCancel(r.Context())
	reel, cached, err := app.Analyzer.AnalyzeURL(ctx, req.ReelURL, req.Collection)
	if err != nil {
		app.writeError(w, r, err, "Failed to analyze reel")
		return
	}

	if cached {
		w.Header().Set("X-Reel-Cache", "HIT")
	} else {
		w.Header().Set("X-Reel-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		Summary:    reel.Summary,
		Topics:     reel.Topics,
		Transcript: reel.Transcript,
	})
}

func (app *App) AnalyzeUploadHandler(w http.ResponseWriter, r *http.Request) {
	// The body limit leaves room for multipart boundaries and part headers;
	// the file itself is held to MaxUploadSize below.
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			app.writeError(w, r, apperr.Validation("File too large").WithCause(err), "")
			return
		}
		app.writeError(w, r, apperr.Validation("Missing video file").WithCause(err), "")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("video")
	if err != nil {
		app.writeError(w, r, apperr.Validation("Missing video file").WithCause(err), "")
		return
	}
	defer file.Close()

	if header.Size > app.MaxUploadSize {
		app.writeError(w, r, apperr.Validation("File too large"), "")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExtensions[ext] {
		app.writeError(w, r, apperr.Validation("Unsupported file type"), "")
		return
	}

	result, err := app.Analyzer.AnalyzeUpload(context.WithoutCancel(r.Context()), file, storage.FileInfo{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	})
	if err != nil {
		app.writeError(w, r, err, "Failed to analyze upload")
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Summary:    result.Summary,
		Topics:     result.Topics,
		Transcript: result.Transcript,
	})
}

// ListReelsHandler lists reels newest first. reelUrl selects an exact
// match, q searches text and topic filters by topic.
func (app *App) ListReelsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	ctx := r.Context()

	if query.Has("reelUrl") {
		reelURL := strings.TrimSpace(query.Get("reelUrl"))
		if !app.Validator.URL(reelURL) {
			app.writeError(w, r, apperr.Validation("Invalid query").WithDetails(map[string]string{
				"reelUrl": "must be a valid URL",
			}), "")
			return
		}

		reel, err := app.Reels.FindByURL(ctx, reelURL)
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusOK, []models.ReelSummary{})
			return
		}
		if err != nil {
			app.writeError(w, r, err, "Failed to load reels")
			return
		}
		writeJSON(w, http.StatusOK, []models.ReelSummary{reel.ToSummary()})
		return
	}

	var (
		reels []models.Reel
		err   error
	)
	switch {
	case strings.TrimSpace(query.Get("topic")) != "":
		reels, err = app.Topics.ReelsWithTopic(ctx, query.Get("topic"))
	case strings.TrimSpace(query.Get("q")) != "":
		reels, err = app.Reels.Search(ctx, query.Get("q"))
	default:
		reels, err = app.Reels.List(ctx)
	}
	if err != nil {
		app.writeError(w, r, err, "Failed to load reels")
		return
	}

	out := make([]models.ReelSummary, 0, len(reels))
	for i := range reels {
		out = append(out, reels[i].ToSummary())
	}
	writeJSON(w, http.StatusOK, out)
}

func (app *App) GetReelHandler(w http.ResponseWriter, r *http.Request) {
	reel, err := app.Reels.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		app.writeError(w, r, err, "Failed to load reel")
		return
	}
	writeJSON(w, http.StatusOK, reel)
}

func (app *App) DeleteReelHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := app.Reels.FindByID(r.Context(), id); err != nil {
		app.writeError(w, r, err, "Failed to delete reel")
		return
	}
	if err := app.Reels.Delete(r.Context(), id); err != nil {
		app.writeError(w, r, err, "Failed to delete reel")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (app *App) ListTopicsHandler(w http.ResponseWriter, r *http.Request) {
	counts, err := app.Topics.Counts(r.Context())
	if err != nil {
		app.writeError(w, r, err, "Failed to load topics")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
