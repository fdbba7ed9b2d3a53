package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apimw "github.com/hszk-dev/gostream/internal/api/middleware"
	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/hszk-dev/gostream/internal/domain/repository"
	"github.com/hszk-dev/gostream/internal/usecase"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxMultipartMem = 32 << 20 // buffer this much of the multipart form in memory before spilling to temp files
)

// VideoResponse is the wire representation of a video, per spec.md §6.
type VideoResponse struct {
	PublicID    string   `json:"publicId"`
	Description string   `json:"description"`
	FileSize    int64    `json:"fileSize"`
	Status      string   `json:"status"`
	UploadDate  string   `json:"uploadDate"`
	Duration    *float64 `json:"duration,omitempty"`
}

// PagedVideoResponse is the paginated envelope for GET /api/videos.
type PagedVideoResponse struct {
	Videos     []VideoResponse `json:"videos"`
	Page       int             `json:"page"`
	Size       int             `json:"size"`
	TotalCount int64           `json:"totalCount"`
}

type updateDescriptionRequest struct {
	Description string `json:"description"`
}

type triggerProcessRequest struct {
	CutStartTime           *float64 `json:"cutStartTime"`
	CutEndTime             *float64 `json:"cutEndTime"`
	Mute                   bool     `json:"mute"`
	TargetResolutionHeight *int     `json:"targetResolutionHeight"`
}

// VideoHandler handles the video HTTP surface of spec.md §6.
type VideoHandler struct {
	svc usecase.VideoService
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(svc usecase.VideoService) *VideoHandler {
	return &VideoHandler{svc: svc}
}

// Upload handles POST /api/videos (multipart: file, description).
func (h *VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	principal, ok := apimw.PrincipalFromContext(r.Context())
	if !ok {
		WriteProblem(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMem); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "validation failed", "malformed multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "validation failed", "missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	video, err := h.svc.Upload(r.Context(), usecase.UploadVideoInput{
		OwnerID:     principal.UserID,
		Description: r.FormValue("description"),
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Data:        file,
	})
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, toVideoResponse(video))
}

// List handles GET /api/videos?page&size.
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := apimw.PrincipalFromContext(r.Context())
	if !ok {
		WriteProblem(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	page := parsePageParam(r, "page", 0)
	size := parsePageParam(r, "size", defaultPageSize)
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}

	result, err := h.svc.List(r.Context(), principal.Username, repository.Page{Number: page, Size: size})
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	videos := make([]VideoResponse, len(result.Videos))
	for i, v := range result.Videos {
		videos[i] = toVideoResponse(v)
	}

	JSON(w, http.StatusOK, PagedVideoResponse{
		Videos:     videos,
		Page:       result.Page.Number,
		Size:       result.Page.Size,
		TotalCount: result.TotalCount,
	})
}

// Get handles GET /api/videos/{publicId}.
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	publicID, principal, ok := h.resolveRequest(w, r)
	if !ok {
		return
	}

	video, err := h.svc.Get(r.Context(), publicID, principal.UserID)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, toVideoResponse(video))
}

// UpdateDescription handles PUT /api/videos/{publicId}.
func (h *VideoHandler) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	publicID, principal, ok := h.resolveRequest(w, r)
	if !ok {
		return
	}

	var req updateDescriptionRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "validation failed", "malformed JSON body")
		return
	}

	video, err := h.svc.UpdateDescription(r.Context(), publicID, principal.UserID, req.Description)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, toVideoResponse(video))
}

// TriggerProcess handles POST /api/videos/{publicId}/process.
func (h *VideoHandler) TriggerProcess(w http.ResponseWriter, r *http.Request) {
	publicID, principal, ok := h.resolveRequest(w, r)
	if !ok {
		return
	}

	var req triggerProcessRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "validation failed", "malformed JSON body")
		return
	}

	opts, err := model.NewEditOptions(req.CutStartTime, req.CutEndTime, req.Mute, req.TargetResolutionHeight)
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	if err := h.svc.TriggerProcess(r.Context(), publicID, principal.UserID, *opts); err != nil {
		HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Delete handles DELETE /api/videos/{publicId}.
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	publicID, principal, ok := h.resolveRequest(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), publicID, principal.UserID); err != nil {
		HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadProcessed handles GET /api/videos/{publicId}/download.
func (h *VideoHandler) DownloadProcessed(w http.ResponseWriter, r *http.Request) {
	publicID, principal, ok := h.resolveRequest(w, r)
	if !ok {
		return
	}

	reader, video, err := h.svc.DownloadProcessed(r.Context(), publicID, principal.UserID)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}
	defer reader.Close()

	streamDownload(w, reader, fmt.Sprintf("%s.mp4", video.PublicID.String()))
}

// DownloadOriginal handles GET /api/videos/{publicId}/download/original.
func (h *VideoHandler) DownloadOriginal(w http.ResponseWriter, r *http.Request) {
	publicID, principal, ok := h.resolveRequest(w, r)
	if !ok {
		return
	}

	reader, video, err := h.svc.DownloadOriginal(r.Context(), publicID, principal.UserID)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}
	defer reader.Close()

	streamDownload(w, reader, fmt.Sprintf("%s.mp4", video.PublicID.String()))
}

// resolveRequest extracts the authenticated principal and the {publicId}
// path parameter shared by most video endpoints.
func (h *VideoHandler) resolveRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, apimw.Principal, bool) {
	principal, ok := apimw.PrincipalFromContext(r.Context())
	if !ok {
		WriteProblem(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
		return uuid.UUID{}, apimw.Principal{}, false
	}

	publicID, err := uuid.Parse(chi.URLParam(r, "publicId"))
	if err != nil {
		WriteProblem(w, r, http.StatusNotFound, "not found", "the requested resource does not exist")
		return uuid.UUID{}, apimw.Principal{}, false
	}
	return publicID, principal, true
}

func parsePageParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func streamDownload(w http.ResponseWriter, reader io.Reader, filename string) {
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	buf := make([]byte, 64*1024)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func toVideoResponse(v *model.Video) VideoResponse {
	resp := VideoResponse{
		PublicID:    v.PublicID.String(),
		Description: v.Description,
		FileSize:    v.FileSize,
		Status:      v.Status.String(),
		UploadDate:  v.UploadedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if v.Duration > 0 {
		d := v.Duration
		resp.Duration = &d
	}
	return resp
}
