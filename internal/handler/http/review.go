package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/trungse123/review-backend/internal/domain"
	"github.com/trungse123/review-backend/internal/service"
	apperrors "github.com/trungse123/review-backend/pkg/errors"
	"github.com/trungse123/review-backend/pkg/httputil"
	"github.com/trungse123/review-backend/pkg/logger"
	"github.com/trungse123/review-backend/pkg/pagination"
)

const (
	// multipartMemory is held in memory before parts spill to disk.
	multipartMemory = 32 << 20
	// maxSubmissionBytes fits every media slot at the size limit plus form fields.
	maxSubmissionBytes = (domain.MaxImageRefs+domain.MaxVideoRefs)*domain.MaxMediaFileSize + 1<<20
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	reviews *service.ReviewService
	media   *service.MediaService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(reviews *service.ReviewService, media *service.MediaService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		media:   media,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON body for creating a review. Media fields
// carry references that were uploaded beforehand.
type CreateReviewRequest struct {
	ProductID      string          `json:"productId"`
	ProductIDSnake string          `json:"product_id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	Title          string          `json:"title"`
	Content        string          `json:"content"`
	Rating         json.RawMessage `json:"rating"`
	Images         []string        `json:"images"`
	Video          string          `json:"video"`
}

// mediaParts holds the files of a multipart submission by field.
type mediaParts struct {
	images []*multipart.FileHeader
	video  []*multipart.FileHeader
}

// --- Handlers ---

// CreateReview handles POST /api/review/create (JSON or multipart/form-data).
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var (
		input *service.SubmissionInput
		parts mediaParts
		err   error
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("failed to parse multipart form"), h.logger)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()
		input, parts = h.submissionFromForm(r.Context(), r.MultipartForm)
	} else {
		input, err = h.submissionFromJSON(r.Context(), r.Body)
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := service.ValidateSubmission(input); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	keys, err := h.storeMedia(r.Context(), input, parts)
	if err != nil {
		h.media.Discard(r.Context(), keys)
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	review, err := h.reviews.Submit(r.Context(), input)
	if err != nil {
		h.media.Discard(r.Context(), keys)
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusCreated, "review submitted successfully", map[string]any{"review": review})
}

// ListReviews handles GET /api/review/product/{productId}.
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	params := pagination.FromRequest(r)
	q := r.URL.Query()

	var rating *float64
	if v := q.Get("rating"); v != "" {
		parsed, err := parseRating(v)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		rating = parsed
	}

	res, err := h.reviews.List(r.Context(), service.ListFilter{
		ProductID: productID,
		Rating:    rating,
		Sort:      q.Get("sort"),
		Page:      params.Page,
		PerPage:   params.PerPage,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	reviews := make([]domain.Review, len(res.Reviews))
	for i, review := range res.Reviews {
		reviews[i] = publicReview(review)
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(reviews, res.TotalCount, res.Page, res.PerPage))
}

// GetSummary handles GET /api/review/product/{productId}/summary.
func (h *ReviewHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reviews.Summary(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}

// GetQuota handles GET /api/review/quota?phone=.
func (h *ReviewHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	quota, err := h.reviews.Quota(r.Context(), r.URL.Query().Get("phone"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, quota)
}

// ReplyToReview handles POST /api/review/{id}/reply.
func (h *ReviewHandler) ReplyToReview(w http.ResponseWriter, r *http.Request) {
	var input service.ReplyInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}

	review, err := h.reviews.Reply(r.Context(), chi.URLParam(r, "id"), &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "reply added successfully", map[string]any{"review": review})
}

// ApproveReview handles POST /api/review/approve/{id}.
func (h *ReviewHandler) ApproveReview(w http.ResponseWriter, r *http.Request) {
	if err := h.reviews.Approve(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "review approved", nil)
}

// --- Helpers ---

// storeMedia uploads the multipart files and appends their references to the
// input. It returns the keys stored so far, even on failure.
func (h *ReviewHandler) storeMedia(ctx context.Context, input *service.SubmissionInput, parts mediaParts) ([]string, error) {
	if len(input.ImageRefs)+len(parts.images) > domain.MaxImageRefs {
		return nil, apperrors.InvalidInput(fmt.Sprintf("at most %d images are allowed", domain.MaxImageRefs))
	}
	videos := len(parts.video)
	if input.VideoRef != "" {
		videos++
	}
	if videos > domain.MaxVideoRefs {
		return nil, apperrors.InvalidInput(fmt.Sprintf("at most %d video is allowed", domain.MaxVideoRefs))
	}

	var keys []string
	store := func(field string, fh *multipart.FileHeader) (string, error) {
		f, err := fh.Open()
		if err != nil {
			return "", apperrors.InvalidInput("failed to read uploaded file")
		}
		defer f.Close()

		res, err := h.media.Store(ctx, &service.MediaUpload{
			Field:       field,
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Data:        f,
		})
		if err != nil {
			return "", err
		}
		keys = append(keys, res.Key)
		return res.URL, nil
	}

	for _, fh := range parts.images {
		url, err := store(domain.MediaFieldImages, fh)
		if err != nil {
			return keys, err
		}
		input.ImageRefs = append(input.ImageRefs, url)
	}
	for _, fh := range parts.video {
		url, err := store(domain.MediaFieldVideo, fh)
		if err != nil {
			return keys, err
		}
		input.VideoRef = url
	}

	if len(keys) > 0 {
		logger.WithContext(ctx, h.logger).DebugContext(ctx, "stored review media", slog.Int("files", len(keys)))
	}
	return keys, nil
}

func (h *ReviewHandler) submissionFromJSON(ctx context.Context, body io.Reader) (*service.SubmissionInput, error) {
	var req CreateReviewRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperrors.InvalidInput("invalid request body")
	}

	productID := req.ProductID
	if productID == "" {
		productID = req.ProductIDSnake
	}

	return &service.SubmissionInput{
		ProductID:    productID,
		CustomerName: req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Title:        req.Title,
		Content:      req.Content,
		Rating:       h.submittedRating(ctx, string(req.Rating)),
		ImageRefs:    req.Images,
		VideoRef:     req.Video,
	}, nil
}

func (h *ReviewHandler) submissionFromForm(ctx context.Context, form *multipart.Form) (*service.SubmissionInput, mediaParts) {
	value := func(keys ...string) string {
		for _, k := range keys {
			if v := form.Value[k]; len(v) > 0 && v[0] != "" {
				return v[0]
			}
		}
		return ""
	}

	input := &service.SubmissionInput{
		ProductID:    value("productId", "product_id"),
		CustomerName: value("name"),
		Phone:        value("phone"),
		Email:        value("email"),
		Title:        value("title"),
		Content:      value("content"),
		Rating:       h.submittedRating(ctx, value("rating")),
	}

	return input, mediaParts{
		images: form.File[domain.MediaFieldImages],
		video:  form.File[domain.MediaFieldVideo],
	}
}

// submittedRating reads a submission's rating from a JSON number, a JSON
// string, null or a form value. Anything that is not a finite number is
// treated as absent, so the review waits for moderation.
func (h *ReviewHandler) submittedRating(ctx context.Context, raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal([]byte(s), &s); err != nil {
			s = raw
		}
	}
	rating, err := parseRating(s)
	if err != nil {
		logger.WithContext(ctx, h.logger).DebugContext(ctx, "ignoring non-numeric rating", slog.String("rating", raw))
		return nil
	}
	return rating
}

// parseRating parses an optional rating. Values outside 1..5 are kept; they
// are excluded later by aggregation and moderation.
func parseRating(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, apperrors.InvalidInput("rating must be a number")
	}
	return &v, nil
}

// publicReview hides the customer's contact details on public listings.
func publicReview(r domain.Review) domain.Review {
	r.Phone = logger.MaskPhone(r.Phone)
	r.Email = ""
	return r
}
