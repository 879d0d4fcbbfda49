package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/urbansims/microgreens/internal/domain/tracker"
)

var errPhotoTooLarge = errors.New("photo exceeds maximum allowed size")

// ListSeeds returns the seed catalog.
func (h *Handler) ListSeeds(c *gin.Context) {
	seeds, err := h.trackerSvc.ListSeeds(c.Request.Context())
	if err != nil {
		abortWithError(c, fromAppError(err, "fetch_failed"))
		return
	}
	c.JSON(http.StatusOK, seeds)
}

// GetSeed returns one seed.
func (h *Handler) GetSeed(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	seed, err := h.trackerSvc.GetSeed(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, fromAppError(err, "fetch_failed"))
		return
	}
	c.JSON(http.StatusOK, seed)
}

// CreateCrop starts a crop for the caller.
func (h *Handler) CreateCrop(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req tracker.CreateCropRequest
	if !bindJSON(c, &req) {
		return
	}
	crop, err := h.trackerSvc.CreateCrop(c.Request.Context(), actor, req)
	if err != nil {
		abortWithError(c, fromAppError(err, "create_failed"))
		return
	}
	c.JSON(http.StatusCreated, crop)
}

// ListCrops lists the caller's crops, optionally filtered by status and seed.
func (h *Handler) ListCrops(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	filter := tracker.CropFilter{Status: c.Query("status")}
	if raw := strings.TrimSpace(c.Query("seed_id")); raw != "" {
		seedID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid seed_id", err))
			return
		}
		filter.SeedID = seedID
	}
	crops, err := h.trackerSvc.ListCrops(c.Request.Context(), actor, filter)
	if err != nil {
		abortWithError(c, fromAppError(err, "fetch_failed"))
		return
	}
	c.JSON(http.StatusOK, crops)
}

// GetCrop returns one crop with its seed.
func (h *Handler) GetCrop(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	crop, err := h.trackerSvc.GetCrop(c.Request.Context(), actor, id)
	if err != nil {
		abortWithError(c, fromAppError(err, "fetch_failed"))
		return
	}
	c.JSON(http.StatusOK, crop)
}

// DeleteCrop removes a crop and everything recorded against it.
func (h *Handler) DeleteCrop(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.trackerSvc.DeleteCrop(c.Request.Context(), actor, id); err != nil {
		abortWithError(c, fromAppError(err, "delete_failed"))
		return
	}
	c.Status(http.StatusNoContent)
}

// ListLogs returns a crop's daily logs ordered by day.
func (h *Handler) ListLogs(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	logs, err := h.trackerSvc.ListLogs(c.Request.Context(), actor, id)
	if err != nil {
		abortWithError(c, fromAppError(err, "fetch_failed"))
		return
	}
	c.JSON(http.StatusOK, logs)
}

// CreateLog stores a full daily log.
func (h *Handler) CreateLog(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req tracker.CreateLogRequest
	if !bindJSON(c, &req) {
		return
	}
	log, err := h.trackerSvc.CreateLog(c.Request.Context(), actor, id, req)
	if err != nil {
		abortWithError(c, fromAppError(err, "create_failed"))
		return
	}
	c.JSON(http.StatusCreated, log)
}

// RecordAction adds a single action to today's log.
func (h *Handler) RecordAction(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req tracker.ActionRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.trackerSvc.RecordAction(c.Request.Context(), actor, id, req)
	if err != nil {
		abortWithError(c, fromAppError(err, "action_failed"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// UploadPhoto attaches an image to a day's log.
func (h *Handler) UploadPhoto(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	day, ok := dayParam(c)
	if !ok {
		return
	}
	if h.maxPhotoBytes > 0 {
		// multipart overhead on top of the image itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxPhotoBytes+1<<20)
	}
	fileHeader, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		fileHeader, err = c.FormFile("file")
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			abortWithError(c, NewHTTPError(http.StatusRequestEntityTooLarge, "invalid_input", errPhotoTooLarge.Error(), err))
			return
		}
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "photo is required", err))
		return
	}
	data, err := h.readUpload(fileHeader)
	if err != nil {
		if errors.Is(err, errPhotoTooLarge) {
			abortWithError(c, NewHTTPError(http.StatusRequestEntityTooLarge, "invalid_input", err.Error(), err))
			return
		}
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "failed to read upload", err))
		return
	}
	upload := tracker.PhotoUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     data,
	}
	result, err := h.trackerSvc.AttachPhoto(c.Request.Context(), actor, id, day, upload)
	if err != nil {
		abortWithError(c, fromAppError(err, "upload_failed"))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	reader := io.Reader(file)
	if h.maxPhotoBytes > 0 {
		reader = io.LimitReader(file, h.maxPhotoBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if h.maxPhotoBytes > 0 && int64(len(data)) > h.maxPhotoBytes {
		return nil, errPhotoTooLarge
	}
	return data, nil
}

// Photo streams a stored log photo.
func (h *Handler) Photo(c *gin.Context) {
	photo, err := h.trackerSvc.Photo(c.Request.Context(), c.Param("key"))
	if err != nil {
		abortWithError(c, fromAppError(err, "fetch_failed"))
		return
	}
	defer photo.Body.Close()
	mimeType := photo.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.DataFromReader(http.StatusOK, -1, mimeType, photo.Body, nil)
}

// Harvest closes a crop with its measured yield.
func (h *Handler) Harvest(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req tracker.HarvestRequest
	if !bindJSON(c, &req) {
		return
	}
	harvest, err := h.trackerSvc.Harvest(c.Request.Context(), actor, id, req)
	if err != nil {
		abortWithError(c, fromAppError(err, "harvest_failed"))
		return
	}
	c.JSON(http.StatusCreated, harvest)
}

// GetHarvest returns the harvest record of a crop.
func (h *Handler) GetHarvest(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	harvest, err := h.trackerSvc.GetHarvest(c.Request.Context(), actor, id)
	if err != nil {
		abortWithError(c, fromAppError(err, "fetch_failed"))
		return
	}
	c.JSON(http.StatusOK, harvest)
}

// Prediction returns the current yield estimate of a crop.
func (h *Handler) Prediction(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	prediction, err := h.trackerSvc.Prediction(c.Request.Context(), actor, id)
	if err != nil {
		abortWithError(c, fromAppError(err, "prediction_failed"))
		return
	}
	c.JSON(http.StatusOK, prediction)
}

// Stats summarizes the caller's crops.
func (h *Handler) Stats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	stats, err := h.trackerSvc.Stats(c.Request.Context(), actor)
	if err != nil {
		abortWithError(c, fromAppError(err, "fetch_failed"))
		return
	}
	c.JSON(http.StatusOK, stats)
}
