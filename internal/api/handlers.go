package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cytometry/internal/archive"
	"cytometry/internal/filter"
	"cytometry/internal/ingest"
	"cytometry/internal/metrics"
	"cytometry/internal/store"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		notFound  store.ErrNotFound
		duplicate store.ErrDuplicate
		invalid   store.ErrInvalid
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &duplicate):
		return http.StatusConflict
	case errors.As(err, &invalid), errors.Is(err, ingest.ErrMalformed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func bindSpec(c *gin.Context) (filter.Spec, bool) {
	var spec filter.Spec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter: " + err.Error()})
		return filter.Spec{}, false
	}
	return spec, true
}

func (h *Handler) upload(c *gin.Context) {
	if c.Request.ContentLength > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("Upload exceeds %d bytes", h.maxUpload)})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("Upload exceeds %d bytes", h.maxUpload)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing upload field 'file'"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, err)
		return
	}

	samples, err := ingest.ReadSamples(bytes.NewReader(data))
	if err != nil {
		h.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.samples.ReplaceAll(ctx, samples); err != nil {
		h.fail(c, err)
		return
	}
	metrics.RecordIngest(len(samples))

	key := archive.Key(h.now())
	if err := h.archive.Put(ctx, key, bytes.NewReader(data)); err != nil {
		h.log.WithError(err).WithField("key", key).Warn("archive upload")
	} else {
		h.log.WithFields(logrus.Fields{"key": key, "samples": len(samples)}).Info("upload archived")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Data loaded successfully", "samples": len(samples)})
}

func (h *Handler) listSamples(c *gin.Context) {
	samples, err := h.samples.ListSamples(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, samples)
}

func (h *Handler) addSample(c *gin.Context) {
	var sample store.Sample
	if err := c.ShouldBindJSON(&sample); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sample: " + err.Error()})
		return
	}
	if err := h.samples.AddSample(c.Request.Context(), sample); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sample added successfully"})
}

func (h *Handler) deleteSample(c *gin.Context) {
	if err := h.samples.DeleteSample(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sample deleted successfully"})
}

func (h *Handler) frequencies(c *gin.Context) {
	rows, err := h.analysis.Frequencies(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) responseAnalysis(c *gin.Context) {
	spec, ok := bindSpec(c)
	if !ok {
		return
	}
	out, err := h.analysis.ResponseAnalysis(c.Request.Context(), spec)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) baselineSummary(c *gin.Context) {
	out, err := h.analysis.BaselineSummary(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) filterSummary(c *gin.Context) {
	spec, ok := bindSpec(c)
	if !ok {
		return
	}
	out, err := h.analysis.FilterSummary(c.Request.Context(), spec)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) filterSamples(c *gin.Context) {
	spec, ok := bindSpec(c)
	if !ok {
		return
	}
	samples, err := h.samples.FilterSamples(c.Request.Context(), spec)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, samples)
}
