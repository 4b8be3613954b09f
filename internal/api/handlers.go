// Package api implements the HTTP request handlers: raw asset retrieval
// from the art and dat pools, parsed measurement and article views, and the
// service status endpoint.
package api

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ksmlabs/ksmserver/internal/cache"
	"github.com/ksmlabs/ksmserver/internal/ksm"
	"github.com/ksmlabs/ksmserver/internal/metrics"
	"github.com/ksmlabs/ksmserver/internal/pool"
	"github.com/ksmlabs/ksmserver/internal/reader"
)

const dateLayout = "2006-01-02"

// Handlers aggregates all HTTP handlers
type Handlers struct {
	pools  *pool.Set
	cache  *cache.Cache
	parsed *ksm.Store
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(pools *pool.Set, contentCache *cache.Cache, parsed *ksm.Store, logger *zap.Logger) *Handlers {
	return &Handlers{
		pools:  pools,
		cache:  contentCache,
		parsed: parsed,
		logger: logger.Named("handlers"),
	}
}

// Status handles the /status and /health endpoints
func (h *Handlers) Status(c *gin.Context) {
	art, _ := h.pools.Get(pool.Art)
	dat, _ := h.pools.Get(pool.Dat)
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ksmserver",
		"pools": gin.H{
			"art": art.Available(),
			"dat": dat.Available(),
		},
	})
}

// ArtAsset serves raw bytes from the art pool
func (h *Handlers) ArtAsset(c *gin.Context) { h.serveAsset(c, pool.Art) }

// DatAsset serves raw bytes from the dat pool
func (h *Handlers) DatAsset(c *gin.Context) { h.serveAsset(c, pool.Dat) }

// serveAsset is the resolve → cache → stream sequence shared by both pools.
func (h *Handlers) serveAsset(c *gin.Context, id pool.ID) {
	defer func() {
		metrics.RequestsTotal.WithLabelValues(string(id), strconv.Itoa(c.Writer.Status())).Inc()
		if n := c.Writer.Size(); n > 0 {
			metrics.BytesServedTotal.WithLabelValues(string(id)).Add(float64(n))
		}
	}()

	key := strings.TrimPrefix(c.Param("key"), "/")
	p, err := h.pools.Get(id)
	if err != nil {
		h.assetError(c, err)
		return
	}

	path, info, err := p.Resolve(key)
	if err != nil {
		h.assetError(c, err)
		return
	}

	entry, ok := h.cache.Lookup(path, info.ModTime())
	if !ok {
		// Metadata and inline bytes are computed outside any cache lock.
		entry, err = h.buildEntry(path, info)
		if err != nil {
			h.assetError(c, err)
			return
		}
		h.cache.Populate(entry)
	}

	// The range is judged against the entry being served, not the latest
	// stat: the two can disagree when the file changes under an unchanged
	// mtime, and the bytes on the wire must come from a single snapshot.
	rng, err := ParseRange(c.GetHeader("Range"), entry.Size)
	if err != nil {
		h.rangeNotSatisfiable(c, entry.Size)
		return
	}

	c.Header("Accept-Ranges", "bytes")
	c.Header("Last-Modified", entry.ModTime.UTC().Format(http.TimeFormat))

	if entry.Inline() {
		h.serveInline(c, entry, rng)
		return
	}
	h.serveStream(c, entry, rng, path)
}

// buildEntry stats the resolved file into a cache entry, reading the body
// for assets at or below the inline threshold.
func (h *Handlers) buildEntry(path string, info fs.FileInfo) (*cache.Entry, error) {
	e := &cache.Entry{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if info.Size() <= h.cache.InlineThreshold() {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read asset: %w", err)
		}
		e.Body = body
		e.Size = int64(len(body))
	}
	e.ContentType = detectContentType(path, e.Body)
	return e, nil
}

// detectContentType derives the content type from the file extension, then
// falls back to sniffing bytes.
func detectContentType(path string, body []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	if body != nil {
		return mimetype.Detect(body).String()
	}
	if mt, err := mimetype.DetectFile(path); err == nil {
		return mt.String()
	}
	return "application/octet-stream"
}

// serveInline writes a cached body, sliced when a range was requested.
func (h *Handlers) serveInline(c *gin.Context, entry *cache.Entry, rng *reader.ByteRange) {
	body := entry.Body
	status := http.StatusOK
	if rng != nil {
		// Satisfiability was checked against entry.Size, which for inline
		// entries equals len(Body), so the slice bounds hold.
		end := entry.Size - 1
		if rng.End >= 0 && rng.End < end {
			end = rng.End
		}
		body = body[rng.Start : end+1]
		status = http.StatusPartialContent
		c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, end, entry.Size))
	}
	c.Header("Content-Length", strconv.Itoa(len(body)))
	if c.Request.Method == http.MethodHead {
		c.Header("Content-Type", entry.ContentType)
		c.Status(status)
		return
	}
	c.Data(status, entry.ContentType, body)
}

// serveStream opens the file fresh and streams it chunk by chunk.
func (h *Handlers) serveStream(c *gin.Context, entry *cache.Entry, rng *reader.ByteRange, path string) {
	s, err := reader.Open(path, rng)
	if err != nil {
		if errors.Is(err, reader.ErrRangeNotSatisfiable) {
			h.rangeNotSatisfiable(c, entry.Size)
			return
		}
		h.assetError(c, err)
		return
	}
	defer s.Close()

	status := http.StatusOK
	if rng != nil {
		status = http.StatusPartialContent
		c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", s.Start, s.Start+s.Length-1, s.Size))
	}
	c.Header("Content-Type", entry.ContentType)
	c.Header("Content-Length", strconv.FormatInt(s.Length, 10))
	c.Status(status)
	if c.Request.Method == http.MethodHead {
		return
	}

	if _, err := s.Copy(c.Request.Context(), c.Writer); err != nil {
		// Headers are already on the wire; abort without retry so the
		// client never receives silently truncated-then-resumed content.
		h.logger.Error("Asset stream aborted",
			zap.String("path", path),
			zap.Error(err))
		c.Abort()
	}
}

// Measurement serves a parsed .dat file as JSON records, optionally
// filtered by measurement date and projected onto selected columns.
func (h *Handlers) Measurement(c *gin.Context) {
	defer func() {
		metrics.RequestsTotal.WithLabelValues("measurement", strconv.Itoa(c.Writer.Status())).Inc()
	}()

	name := c.Param("name")
	p, _ := h.pools.Get(pool.Dat)

	path, info, err := p.Resolve(name + ".dat")
	if err != nil {
		h.assetError(c, err)
		return
	}

	table, err := h.parsedMeasurement(path, info.ModTime())
	if err != nil {
		h.logger.Warn("Measurement parse failed", zap.String("name", name), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
			"file":  name + ".dat",
		})
		return
	}

	startStr := c.Query("start_date")
	endStr := c.Query("end_date")
	if startStr != "" || endStr != "" {
		start := int64(math.MinInt64)
		end := int64(math.MaxInt64)
		if startStr != "" {
			day, err := time.Parse(dateLayout, startStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, want YYYY-MM-DD"})
				return
			}
			start = day.Unix()
		}
		if endStr != "" {
			day, err := time.Parse(dateLayout, endStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date, want YYYY-MM-DD"})
				return
			}
			// Inclusive day bound: last second of the end date.
			end = day.Add(23*time.Hour + 59*time.Minute + 59*time.Second).Unix()
		}
		table, err = table.FilterByTime(start, end)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": `failed to filter result by "measure_time1970"`})
			return
		}
	}

	if cols := c.Query("columns"); cols != "" {
		table, err = table.Select(strings.Split(cols, ","))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, table)
}

// Article serves a parsed .art parameter file as a flat JSON object.
func (h *Handlers) Article(c *gin.Context) {
	defer func() {
		metrics.RequestsTotal.WithLabelValues("article", strconv.Itoa(c.Writer.Status())).Inc()
	}()

	name := c.Param("name")
	p, _ := h.pools.Get(pool.Art)

	path, info, err := p.Resolve(name + ".art")
	if err != nil {
		h.assetError(c, err)
		return
	}

	if v, ok := h.parsed.Get(path, info.ModTime()); ok {
		c.JSON(http.StatusOK, v.(map[string]string))
		return
	}

	params, err := ksm.ParseArticleFile(path)
	if err != nil {
		h.logger.Warn("Article parse failed", zap.String("name", name), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
			"file":  name + ".art",
		})
		return
	}
	h.parsed.Put(path, info.ModTime(), params)

	c.JSON(http.StatusOK, params)
}

func (h *Handlers) parsedMeasurement(path string, modTime time.Time) (*ksm.Table, error) {
	if v, ok := h.parsed.Get(path, modTime); ok {
		return v.(*ksm.Table), nil
	}
	table, err := ksm.ParseMeasurementFile(path)
	if err != nil {
		return nil, err
	}
	h.parsed.Put(path, modTime, table)
	return table, nil
}

// assetError translates resolution and read failures into status responses.
// Invalid keys, path escapes and unknown pools all collapse into 404 so the
// response never reveals why a key was rejected.
func (h *Handlers) assetError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pool.ErrPoolUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pool unavailable"})
	case errors.Is(err, pool.ErrNotFound),
		errors.Is(err, pool.ErrPathEscape),
		errors.Is(err, pool.ErrInvalidKey),
		errors.Is(err, pool.ErrUnknownPool),
		errors.Is(err, fs.ErrNotExist):
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
	default:
		h.logger.Error("Asset request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handlers) rangeNotSatisfiable(c *gin.Context, size int64) {
	c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
	c.JSON(http.StatusRequestedRangeNotSatisfiable, gin.H{"error": "range not satisfiable"})
}
