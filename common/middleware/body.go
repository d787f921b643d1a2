package middleware

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RawBodyKey holds the unparsed request bytes on the gin context.
const RawBodyKey = "raw_body"

// BodyMode is the body capability a route is granted.
type BodyMode int

const (
	// BodyNone routes never read the request body.
	BodyNone BodyMode = iota
	// BodyJSON routes decode a JSON document.
	BodyJSON
	// BodyRaw routes receive the exact bytes sent by the client.
	BodyRaw
)

func (m BodyMode) String() string {
	switch m {
	case BodyJSON:
		return "json"
	case BodyRaw:
		return "raw"
	default:
		return "none"
	}
}

// RawBody reads up to limit bytes of the request body and stores them,
// untouched, under RawBodyKey. The request body is replaced with a fresh
// reader over the same bytes.
func RawBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "failed to read body"})
			return
		}
		c.Set(RawBodyKey, payload)
		c.Request.Body = io.NopCloser(bytes.NewReader(payload))
		c.Next()
	}
}

// RawBodyFrom returns the bytes captured by RawBody. ok is false when the
// route was not granted the raw capability.
func RawBodyFrom(c *gin.Context) ([]byte, bool) {
	v, exists := c.Get(RawBodyKey)
	if !exists {
		return nil, false
	}
	payload, ok := v.([]byte)
	return payload, ok
}

// JSONBody limits the body size and requires a JSON content type whenever a
// body is present.
func JSONBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength != 0 {
			mediaType, _, err := mime.ParseMediaType(c.ContentType())
			if c.ContentType() == "" || err != nil || mediaType != "application/json" {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{"message": "Content-Type must be application/json"})
				return
			}
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// Body returns the middleware implementing mode.
func Body(mode BodyMode, limit int64) gin.HandlerFunc {
	switch mode {
	case BodyRaw:
		return RawBody(limit)
	case BodyJSON:
		return JSONBody(limit)
	default:
		return func(c *gin.Context) { c.Next() }
	}
}
