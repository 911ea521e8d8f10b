package app

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// MaxBodyBytes caps parsed request bodies.
const MaxBodyBytes = 100 << 10

const (
	bodyKey         = "solarhook.body"
	requestIDHeader = "X-Request-ID"
	allowMethods    = "GET,HEAD,PUT,PATCH,POST,DELETE"
)

// RequestLogger logs one line per request and tags the response with a
// request ID.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		c.Next()

		logrus.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"ip":         c.ClientIP(),
		}).Info("request handled")
	}
}

// CORS allows any origin to call any endpoint with any method. Preflight
// requests are answered here with 204.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", allowMethods)
		if req := c.GetHeader("Access-Control-Request-Headers"); req != "" {
			h.Set("Access-Control-Allow-Headers", req)
			h.Add("Vary", "Access-Control-Request-Headers")
		} else {
			h.Set("Access-Control-Allow-Headers", "*")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

type bodyKind int

const (
	bodyOther bodyKind = iota
	bodyJSON
	bodyForm
)

// errUnsupportedMedia marks bodies that are answered with 415.
var errUnsupportedMedia = errors.New("unsupported media")

// kindOf returns the body kind for contentType and its charset parameter.
func kindOf(contentType string) (bodyKind, string) {
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return bodyOther, ""
	}
	charset := strings.ToLower(params["charset"])
	switch mt {
	case "application/json":
		return bodyJSON, charset
	case "application/x-www-form-urlencoded":
		return bodyForm, charset
	}
	return bodyOther, ""
}

// BodyParser decodes JSON and URL-encoded bodies before routing. The result
// is available through ParsedBody; other content types pass through.
// Gzip and deflate bodies are inflated, and the request body is replaced
// with the inflated bytes.
func BodyParser() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, charset := kindOf(c.GetHeader("Content-Type"))
		if kind == bodyOther || c.Request.Body == nil {
			c.Next()
			return
		}

		dec, err := charsetDecoder(kind, charset)
		if err != nil {
			logrus.WithError(err).Debug("rejecting request body")
			abortText(c, http.StatusUnsupportedMediaType)
			return
		}

		raw, err := readBody(c, c.GetHeader("Content-Encoding"))
		if err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				abortText(c, http.StatusRequestEntityTooLarge)
			case errors.Is(err, errUnsupportedMedia):
				abortText(c, http.StatusUnsupportedMediaType)
			default:
				abortText(c, http.StatusBadRequest)
			}
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))

		if dec != nil {
			if raw, err = dec.Bytes(raw); err != nil {
				abortText(c, http.StatusBadRequest)
				return
			}
		}

		var body any
		switch kind {
		case bodyJSON:
			body, err = decodeJSON(raw)
		case bodyForm:
			body, err = DecodeForm(string(raw))
		}
		if err != nil {
			logrus.WithError(err).Debug("rejecting request body")
			abortText(c, http.StatusBadRequest)
			return
		}

		c.Set(bodyKey, body)
		c.Next()
	}
}

// readBody reads the request body, inflating it per contentEncoding, and caps the
// inflated size at MaxBodyBytes.
func readBody(c *gin.Context, contentEncoding string) ([]byte, error) {
	var r io.ReadCloser = c.Request.Body
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "", "identity":
	case "gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip body")
		}
		r = zr
	case "deflate":
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "open deflate body")
		}
		r = zr
	default:
		return nil, errors.Wrapf(errUnsupportedMedia, "content encoding %q", contentEncoding)
	}
	defer r.Close()

	return io.ReadAll(http.MaxBytesReader(c.Writer, r, MaxBodyBytes))
}

// charsetDecoder returns nil for UTF-8 bodies. JSON also accepts the other
// UTF encodings; forms are UTF-8 only.
func charsetDecoder(kind bodyKind, charset string) (*encoding.Decoder, error) {
	if charset == "" || charset == "utf-8" {
		return nil, nil
	}
	if kind != bodyJSON || !strings.HasPrefix(charset, "utf-") {
		return nil, errors.Wrapf(errUnsupportedMedia, "charset %q", charset)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, errors.Wrapf(errUnsupportedMedia, "charset %q", charset)
	}
	return enc.NewDecoder(), nil
}

// ParsedBody returns the body decoded by BodyParser, or nil.
func ParsedBody(c *gin.Context) any {
	v, _ := c.Get(bodyKey)
	return v
}

func abortText(c *gin.Context, code int) {
	c.String(code, http.StatusText(code))
	c.Abort()
}

// decodeJSON accepts only objects and arrays at the top level.
func decodeJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, errors.New("json body must be an object or array")
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, errors.Wrap(err, "decode json body")
	}
	return v, nil
}
