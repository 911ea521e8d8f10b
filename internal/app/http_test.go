package app

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/initify/solarhook/internal/webhook"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recordingHandler captures the last webhook request and answers 200.
type recordingHandler struct {
	got     *webhook.Request
	rawBody string
	calls   int
}

func (h *recordingHandler) ServeWebhook(w http.ResponseWriter, r *webhook.Request) {
	h.calls++
	h.got = r
	if r.HTTP != nil {
		b, _ := io.ReadAll(r.HTTP.Body)
		h.rawBody = string(b)
	}
	w.WriteHeader(http.StatusOK)
}

func serve(h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HealthCheck(t *testing.T) {
	a := assert.New(t)
	r := NewRouter(&recordingHandler{})

	rec := serve(r, http.MethodGet, "/", "", "")

	a.Equal(http.StatusOK, rec.Code)
	a.Equal(HealthMessage, rec.Body.String())
	a.Equal("Solar Webhook Server is running!", rec.Body.String())
	a.True(strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
}

func TestRouter_WebhookOverwritesHeaders(t *testing.T) {
	a := assert.New(t)
	h := &recordingHandler{}
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("User-Agent", "Google-Dialogflow")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	a.Equal(http.StatusOK, rec.Code)
	require.NotNil(t, h.got)
	a.Equal("application/json", h.got.Header.Get("Content-Type"))
	a.Equal("dialogflow-webhook", h.got.Header.Get("User-Agent"))
	a.Equal("application/json", h.got.HTTP.Header.Get("Content-Type"))
}

func TestRouter_WebhookOverwritesHeadersForAnyContentType(t *testing.T) {
	a := assert.New(t)
	h := &recordingHandler{}
	r := NewRouter(h)

	rec := serve(r, http.MethodPost, "/webhook", "text/plain", "hello")

	a.Equal(http.StatusOK, rec.Code)
	require.NotNil(t, h.got)
	a.Equal("application/json", h.got.Header.Get("Content-Type"))
	a.Equal("dialogflow-webhook", h.got.Header.Get("User-Agent"))
	a.Nil(h.got.Body)
	a.Equal("hello", h.rawBody)
}

func TestRouter_WebhookDecodesTextPlainAsJSON(t *testing.T) {
	h, err := NewHandler(testConfig(t, map[string]string{}))
	require.NoError(t, err)
	r := NewRouter(h)

	rec := serve(r, http.MethodPost, "/webhook", "text/plain",
		`{"queryResult":{"intent":{"displayName":"Check_Cost"},"parameters":{"size_kw":5}}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"fulfillmentText":"Estimated turnkey cost for 5 kW: ~PKR 970,000"}`, rec.Body.String())
}

func TestRouter_WebhookReceivesParsedJSON(t *testing.T) {
	h := &recordingHandler{}
	r := NewRouter(h)

	serve(r, http.MethodPost, "/webhook", "application/json", `{"a":1}`)

	require.NotNil(t, h.got)
	assert.Equal(t, map[string]any{"a": float64(1)}, h.got.Body)
	assert.Equal(t, `{"a":1}`, h.rawBody)
}

func TestRouter_WebhookReceivesExtendedForm(t *testing.T) {
	h := &recordingHandler{}
	r := NewRouter(h)

	serve(r, http.MethodPost, "/webhook", "application/x-www-form-urlencoded", "queryResult[intent][displayName]=Check_Cost&session=s1")

	require.NotNil(t, h.got)
	assert.Equal(t, map[string]any{
		"queryResult": map[string]any{"intent": map[string]any{"displayName": "Check_Cost"}},
		"session":     "s1",
	}, h.got.Body)
}

func TestRouter_WebhookMergesConflictingFormKeys(t *testing.T) {
	h := &recordingHandler{}
	r := NewRouter(h)

	serve(r, http.MethodPost, "/webhook", "application/x-www-form-urlencoded", "a=1&a[b]=2&list[0]=x&list[1]=y")

	require.NotNil(t, h.got)
	assert.Equal(t, map[string]any{
		"a":    []any{"1", map[string]any{"b": "2"}},
		"list": []any{"x", "y"},
	}, h.got.Body)
}

func TestRouter_CompressedBodies(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte(`{"a":1}`))
	require.NoError(t, gw.Close())

	var df bytes.Buffer
	zw := zlib.NewWriter(&df)
	_, _ = zw.Write([]byte(`{"a":1}`))
	require.NoError(t, zw.Close())

	for enc, body := range map[string][]byte{"gzip": gz.Bytes(), "deflate": df.Bytes(), "GZIP": gz.Bytes()} {
		h := &recordingHandler{}
		r := NewRouter(h)

		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Content-Encoding", enc)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, enc)
		require.NotNil(t, h.got, enc)
		assert.Equal(t, map[string]any{"a": float64(1)}, h.got.Body, enc)
		assert.Equal(t, `{"a":1}`, h.rawBody, enc)
	}
}

func TestRouter_CorruptGzipIs400(t *testing.T) {
	h := &recordingHandler{}
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, h.calls)
}

func TestRouter_UnsupportedMediaIs415(t *testing.T) {
	for _, tc := range []struct{ contentType, encoding string }{
		{"application/json", "br"},
		{"application/json; charset=latin1", ""},
		{"application/x-www-form-urlencoded; charset=utf-16", ""},
	} {
		h := &recordingHandler{}
		r := NewRouter(h)

		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", tc.contentType)
		if tc.encoding != "" {
			req.Header.Set("Content-Encoding", tc.encoding)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code, tc.contentType)
		assert.Equal(t, 0, h.calls, tc.contentType)
	}
}

func TestRouter_UTF16JSON(t *testing.T) {
	h := &recordingHandler{}
	r := NewRouter(h)

	body, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().String(`{"a":"b"}`)
	require.NoError(t, err)
	serve(r, http.MethodPost, "/webhook", "application/json; charset=utf-16be", body)

	require.NotNil(t, h.got)
	assert.Equal(t, map[string]any{"a": "b"}, h.got.Body)
}

func TestRouter_EmptyJSONBodyIsEmptyObject(t *testing.T) {
	h := &recordingHandler{}
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/webhook", http.NoBody)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, h.got)
	assert.Equal(t, map[string]any{}, h.got.Body)
}

func TestRouter_MalformedJSONIsRejected(t *testing.T) {
	for _, body := range []string{`{"a":`, `"just a string"`, `42`} {
		h := &recordingHandler{}
		r := NewRouter(h)

		rec := serve(r, http.MethodPost, "/webhook", "application/json", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, 0, h.calls, body)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"), body)
	}
}

func TestRouter_OversizedBodyIsRejected(t *testing.T) {
	h := &recordingHandler{}
	r := NewRouter(h)

	body := `{"pad":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	rec := serve(r, http.MethodPost, "/webhook", "application/json", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 0, h.calls)
}

func TestRouter_CORSOnEveryResponse(t *testing.T) {
	r := NewRouter(&recordingHandler{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/"},
		{http.MethodPost, "/webhook"},
		{http.MethodGet, "/unknown"},
		{http.MethodDelete, "/webhook"},
	} {
		rec := serve(r, tc.method, tc.path, "", "")

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"), tc.path)
		assert.Equal(t, "GET,HEAD,PUT,PATCH,POST,DELETE", rec.Header().Get("Access-Control-Allow-Methods"), tc.path)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Headers"), tc.path)
	}
}

func TestRouter_Preflight(t *testing.T) {
	h := &recordingHandler{}
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodOptions, "/webhook", nil)
	req.Header.Set("Origin", "https://console.dialogflow.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type,authorization")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "content-type,authorization", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, 0, h.calls)
}

func TestRouter_UnknownPathIsDefault404(t *testing.T) {
	r := NewRouter(&recordingHandler{})

	rec := serve(r, http.MethodGet, "/unknown", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "404 page not found", rec.Body.String())
}

func TestRouter_LooseWebhookPaths(t *testing.T) {
	for _, path := range []string{"/webhook/", "/Webhook", "/WEBHOOK/"} {
		h := &recordingHandler{}
		r := NewRouter(h)

		rec := serve(r, http.MethodPost, path, "application/json", `{"a":1}`)

		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, 1, h.calls, path)
		assert.Equal(t, "dialogflow-webhook", h.got.Header.Get("User-Agent"), path)
		assert.Equal(t, map[string]any{"a": float64(1)}, h.got.Body, path)
	}
}

func TestRouter_LooseMissesAre404(t *testing.T) {
	r := NewRouter(&recordingHandler{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/WEBHOOK"},
		{http.MethodGet, "/unknown/"},
		{http.MethodPost, "/Unknown"},
	} {
		rec := serve(r, tc.method, tc.path, "", "")

		assert.Equal(t, http.StatusNotFound, rec.Code, tc.path)
		assert.Equal(t, "404 page not found", rec.Body.String(), tc.path)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"), tc.path)
	}
}

func TestRouter_WrongMethodOnWebhookIs404(t *testing.T) {
	h := &recordingHandler{}
	r := NewRouter(h)

	rec := serve(r, http.MethodGet, "/webhook", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, h.calls)
}

func TestRouter_RequestID(t *testing.T) {
	r := NewRouter(&recordingHandler{})

	rec := serve(r, http.MethodGet, "/", "", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRouter_HandlerPanicIs500(t *testing.T) {
	r := NewRouter(webhook.HandlerFunc(func(http.ResponseWriter, *webhook.Request) {
		panic("handler bug")
	}))

	rec := serve(r, http.MethodPost, "/webhook", "application/json", `{}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
