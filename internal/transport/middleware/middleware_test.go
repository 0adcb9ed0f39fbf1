package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/transport/middleware"
	"github.com/frahmantamala/staff-management/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"error":{"code":"INVITATION_EXPIRED"}}`))
})

var _ = Describe("CORS", func() {
	handler := middleware.CORS("https://admin.example.com, https://ops.example.com")(ok)

	It("echoes an allowed origin", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
		req.Header.Set("Origin", "https://ops.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://ops.example.com"))
	})

	It("ignores other origins", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("answers preflight requests without reaching the handler", func() {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/users", nil)
		req.Header.Set("Origin", "https://admin.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Headers")).To(ContainSubstring("Authorization"))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("turns a panic into an internal AppError body", func() {
		handler := middleware.RecoveryMiddleware(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		var body struct {
			Error struct {
				Type string `json:"type"`
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Error.Type).To(Equal(string(internal.ErrorTypeInternal)))
		Expect(body.Error.Code).To(Equal(string(internal.ErrCodeInternal)))
		Expect(rec.Body.String()).NotTo(ContainSubstring("boom"))
	})
})

var _ = Describe("RequestID", func() {
	It("keeps a caller supplied trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.TraceHeader, "trace-123")
		rec := httptest.NewRecorder()
		middleware.RequestID(ok).ServeHTTP(rec, req)

		Expect(rec.Header().Get(middleware.TraceHeader)).To(Equal("trace-123"))
	})

	It("mints one otherwise", func() {
		rec := httptest.NewRecorder()
		middleware.RequestID(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Header().Get(middleware.TraceHeader)).To(HaveLen(36))
	})
})

var _ = Describe("LoggingMiddleware", func() {
	var (
		out *bytes.Buffer
		log *slog.Logger
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		log = slog.New(slog.NewJSONHandler(out, nil))
	})

	It("masks credentials and invitation codes in requests but keeps error codes in responses", func() {
		body := `{"code":"5f2c0e","password":"hunter22","first_name":"Grace"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/invitations/accept", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer abc.def")
		rec := httptest.NewRecorder()

		var seen string
		handler := middleware.LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buf := new(bytes.Buffer)
			_, _ = buf.ReadFrom(r.Body)
			seen = buf.String()
			ok.ServeHTTP(w, r)
		}))
		handler.ServeHTTP(rec, req)

		Expect(seen).To(Equal(body))
		logged := out.String()
		Expect(logged).NotTo(ContainSubstring("5f2c0e"))
		Expect(logged).NotTo(ContainSubstring("hunter22"))
		Expect(logged).NotTo(ContainSubstring("abc.def"))
		Expect(logged).To(ContainSubstring("Grace"))
		Expect(logged).To(ContainSubstring("INVITATION_EXPIRED"))
	})
})
