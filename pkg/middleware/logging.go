package middleware

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/arborhq/arbor/pkg/configuration"
	"github.com/arborhq/arbor/pkg/constants"
)

type LoggerOptions struct {
	LogRequestBody bool
	MaxBodyLength  int
	Repanic        bool
}

func DefaultLoggerOptions() LoggerOptions {
	return LoggerOptions{
		LogRequestBody: true,
		MaxBodyLength:  512,
	}
}

type responseCaptureWriter struct {
	http.ResponseWriter
	statusCode    int
	statusWritten bool
}

func (w *responseCaptureWriter) WriteHeader(code int) {
	if !w.statusWritten {
		w.statusCode = code
		w.statusWritten = true
		w.ResponseWriter.WriteHeader(code)
	}
}

// Status returns the HTTP status code, defaulting to 200 when the handler
// never called WriteHeader.
func (w *responseCaptureWriter) Status() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}

func (w *responseCaptureWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *responseCaptureWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}

func getRealIP(r *http.Request, conf *configuration.Configuration) string {
	if v := r.Header.Get(conf.RealIPHeader); v != "" {
		return v
	}
	return r.RemoteAddr
}

func getRequestID(r *http.Request, conf *configuration.Configuration) string {
	if v := r.Header.Get(conf.RequestIDHeader); v != "" {
		return v
	}
	return uuid.New().String()
}

// WithLogger attaches a request-scoped logrus entry to the context, logs
// request start/completion, and recovers panics into a stable JSON 500.
func WithLogger(logger *logrus.Logger, opts LoggerOptions) mux.MiddlewareFunc {
	conf := configuration.Use()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := getRequestID(r, conf)

			fieldsLogger := logger.WithFields(logrus.Fields{
				"request-id": requestID,
				"path":       r.RequestURI,
				"method":     r.Method,
			})

			fieldsLogger.WithFields(logrus.Fields{
				"host":       r.Host,
				"ip":         getRealIP(r, conf),
				"user-agent": r.UserAgent(),
			}).Info("request started")

			ctx := context.WithValue(r.Context(), constants.LoggerKey, fieldsLogger)
			ctx = context.WithValue(ctx, constants.RequestStart, start)

			w.Header().Set("X-Request-Id", requestID)

			wrappedWriter := &responseCaptureWriter{ResponseWriter: w}

			defer func() {
				if recovered := recover(); recovered != nil {
					fieldsLogger.WithFields(logrus.Fields{
						"panic":       recovered,
						"stack":       string(debug.Stack()),
						"remote_addr": getRealIP(r, conf),
						"duration":    time.Since(start),
					}).Error("panic recovered in request handler")

					if !wrappedWriter.statusWritten {
						wrappedWriter.Header().Set("Content-Type", "application/json")
						wrappedWriter.WriteHeader(http.StatusInternalServerError)
						_ = json.NewEncoder(wrappedWriter).Encode(map[string]any{
							"code":    "INTERNAL_SERVER_ERROR",
							"message": "internal server error",
							"meta": map[string]string{
								"request_id": requestID,
								"path":       r.URL.Path,
							},
						})
					}

					if opts.Repanic {
						panic(recovered)
					}
				}
			}()

			if opts.LogRequestBody && r.Body != nil && isMutatingMethod(r.Method) {
				bodyBuf := new(bytes.Buffer)
				if _, err := bodyBuf.ReadFrom(http.MaxBytesReader(nil, r.Body, 1<<20)); err == nil {
					r.Body = nopCloser{bytes.NewReader(bodyBuf.Bytes())}
					logged := bodyBuf.String()
					if len(logged) > opts.MaxBodyLength {
						logged = logged[:opts.MaxBodyLength]
					}
					fieldsLogger.WithField("request-body", logged).Debug("request-body captured")
				}
			}

			next.ServeHTTP(wrappedWriter, r.WithContext(ctx))

			statusCode := wrappedWriter.Status()
			fieldsLogger.WithFields(logrus.Fields{
				"duration":     time.Since(start),
				"completed":    true,
				"status-code":  statusCode,
				"status-class": statusCode / 100,
			}).Info("request completed")
		})
	}
}

func isMutatingMethod(method string) bool {
	return method == http.MethodPost ||
		method == http.MethodPut ||
		method == http.MethodPatch ||
		method == http.MethodDelete
}

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }
