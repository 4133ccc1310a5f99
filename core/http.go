package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// HandlerFunc is an http handler that reports failures as errors.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handler adapts h so returned errors and panics are written as error
// envelopes.
func (t *ErrorTranslator) Handler(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				t.WriteError(r.Context(), w, fmt.Errorf("core: handler panic: %v", recovered))
			}
		}()
		if err := h(w, r); err != nil {
			t.WriteError(r.Context(), w, err)
		}
	})
}

func (t *ErrorTranslator) WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	envelope, status := t.Translate(ctx, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

// MediaPrefixMiddleware rewrites each legacy media prefix in response bodies
// to the current prefix. It is a passthrough unless both are configured.
func MediaPrefixMiddleware(current string, legacy []string) func(http.Handler) http.Handler {
	current = strings.TrimRight(current, "/")
	replacements := make([][]byte, 0, len(legacy))
	for _, prefix := range legacy {
		prefix = strings.TrimRight(prefix, "/")
		if prefix != "" {
			replacements = append(replacements, []byte(prefix))
		}
	}
	return func(next http.Handler) http.Handler {
		if current == "" || len(replacements) == 0 {
			return next
		}
		target := []byte(current)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &bufferedResponse{header: http.Header{}, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			body := recorder.body.Bytes()
			for _, prefix := range replacements {
				body = bytes.ReplaceAll(body, prefix, target)
			}
			for key, values := range recorder.header {
				w.Header()[key] = values
			}
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(recorder.status)
			_, _ = w.Write(body)
		})
	}
}

type bufferedResponse struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) WriteHeader(status int) {
	if b.wroteHeader {
		return
	}
	b.status = status
	b.wroteHeader = true
}

func (b *bufferedResponse) Write(data []byte) (int, error) {
	b.wroteHeader = true
	return b.body.Write(data)
}

// LocaleMiddleware stores the resolved locale on the request context.
func LocaleMiddleware(resolver *LocaleResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := resolver.Resolve(r.Context())
			next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), locale)))
		})
	}
}
