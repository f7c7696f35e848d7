// Package proxyserver serves the generate-images and convert-to-outline
// functions so clients can generate without holding the vendor key. The key
// lives only in the server's configuration and is never echoed back.
package proxyserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/germanamz/colorking/pkg/imagegen"
	"github.com/germanamz/colorking/pkg/imagegen/proxy"
)

const (
	maxImages      = 4
	outlineCount   = 3
	maxRequestBody = 1 << 20
	shutdownGrace  = 10 * time.Second
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type",
	"Access-Control-Allow-Methods": "POST, OPTIONS",
}

// Config holds the server's secrets.
type Config struct {
	// VendorKey is the image provider key used for every upstream call.
	VendorKey string
	// AccessKey, when set, must be presented by clients as a bearer token.
	AccessKey string
}

// Server handles the proxy functions.
type Server struct {
	provider imagegen.Provider
	cfg      Config
	log      *zap.Logger
}

// New creates a Server that generates with p.
func New(p imagegen.Provider, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	return &Server{provider: p, cfg: cfg, log: log.Named("proxyserver")}
}

// Handler returns the HTTP handler with CORS and access checks applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+proxy.GeneratePath, s.handleGenerate)
	mux.HandleFunc("POST "+proxy.ConvertPath, s.handleConvert)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return s.cors(s.authorize(mux))
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()

	s.log.Info("proxy listening", zap.String("addr", l.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("proxyserver: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("proxyserver: shutdown: %w", err)
	}

	<-errCh
	s.log.Info("proxy stopped")

	return nil
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range corsHeaders {
			w.Header().Set(k, v)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AccessKey == "" || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AccessKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid access key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.cfg.VendorKey == "" {
		writeError(w, http.StatusInternalServerError, "OpenAI API key not configured")
		return
	}

	var req proxy.GenerateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	count := req.Count
	if count <= 0 {
		count = maxImages
	}
	count = min(count, maxImages)

	s.log.Info("generating images", zap.Int("count", count))

	urls, err := s.provider.SubmitAndAwait(r.Context(), imagegen.Params{Prompt: req.Prompt, NumOutputs: count}, s.cfg.VendorKey)
	if err != nil {
		s.log.Error("generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate any images")
		return
	}

	if len(urls) == 0 {
		writeError(w, http.StatusInternalServerError, "Failed to generate any images")
		return
	}

	images := make([]proxy.Image, 0, len(urls))
	for i, u := range urls {
		n := strconv.Itoa(i + 1)
		images = append(images, proxy.Image{ID: n, URL: u, Alt: "Generated image " + n + ": " + req.Prompt})
	}

	writeJSON(w, http.StatusOK, proxy.GenerateResponse{Images: images})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if s.cfg.VendorKey == "" {
		writeError(w, http.StatusInternalServerError, "OpenAI API key not configured")
		return
	}

	var req proxy.ConvertRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.ImageURL) == "" {
		writeError(w, http.StatusBadRequest, "Image URL is required")
		return
	}

	style, err := imagegen.ParseOutlineStyle(req.Style)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var urls []string
	if conv, ok := imagegen.SupportsOutlines(s.provider); ok {
		urls, err = conv.ConvertToOutline(r.Context(), req.ImageURL, style, s.cfg.VendorKey)
		if err != nil {
			s.log.Warn("outline conversion failed, using fallback outlines", zap.Error(err))
		}
	}

	// Without converted outlines the source image stands in for each variant.
	if len(urls) == 0 {
		urls = make([]string, outlineCount)
		for i := range urls {
			urls[i] = req.ImageURL
		}
	}

	outlines := make([]proxy.Image, 0, len(urls))
	for i, u := range urls {
		n := strconv.Itoa(i + 1)
		outlines = append(outlines, proxy.Image{ID: n, URL: u, Alt: style.String() + " outline " + n})
	}

	writeJSON(w, http.StatusOK, proxy.ConvertResponse{Outlines: outlines})
}

func decode(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, proxy.ErrorResponse{Error: msg})
}
