package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const (
	httpTimeout = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleCreateGame allocates a fresh game code. The session itself is
// registered when the host's websocket handshake arrives bearing the code.
func handleCreateGame(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			HostName string `json:"hostName"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.HostName == "" {
			writeJSON(cfg, w, http.StatusBadRequest, map[string]string{"error": "hostName is required"})
			return
		}

		code := reg.NewCode()
		log.Info().Str("code", code).Str("host_name", body.HostName).Str("remote", realIP(r)).Msg("game code created")

		writeJSON(cfg, w, http.StatusOK, map[string]string{"gameCode": code})
	}
}

func handleCheckGame(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		code := r.URL.Query().Get("gameCode")
		if code == "" {
			writeJSON(cfg, w, http.StatusBadRequest, map[string]string{"error": "gameCode is required"})
			return
		}

		writeJSON(cfg, w, http.StatusOK, map[string]bool{"exists": reg.Exists(code)})
	}
}

// qrHandler generates a PNG QR code pointing phones at the join page for a
// game, respecting TLS and X-Forwarded-Proto.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := normalizeCode(ps.ByName("code"))
		if code == "" {
			http.Error(w, "missing game code", http.StatusBadRequest)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/join?gameCode=" + code

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func serveHomePage(cfg *Config) httprouter.Handle {
	page := `<!DOCTYPE html><html lang="en"><head><title>feud</title></head>` +
		`<body><p>feud v` + releaseVersion + ` - POST /game to create a session.</p></body></html>`

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		_, _ = io.WriteString(w, page)
	}
}

func serveHealthCheck(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		_, _ = w.Write([]byte("Ok\n"))
	}
}

func serveVersion(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		_, _ = w.Write([]byte("feud v" + releaseVersion + "\n"))
	}
}

func serveRobots(cfg *Config) httprouter.Handle {
	data := "User-agent: *\nDisallow: /\n"

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)
		_, _ = w.Write([]byte(data))
	}
}

func registerProfileHandlers(cfg *Config, mux *httprouter.Router) {
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/trace", pprof.Trace)
	for _, p := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handler("GET", cfg.prefix+"/pprof/"+p, pprof.Handler(p))
	}
}

// registerGameRoutes wires the control plane and the per-game websocket:
//   - POST $prefix/game          → allocate a game code
//   - GET  $prefix/game          → code existence check
//   - GET  $prefix/game/:code/ws → websocket handshake (host or player)
//   - GET  $prefix/game/:code/qr → PNG QR code for joining by phone
func registerGameRoutes(cfg *Config, reg *Registry, bank *QuestionBank, mux *httprouter.Router) {
	mux.POST(cfg.prefix+"/game", handleCreateGame(cfg, reg))
	mux.GET(cfg.prefix+"/game", handleCheckGame(cfg, reg))
	mux.GET(cfg.prefix+"/game/:code/ws", serveWS(cfg, reg, bank))
	mux.GET(cfg.prefix+"/game/:code/qr", qrHandler(cfg))
}

func ServePage(ctx context.Context, cfg *Config) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().Str("version", releaseVersion).Msg("starting feud")

	bank, err := loadQuestionBank(cfg.questions, time.Now().UnixNano())
	if err != nil {
		return err
	}
	log.Info().Int("questions", bank.Len()).Msg("question bank loaded")

	reg := NewRegistry(cfg.sessionTimeout)
	defer reg.Close()

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	mux := httprouter.New()

	mux.GET(cfg.prefix+"/", serveHomePage(cfg))
	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg))
	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg))
	mux.GET(cfg.prefix+"/version", serveVersion(cfg))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	registerGameRoutes(cfg, reg, bank, mux)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
	}

	go func() {
		var err error
		log.Info().Str("addr", cfg.scheme()+"://"+srv.Addr+cfg.prefix+"/").Msg("listening")
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return nil
}
