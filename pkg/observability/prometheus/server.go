package prometheus

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/core"
)

// Status is the payload served at /status.
type Status struct {
	Service       string  `json:"service"`
	Role          string  `json:"role"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	PrimesFound   int     `json:"primes_found"`
	Peers         int     `json:"peers"`
}

// StatusFunc supplies the current status snapshot.
type StatusFunc func() Status

// Server serves /metrics (Prometheus exposition for DefaultRegistry) and
// /status (JSON snapshot) on a fasthttp listener. Optional: it only exists
// when a metrics address is configured.
type Server struct {
	srv *fasthttp.Server
	ln  net.Listener
	log core.Logger
}

// StartServer binds addr and begins serving in the background.
func StartServer(addr string, status StatusFunc, logger core.Logger) (*Server, error) {
	if logger == nil {
		logger = core.NewLogger("metrics")
	}

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{}))

	handler := func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/metrics":
			metricsHandler(ctx)
		case "/status":
			ctx.SetContentType("application/json")
			if err := json.NewEncoder(ctx).Encode(status()); err != nil {
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			}
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener on %s: %w", addr, err)
	}

	s := &Server{
		srv: &fasthttp.Server{
			Handler: handler,
			Name:    "bigprime-metrics",
		},
		ln:  ln,
		log: logger,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil {
			s.log.Warnf("metrics server stopped: %v", err)
		}
	}()
	s.log.Infof("metrics endpoint listening on %s", ln.Addr())

	return s, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Stop shuts the metrics server down.
func (s *Server) Stop() error {
	return s.srv.Shutdown()
}
