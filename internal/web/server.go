package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vitos/crypto_scalper/internal/domain"
	"github.com/vitos/crypto_scalper/internal/usecase"
	"go.uber.org/zap"
)

// Server is the read-only status surface of the bot.
type Server struct {
	router   *http.ServeMux
	server   *http.Server
	board    *usecase.StatusBoard
	trades   domain.TradeRepository
	tradeLog domain.TradeLogReader
	logger   *zap.Logger
}

func NewServer(
	port int,
	board *usecase.StatusBoard,
	trades domain.TradeRepository,
	tradeLog domain.TradeLogReader,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:   http.NewServeMux(),
		board:    board,
		trades:   trades,
		tradeLog: tradeLog,
		logger:   logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /health", s.handleHealth)

	// Portfolio
	s.router.HandleFunc("GET /api/status", s.handleStatus)
	s.router.HandleFunc("GET /api/portfolio_summary", s.handlePortfolioSummary)
	s.router.HandleFunc("GET /api/open_positions", s.handleOpenPositions)
	s.router.HandleFunc("GET /api/portfolio_history", s.handlePortfolioHistory)

	// Trades
	s.router.HandleFunc("GET /api/trade_log", s.handleTradeLog)
	s.router.HandleFunc("GET /api/trades", s.handleTrades)

	// Streams
	s.router.HandleFunc("GET /ws/status", s.handleStatusStream)
	s.router.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
