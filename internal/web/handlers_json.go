package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/vitos/crypto_scalper/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultTradeLogBytes = 4096
	maxTradeLogBytes     = 1 << 20
	defaultTradesLimit   = 50
	maxTradesLimit       = 500
)

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.board.Current()
	s.writeJSON(w, map[string]any{
		"status":     "ok",
		"cycle":      st.Cycle,
		"updated_at": st.UpdatedAt,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.board.Current())
}

func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.board.Current().Summary)
}

func (s *Server) handleOpenPositions(w http.ResponseWriter, r *http.Request) {
	positions := s.board.Current().Positions
	if positions == nil {
		positions = []*domain.Position{}
	}
	s.writeJSON(w, positions)
}

func (s *Server) handlePortfolioHistory(w http.ResponseWriter, r *http.Request) {
	history := s.board.Current().EquityHistory
	if history == nil {
		history = []domain.EquitySample{}
	}
	s.writeJSON(w, history)
}

func (s *Server) handleTradeLog(w http.ResponseWriter, r *http.Request) {
	n := intParam(r, "bytes", defaultTradeLogBytes, maxTradeLogBytes)
	text, err := s.tradeLog.Tail(int64(n))
	if err != nil {
		s.logger.Error("Failed to read trade log", zap.Error(err))
		http.Error(w, "Failed to read trade log", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(text))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", defaultTradesLimit, maxTradesLimit)

	var trades []*domain.TradeEvent
	var err error
	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		trades, err = s.trades.ListTradesBySymbol(r.Context(), symbol, limit)
	} else {
		trades, err = s.trades.ListTrades(r.Context(), limit)
	}
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []*domain.TradeEvent{}
	}
	s.writeJSON(w, trades)
}

// intParam reads a positive integer query parameter, capped at max.
func intParam(r *http.Request, name string, def, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
