package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
	"github.com/radieske/numbers-lottery-pos/internal/pos-service/dto"
	"github.com/radieske/numbers-lottery-pos/internal/pos-service/service"
)

// Ledger é implementado por service.Ledger
type Ledger interface {
	RecordSale(ctx context.Context, number string, stake int64, slot string) (lottery.SaleOutcome, error)
	UndoLastSale(ctx context.Context) (lottery.Bet, error)
	QuerySales(ctx context.Context, req lottery.FilterRequest) (lottery.SalesReport, error)
	ComputePrize(stake int64) int64
	Slots() ([]lottery.Slot, string)
}

// Results é implementado por service.Results
type Results interface {
	RegisterWinner(ctx context.Context, day, slot, number string) (lottery.DrawResult, error)
	GetWinner(ctx context.Context, day, slot string) (string, bool, error)
	RecentWinners(ctx context.Context, limit int) ([]lottery.DrawResult, error)
	QueryWinners(ctx context.Context, req lottery.FilterRequest) (lottery.WinnersReport, error)
}

// Reports é implementado por service.Reports
type Reports interface {
	DailySummary(ctx context.Context) (lottery.DailySummary, error)
	NumberHistory(ctx context.Context, number string, limit int) ([]lottery.Bet, error)
	NumberSummary(ctx context.Context, number string) (lottery.NumberStats, error)
	TopNumbers(ctx context.Context, req lottery.FilterRequest, limit int) ([]lottery.NumberTotal, error)
	SlotTotals(ctx context.Context, req lottery.FilterRequest) ([]lottery.SlotTotal, error)
	StakeVsPaid(ctx context.Context, req lottery.FilterRequest) ([]lottery.SlotPayout, error)
}

// Settings é implementado por service.Settings
type Settings interface {
	Current() lottery.Settings
	Reload(ctx context.Context) (lottery.Settings, error)
	Update(ctx context.Context, u service.SettingsUpdate) (lottery.Settings, error)
	Login(ctx context.Context, password string) (bool, error)
	ChangeCredential(ctx context.Context, current, next, confirm string) error
	Preference(ctx context.Context, key string) (json.RawMessage, error)
	SetPreference(ctx context.Context, key string, value json.RawMessage) error
	Preferences(ctx context.Context) (map[string]json.RawMessage, error)
}

// API expõe o POS via REST; WS é opcional (nil desliga /ws)
type API struct {
	Log      *zap.Logger
	Ledger   Ledger
	Results  Results
	Reports  Reports
	Settings Settings
	WS       http.HandlerFunc
}

const maxBody = 64 << 10

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLog)
	r.Use(middleware.Recoverer)
	r.Use(withCORS)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sales", a.recordSale)
		r.Delete("/sales/last", a.undoLastSale)
		r.Get("/sales", a.querySales)
		r.Get("/sales/summary/today", a.dailySummary)
		r.Get("/sales/numbers/{number}/history", a.numberHistory)
		r.Get("/sales/numbers/{number}/summary", a.numberSummary)
		r.Get("/prize", a.prizePreview)
		r.Get("/slots", a.slots)

		r.Post("/winners", a.registerWinner)
		r.Get("/winners/recent", a.recentWinners)
		r.Get("/winners/{day}/{slot}", a.getWinner)
		r.Get("/reports/winners", a.queryWinners)

		r.Get("/charts/top-numbers", a.topNumbers)
		r.Get("/charts/slot-totals", a.slotTotals)
		r.Get("/charts/stake-vs-paid", a.stakeVsPaid)

		r.Get("/settings", a.getSettings)
		r.Put("/settings", a.updateSettings)
		r.Post("/settings/reload", a.reloadSettings)
		r.Post("/auth/login", a.login)
		r.Put("/auth/credential", a.changeCredential)

		r.Get("/ui-preferences", a.listPreferences)
		r.Get("/ui-preferences/{key}", a.getPreference)
		r.Put("/ui-preferences/{key}", a.putPreference)
	})

	if a.WS != nil {
		r.Get("/ws", a.WS)
	}
	return r
}

// requestLog registra método, rota e latência com o request id do chi
func (a *API) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.Log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var errBadJSON = errors.New("bad json")

// writeError traduz erros de domínio em status HTTP
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.Errors
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadJSON), errors.As(err, &verrs), lottery.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, lottery.ErrNothingToUndo), errors.Is(err, lottery.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lottery.ErrCredentialMismatch):
		status = http.StatusUnauthorized
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.Log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		msg = "internal error"
	}
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

// decode lê o corpo JSON; números chegam como json.Number
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return errBadJSON
	}
	return nil
}
