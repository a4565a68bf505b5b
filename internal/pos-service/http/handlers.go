package httpapi

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
	"github.com/radieske/numbers-lottery-pos/internal/pos-service/dto"
	"github.com/radieske/numbers-lottery-pos/internal/pos-service/service"
)

func filterFrom(r *http.Request) lottery.FilterRequest {
	q := r.URL.Query()
	return lottery.FilterRequest{
		Period: q.Get("period"),
		Start:  q.Get("start"),
		End:    q.Get("end"),
		Month:  q.Get("month"),
		Year:   q.Get("year"),
		Slot:   q.Get("slot"),
	}
}

// limitFrom: ausente ou inválido = 0, o serviço aplica o default
func limitFrom(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}

// writeCSV atende ?format=csv nos relatórios; a primeira linha traz os títulos das colunas
func writeCSV(w http.ResponseWriter, name string, cols []lottery.Column, records [][]string) {
	header := make([]string, 0, len(cols))
	for _, c := range cols {
		header = append(header, c.Title)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.csv"`)
	w.WriteHeader(http.StatusOK)
	cw := csv.NewWriter(w)
	_ = cw.WriteAll(append([][]string{header}, records...))
}

func (a *API) recordSale(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordSaleRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}
	stake, err := req.StakeValue()
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	out, err := a.Ledger.RecordSale(r.Context(), req.Number, stake, req.Slot)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.SaleResponse{Created: out.Created, Bet: out.Bet})
}

func (a *API) undoLastSale(w http.ResponseWriter, r *http.Request) {
	b, err := a.Ledger.UndoLastSale(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UndoResponse{Removed: b})
}

func (a *API) querySales(w http.ResponseWriter, r *http.Request) {
	rep, err := a.Ledger.QuerySales(r.Context(), filterFrom(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		writeCSV(w, "sales", rep.Columns, rep.Records())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *API) dailySummary(w http.ResponseWriter, r *http.Request) {
	sum, err := a.Reports.DailySummary(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *API) numberHistory(w http.ResponseWriter, r *http.Request) {
	out, err := a.Reports.NumberHistory(r.Context(), chi.URLParam(r, "number"), limitFrom(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) numberSummary(w http.ResponseWriter, r *http.Request) {
	st, err := a.Reports.NumberSummary(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// prizePreview calcula sem gravar, para o caixa conferir antes de confirmar
func (a *API) prizePreview(w http.ResponseWriter, r *http.Request) {
	stake, err := lottery.ParseStake(r.URL.Query().Get("stake"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PrizeResponse{
		Stake:  stake,
		Prize:  a.Ledger.ComputePrize(stake),
		Policy: a.Settings.Current().Policy,
	})
}

func (a *API) slots(w http.ResponseWriter, _ *http.Request) {
	all, def := a.Ledger.Slots()
	writeJSON(w, http.StatusOK, dto.SlotsResponse{Slots: all, Default: def})
}

func (a *API) registerWinner(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterWinnerRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.Results.RegisterWinner(r.Context(), req.Day, req.Slot, req.Number)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WinnerResponse{Day: res.Day, Slot: res.Slot, Number: res.Number})
}

func (a *API) recentWinners(w http.ResponseWriter, r *http.Request) {
	out, err := a.Results.RecentWinners(r.Context(), limitFrom(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getWinner(w http.ResponseWriter, r *http.Request) {
	day, slot := chi.URLParam(r, "day"), chi.URLParam(r, "slot")
	n, ok, err := a.Results.GetWinner(r.Context(), day, slot)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "no winner registered"})
		return
	}
	writeJSON(w, http.StatusOK, dto.WinnerResponse{Day: day, Slot: slot, Number: n})
}

func (a *API) queryWinners(w http.ResponseWriter, r *http.Request) {
	rep, err := a.Results.QueryWinners(r.Context(), filterFrom(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		writeCSV(w, "winners", rep.Columns, rep.Records())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *API) topNumbers(w http.ResponseWriter, r *http.Request) {
	out, err := a.Reports.TopNumbers(r.Context(), filterFrom(r), limitFrom(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) slotTotals(w http.ResponseWriter, r *http.Request) {
	out, err := a.Reports.SlotTotals(r.Context(), filterFrom(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) stakeVsPaid(w http.ResponseWriter, r *http.Request) {
	out, err := a.Reports.StakeVsPaid(r.Context(), filterFrom(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dto.NewSettingsResponse(a.Settings.Current()))
}

func (a *API) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateSettingsRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}
	cur, err := a.Settings.Update(r.Context(), service.SettingsUpdate{
		UnitPrize: req.UnitPrize,
		MinStake:  req.MinStake,
		Theme:     req.Theme,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewSettingsResponse(cur))
}

func (a *API) reloadSettings(w http.ResponseWriter, r *http.Request) {
	cur, err := a.Settings.Reload(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewSettingsResponse(cur))
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}
	bypassed, err := a.Settings.Login(r.Context(), req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.LoginResponse{OK: true, Bypassed: bypassed})
}

func (a *API) changeCredential(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangeCredentialRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.Settings.ChangeCredential(r.Context(), req.Current, req.New, req.Confirm); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listPreferences(w http.ResponseWriter, r *http.Request) {
	all, err := a.Settings.Preferences(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (a *API) getPreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	v, err := a.Settings.Preference(r.Context(), key)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PreferenceResponse{Key: key, Value: v})
}

func (a *API) putPreference(w http.ResponseWriter, r *http.Request) {
	var req dto.PreferenceRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}
	key := chi.URLParam(r, "key")
	if err := a.Settings.SetPreference(r.Context(), key, req.Value); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PreferenceResponse{Key: key, Value: req.Value})
}
