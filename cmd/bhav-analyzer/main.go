// Command bhav-analyzer runs options-strategy analytics over an NSE F&O
// bhavcopy snapshot: futures-implied spot, weekly chain, ATM implied
// volatility, per-leg premiums and PnL metrics.
//
// Data comes from a user-supplied CSV (-bhavcopy) with the NSE archives as
// fallback, or from a synthetic generator (-synthetic) for offline runs.
// With -rest it serves analysis requests over HTTP instead.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/analyze"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/config"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/data"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/logger"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/report"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/strategy"
)

// requestFile is the on-disk strategy request: dates as strings.
type requestFile struct {
	Underlying    string             `json:"underlying"`
	ValuationDate string             `json:"valuation_date"`
	RiskFreeRate  *float64           `json:"risk_free_rate,omitempty"`
	Legs          []strategy.LegSpec `json:"legs"`
}

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults used when empty)")
	strategyPath := flag.String("strategy", "strategy.json", "path to strategy request JSON")
	bhavcopyPath := flag.String("bhavcopy", "", "path to a local bhavcopy CSV (archives used when empty)")
	synthetic := flag.Bool("synthetic", false, "use generated market data instead of real snapshots")
	rest := flag.Bool("rest", false, "run as REST server (accept analysis jobs)")
	addr := flag.String("addr", ":8080", "REST server listen address")
	verbosity := flag.Int("v", -1, "log verbosity override (0=errors..3=trace)")
	flag.Parse()

	// .env is optional; absence is not an error
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("config: %v", err)
		os.Exit(1)
	}

	if *verbosity >= 0 {
		cfg.Logging.Verbosity = *verbosity
	}
	logger.SetVerbosity(cfg.Logging.Verbosity)
	if cfg.Logging.File != "" {
		logger.EnableFileRotation(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays)
	}

	if *rest {
		prov := buildProvider(cfg, *bhavcopyPath, *synthetic, "NIFTY")
		serve(analyze.NewEngine(cfg, prov), *addr)
		return
	}

	req, err := loadRequest(*strategyPath)
	if err != nil {
		logger.Errorf("strategy request: %v", err)
		os.Exit(1)
	}

	prov := buildProvider(cfg, *bhavcopyPath, *synthetic, req.Underlying)
	engine := analyze.NewEngine(cfg, prov)

	start := time.Now()
	res, err := engine.Run(req)
	if err != nil {
		logger.Errorf("analysis failed: %v", err)
		os.Exit(1)
	}

	runID, err := report.WriteJSON(res, cfg.Report.Dir)
	if err != nil {
		logger.Errorf("writing report: %v", err)
		os.Exit(1)
	}
	if err := report.WriteLegsCSV(res, cfg.Report.Dir); err != nil {
		logger.Errorf("writing legs csv: %v", err)
	}
	logger.Infof("event=run_finished run_id=%s elapsed=%v spot=%.2f atm=%.2f iv=%.4f",
		runID, time.Since(start), res.Spot.Price, res.ATMStrike, res.Volatility.Mean)
}

func loadRequest(path string) (analyze.Request, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return analyze.Request{}, err
	}
	var rf requestFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return analyze.Request{}, err
	}
	return toRequest(rf)
}

func toRequest(rf requestFile) (analyze.Request, error) {
	valuation, err := time.Parse("2006-01-02", rf.ValuationDate)
	if err != nil {
		return analyze.Request{}, err
	}
	return analyze.Request{
		Underlying:    rf.Underlying,
		ValuationDate: valuation.UTC(),
		RiskFreeRate:  rf.RiskFreeRate,
		Legs:          rf.Legs,
	}, nil
}

// buildProvider assembles the snapshot source chain: local CSV first when
// given, NSE archives behind it, or the synthetic generator.
func buildProvider(cfg config.Config, bhavcopyPath string, synthetic bool, underlying string) data.Provider {
	if synthetic {
		logger.Infof("event=provider_selected kind=synthetic")
		return data.NewSyntheticProvider(underlying, 25234.50, 42)
	}
	archive := data.NewNSEArchiveProvider(cfg.NSE, nil)
	if bhavcopyPath != "" {
		logger.Infof("event=provider_selected kind=local_csv path=%s", bhavcopyPath)
		return data.NewLocalCSVProvider(bhavcopyPath, archive)
	}
	logger.Infof("event=provider_selected kind=nse_archive")
	return archive
}

// serve exposes the engine over HTTP: POST /run with a request body, plus
// a health probe.
func serve(engine *analyze.Engine, addr string) {
	r := mux.NewRouter()

	r.HandleFunc("/run", func(w http.ResponseWriter, req *http.Request) {
		var rf requestFile
		if err := json.NewDecoder(req.Body).Decode(&rf); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		runReq, err := toRequest(rf)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Infof("event=rest_run underlying=%s valuation=%s", runReq.Underlying, rf.ValuationDate)

		res, err := engine.Run(runReq)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}).Methods(http.MethodPost)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	logger.Infof("event=rest_listening addr=%s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Errorf("rest server: %v", err)
		os.Exit(1)
	}
}
