// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.28
//

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	m "github.com/mkhts/goppp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap"
)

// Settings taken from the environment
type envOpt struct {
	MetricsAddr string `env:"GOPPP_METRICS_ADDR"`
	LogLevel    string `env:"GOPPP_LOG_LEVEL,default=warn"`
}

// Structure to hold command line argument information
type cmdOpt struct {
	obsFn       string
	navFns      []string
	cfgFn       string
	posFn       string
	ts, te      time.Time
	ti          int
	systems     m.SysVar
	noPosHeader bool
	dbg         int
}

func main() {

	// Parse command line arguments
	args, err := parseArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var env envOpt
	if err := envconfig.Process(ctx, &env); err != nil {
		fmt.Fprintf(os.Stderr, "failed to process environment: %s\n", err)
		os.Exit(1)
	}
	level := env.LogLevel
	switch {
	case args.dbg >= 2:
		level = "debug"
	case args.dbg == 1:
		level = "info"
	}
	if err := m.InitLogger(level); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer m.Sync()

	// Run the main application
	if err := runApplication(ctx, args, env); err != nil {
		m.L().Error("goppp failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main application processing
func runApplication(ctx context.Context, args cmdOpt, env envOpt) error {

	cfg := m.NewConfig()
	if args.cfgFn != "" {
		c, err := m.LoadConfigFile(args.cfgFn)
		if err != nil {
			return err
		}
		cfg = c
	}
	cfg.SelectSystems(args.systems)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Load input files
	obs, nav, err := loadInputFiles(args)
	if err != nil {
		return fmt.Errorf("failed to load input files: %w", err)
	}
	if len(obs) == 0 {
		return errors.New("no observation epoch")
	}

	reg := prometheus.NewRegistry()
	metrics, err := m.NewMetrics(reg)
	if err != nil {
		return err
	}
	if env.MetricsAddr != "" {
		srv := serveMetrics(env.MetricsAddr, reg)
		defer srv.Shutdown(context.Background())
	}

	client, err := m.NewClient(cfg, m.WithLogger(m.L()), m.WithMetrics(metrics))
	if err != nil {
		return err
	}

	// Prepare output file
	pos, err := prepareOutput(args)
	if err != nil {
		return fmt.Errorf("failed to prepare output: %w", err)
	}
	defer pos.Close()

	if !args.noPosHeader {
		printPosHeader(pos, os.Args[0], args, obs)
	}
	return processEpochs(ctx, args, client, obs, nav, pos)
}

// Expose the metrics registry over HTTP
func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.L().Error("metrics server", zap.Error(err))
		}
	}()
	m.L().Info("metrics server started", zap.String("addr", addr))
	return srv
}

// Load input files
func loadInputFiles(args cmdOpt) ([]*m.ObsEpoch, []*m.BroadcastEphe, error) {
	obs, err := readObs(args.obsFn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read observation file: %w", err)
	}
	nav := []*m.BroadcastEphe{}
	for _, fn := range args.navFns {
		n, err := readNav(fn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read navigation file: %w", err)
		}
		nav = append(nav, n...)
	}
	return obs, nav, nil
}

// Prepare output file
func prepareOutput(args cmdOpt) (io.WriteCloser, error) {

	// Use stdout if no output file is specified
	if len(args.posFn) == 0 {
		return &nopCloser{os.Stdout}, nil
	}
	posf, err := os.Create(args.posFn)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return posf, nil
}

// Process epochs. Ephemerides are fed as they would have been received,
// up to their transmission time
func processEpochs(ctx context.Context, args cmdOpt, client *m.Client, obs []*m.ObsEpoch, nav []*m.BroadcastEphe, pos io.Writer) error {
	next := 0
	for _, epo := range obs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !shouldProcessEpoch(epo, args) {
			continue
		}
		for ; next < len(nav) && nav[next].Tot.LessOrEqual(epo.Time, false); next++ {
			client.PutEphemeris(nav[next])
		}
		out, err := client.ProcessEpoch(ctx, epo.Sats)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			continue
		}
		printPos(pos, out)
	}
	return nil
}

// Filter epochs
func shouldProcessEpoch(epo *m.ObsEpoch, args cmdOpt) bool {

	// Skip epochs before processing start time
	if epo.Time.Before(args.ts, true) {
		return false
	}

	// Stop after processing end time
	if epo.Time.After(args.te, true) {
		return false
	}

	// Skip epochs that are not divisible by the specified time interval
	if args.ti > 0 && !epo.Time.Divisible(args.ti) {
		return false
	}
	return true
}

// nopCloser - WriteCloser that ignores close operations
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Parse command line arguments
func parseArgs() (a cmdOpt, err error) {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `
[Usage]
	%s [Options] rover.obs nav_file.nav [nav_file.nav ...]

[Environment]
	GOPPP_METRICS_ADDR  Address of the Prometheus endpoint, e.g. ":9100"
	GOPPP_LOG_LEVEL     debug, info, warn or error (default warn)

[Options]
`, filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	var ts_, te_ m.TimeStr
	flag.StringVar(&a.cfgFn, "c", "", "Processing options file (YAML). Default options if not specified.")
	flag.TextVar(&ts_, "ts", m.NewTimeStr(time.Time{}), "Start epoch specification. Enclose in quotes like -ts \"2023/01/01 00:00:00\"")
	flag.TextVar(&te_, "te", m.NewTimeStr(time.Now().UTC()), "End epoch specification. Enclose in quotes like -te \"2023/01/02 00:00:00\". This epoch is also included.")
	flag.IntVar(&a.ti, "ti", 0, "Calculation interval. Calculation is executed when the epoch's second value is divisible by the specified value. Omit or set to 0 to calculate all epochs.")
	flag.Var(&a.systems, "sys", "Satellite systems to process, comma separated like \"G,E\". All configured systems if not specified.")
	flag.StringVar(&a.posFn, "o", "", "Output pos file path. If not specified, output to stdout.")
	flag.BoolVar(&a.noPosHeader, "nh", false, "Do not output header section of pos file.")
	flag.IntVar(&a.dbg, "x", 0, "Debug information display. 0(GOPPP_LOG_LEVEL), 1(info), 2(debug)")
	flag.Parse()
	if flag.NArg() < 2 {
		return a, fmt.Errorf("too few arguments")
	}
	a.obsFn = flag.Arg(0)
	a.navFns = flag.Args()[1:]
	a.ts = time.Time(ts_)
	a.te = time.Time(te_)
	return a, nil
}

// Read observation file
func readObs(fn string) ([]*m.ObsEpoch, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return m.ReadObs(f)
}

// Read navigation file
func readNav(fn string) ([]*m.BroadcastEphe, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return m.ReadNav(f)
}

// Print pos file header
func printPosHeader(pos io.Writer, cmd string, args cmdOpt, obs []*m.ObsEpoch) {
	fmt.Fprintf(pos, "%% program   : %s\n", filepath.Base(cmd))
	fmt.Fprintf(pos, "%% inp file  : %s\n", args.obsFn)
	for _, fn := range args.navFns {
		fmt.Fprintf(pos, "%% inp file  : %s\n", fn)
	}
	if args.cfgFn != "" {
		fmt.Fprintf(pos, "%% options   : %s\n", args.cfgFn)
	}
	fmt.Fprintf(pos, "%% obs start : %s\n", getObsStart(obs, args.ts))
	fmt.Fprintf(pos, "%% obs end   : %s\n", getObsEnd(obs, args.te))
	fmt.Fprintf(pos, "%%  GPST                 latitude(deg) longitude(deg)  height(m)  ns     sdn(m)     sde(m)     sdu(m)   ztd(m)  sdztd(m)      gdop      pdop\n")
}

func fmtTime(t m.GTime) string {
	return fmt.Sprintf("%s(UTC) (week%d %7.1fs)(GPST)", t.ToTime().UTC().Format("2006/01/02 15:04:05.000"), t.Week, t.Sec)
}

// Return processing start epoch date and time as string
func getObsStart(obs []*m.ObsEpoch, ts time.Time) string {
	t := obs[0].Time
	for _, epo := range obs {
		if epo.Time.Before(ts, true) {
			continue
		}
		t = epo.Time
		break
	}
	return fmtTime(t)
}

// Return processing end epoch date and time as string
func getObsEnd(obs []*m.ObsEpoch, te time.Time) string {
	t := obs[len(obs)-1].Time
	for _, epo := range obs {
		if epo.Time.After(te, true) {
			break
		}
		t = epo.Time
	}
	return fmtTime(t)
}

// Output POS line
func printPos(pos io.Writer, out *m.Output) {
	rcvt := m.GTime{Week: out.Time.Week, Sec: math.Round(out.Time.Sec*1000) / 1000}
	sd := func(i int) float64 { return math.Sqrt(math.Max(out.CovNEU[i][i], 0)) }
	fmt.Fprintf(pos, "%s %13.9f %14.9f %10.4f %3d %10.4f %10.4f %10.4f %8.4f %9.4f %9.3f %9.3f\n",
		rcvt.ToTime().UTC().Format("2006/01/02 15:04:05.000"),
		m.ToDeg(out.LLH.Lat), m.ToDeg(out.LLH.Lon), out.LLH.Hei, out.NumSat,
		sd(0), sd(1), sd(2), out.Tropo, out.TropoSigma, out.DOP.G, out.DOP.P)
}
