// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// epd-clock shows the time on a Waveshare 2.9" e-paper panel.
//
// The clock is updated with partial refreshes and a full refresh is done on
// a cron schedule to clear ghosting. Use -sim to render to the terminal
// instead.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/epaper/epd"
	"github.com/GermanBionicSystems/epaper/epdsim"
	"github.com/GermanBionicSystems/epaper/waveshare2in9"
	"github.com/GermanBionicSystems/epaper/waveshare2in9v2"
)

// openHardware returns the transport to the panel and the function releasing
// it.
func openHardware(cfg *Config, sim bool) (epd.Hardware, func() error, error) {
	if sim {
		p, err := epdsim.New(&epdsim.Opts{
			Width:     128,
			Height:    296,
			SwapBanks: cfg.Model == "2in9",
			Scale:     2,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, p.Halt, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	port, err := spireg.Open(cfg.SPI)
	if err != nil {
		return nil, nil, err
	}
	opts := &epd.SPIOpts{BusyTimeout: cfg.BusyTimeout}
	if cfg.Pins.empty() {
		hw, err := epd.NewHat(port, opts)
		if err != nil {
			port.Close()
			return nil, nil, err
		}
		return hw, port.Close, nil
	}

	var cs gpio.PinOut
	if cfg.Pins.CS != "" {
		p := gpioreg.ByName(cfg.Pins.CS)
		if p == nil {
			port.Close()
			return nil, nil, fmt.Errorf("pin %s: not found", cfg.Pins.CS)
		}
		cs = p
	}
	var pins [3]gpio.PinIO
	for i, name := range []string{cfg.Pins.DC, cfg.Pins.RST, cfg.Pins.Busy} {
		if pins[i] = gpioreg.ByName(name); pins[i] == nil {
			port.Close()
			return nil, nil, fmt.Errorf("pin %s: not found", name)
		}
	}
	hw, err := epd.NewSPI(port, pins[0], cs, pins[1], pins[2], opts)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	return hw, port.Close, nil
}

type driver interface {
	panel
	Halt() error
}

func newDriver(cfg *Config, hw epd.Hardware) (driver, error) {
	switch cfg.Model {
	case "2in9":
		opts := waveshare2in9.EPD2in9
		opts.PartialRefresh = cfg.PartialRefresh
		opts.Logger = log.Default()
		return waveshare2in9.New(hw, &opts)
	case "2in9v2":
		opts := waveshare2in9v2.EPD2in9v2
		opts.PartialRefresh = cfg.PartialRefresh
		opts.Logger = log.Default()
		return waveshare2in9v2.New(hw, &opts)
	}
	return nil, fmt.Errorf("unknown model %q", cfg.Model)
}

func serveMetrics(addr string, reg prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics: %v", err)
		}
	}()
}

func mainImpl() error {
	configFile := flag.String("config", "", "YAML configuration `file`")
	sim := flag.Bool("sim", false, "render to the terminal instead of a panel")
	once := flag.Bool("once", false, "display the time once and exit")
	metricsAddr := flag.String("metrics", "", "`address` serving /metrics, overrides the configuration")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	cfg, err := parseConfig(*configFile)
	if err != nil {
		return err
	}
	if *metricsAddr != "" {
		cfg.Metrics = *metricsAddr
	}

	hw, release, err := openHardware(&cfg, *sim)
	if err != nil {
		return err
	}
	defer release()
	dev, err := newDriver(&cfg, hw)
	if err != nil {
		return err
	}
	defer dev.Halt()
	if err := dev.Reset(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	c, err := newClock(dev, cfg, newMetrics(reg))
	if err != nil {
		return err
	}
	if *once {
		return c.update(time.Now(), true)
	}
	if cfg.Metrics != "" {
		serveMetrics(cfg.Metrics, reg)
	}

	full := make(chan struct{}, 1)
	if cfg.FullRefresh != "" {
		cr := cron.New(cron.WithLocation(c.loc))
		if _, err := cr.AddFunc(cfg.FullRefresh, func() {
			select {
			case full <- struct{}{}:
			default:
			}
		}); err != nil {
			return err
		}
		cr.Start()
		defer cr.Stop()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)
	return c.run(stop, full)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "epd-clock: %s.\n", err)
		os.Exit(1)
	}
}
