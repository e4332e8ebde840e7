package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tmerle/sireader/internal/driver"
	"github.com/tmerle/sireader/internal/serialport"
	"github.com/tmerle/sireader/internal/server"
	"github.com/tmerle/sireader/internal/tracelog"
	"github.com/tmerle/sireader/web"
)

func main() {
	configPath := flag.String("config", "/etc/sireader/config.yaml", "Path to config file")
	serve := flag.Bool("serve", false, "Start the live readout web server")
	demo := flag.Bool("demo", false, "Run against a simulated station")
	zeroHour := flag.String("zero-hour", "", "Event zero hour (HH:MM), overrides config")
	verbose := flag.Bool("verbose", false, "Print every protocol frame")
	list := flag.Bool("list", false, "List serial ports and exit")
	flag.BoolVar(list, "l", *list, "Shorthand for -list")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if *list {
		if err := printPorts(); err != nil {
			log.Printf("[main] port listing failed: %v", err)
			os.Exit(1)
		}
		return
	}

	cfg := server.LoadConfig(*configPath)
	if *zeroHour != "" {
		cfg.Reader.ZeroHour = *zeroHour
	}
	if *serve {
		cfg.Server.Enabled = true
	}

	zero, err := cfg.ZeroHourMs()
	if err != nil {
		log.Printf("[main] %v", err)
		os.Exit(1)
	}
	courses, err := cfg.BuildCourses()
	if err != nil {
		log.Printf("[main] %v", err)
		os.Exit(1)
	}
	log.Printf("[main] sireader starting (%d courses)", len(courses))

	console := newConsoleHandler(courses, *verbose)
	handlers := []driver.Handler{console}

	trace := tracelog.New(cfg.Trace)
	defer trace.Close()
	handlers = append(handlers, traceHandler{trace})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(cfg, courses, web.FS)
		handlers = append(handlers, srv)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Printf("[main] server exited: %v", err)
			}
		}()
	}

	drv, err := openDriver(cfg, *demo, zero, multiHandler(handlers))
	if err != nil {
		log.Printf("[main] %v", err)
		printPorts()
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[main] received %v, shutting down", sig)
		drv.Stop()
	}()

	drv.Start()

	if console.sawFatal() {
		os.Exit(1)
	}
}

// openDriver builds the port (real or demo), wires its byte stream into a
// new driver, and returns both.
func openDriver(cfg *server.Config, demo bool, zeroHour int64, h driver.Handler) (*driver.Driver, error) {
	if demo {
		port := serialport.NewDemo()
		drv := driver.New(port, h, driver.WithZeroHour(zeroHour))
		port.Attach(drv.HandleSerialData)
		return drv, nil
	}

	path := flag.Arg(0)
	if path == "" {
		path = cfg.Reader.PortPath
	}
	if path == "" {
		detected, err := serialport.Detect()
		if err != nil {
			return nil, err
		}
		path = detected
	}

	port, err := serialport.Open(path)
	if err != nil {
		return nil, err
	}
	drv := driver.New(port, h, driver.WithZeroHour(zeroHour))
	go port.Pump(drv)
	return drv, nil
}

// printPorts writes the serial port table, marking SPORTident stations.
func printPorts() error {
	ports, err := serialport.List()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		line := p.Name
		if p.VID != "" {
			line += fmt.Sprintf("  [%s:%s]", p.VID, p.PID)
		}
		if p.SportIdent {
			line += "  [SPORTident]"
		}
		fmt.Println(line)
	}
	return nil
}
