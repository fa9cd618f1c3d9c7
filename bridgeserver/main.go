package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/BertoldVdb/ADMXBridge/admx/chipopen"
	"github.com/BertoldVdb/ADMXBridge/bridge"
	"github.com/BertoldVdb/ADMXBridge/bridge/api"
	"github.com/BertoldVdb/ADMXBridge/bridgeserver/config"
	"github.com/BertoldVdb/ADMXBridge/bridgeserver/discovery"
	"go.bug.st/serial"
	"go.uber.org/multierr"
)

func openSerial(cfg config.SerialConfig) (serial.Port, error) {
	port, err := serial.Open(cfg.Port, &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		if ports, errList := serial.GetPortsList(); errList == nil {
			log.Printf(" -> Available ports: %v", ports)
		}
		return nil, err
	}

	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		port.Close()
		return nil, err
	}

	return port, nil
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	chipPath := flag.String("chip", "", "Chip to use: usb[:serial[:pid]], platform[:spiport[:cspin[:freq]]] or sim")
	serialPort := flag.String("serial", "", "Serial port carrying the command channel")
	baud := flag.Int("baud", 0, "Serial baud rate")
	address := flag.String("addr", "", "Address to listen on")
	mdnsIface := flag.String("mdns-iface", "", "Interface to announce the API on")
	name := flag.String("name", "", "Name to announce")
	apiKey := flag.String("apikey", "", "API key to use")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")

	flag.Parse()

	cfg := &config.Config{}
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("config load failed: %v", err)
		}
	}

	override := func(dst *string, value string) {
		if value != "" {
			*dst = value
		}
	}
	override(&cfg.Chip.Path, *chipPath)
	override(&cfg.Serial.Port, *serialPort)
	override(&cfg.HTTP.Addr, *address)
	override(&cfg.MDNS.Interface, *mdnsIface)
	override(&cfg.MDNS.Name, *name)
	override(&cfg.HTTP.APIKey, *apiKey)
	if *baud != 0 {
		cfg.Serial.Baud = *baud
	}

	config.Normalize(cfg)
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	if cfg.HTTP.APIKey != "" {
		user, pass := authCalculate(cfg.HTTP.APIKey, "example", time.Now().AddDate(10, 0, 0))
		log.Printf("Password for username '%s': %s", user, pass)
	}

	closeChan := make(chan os.Signal, 1)
	signal.Notify(closeChan, os.Interrupt)

	logOut := log.Printf
	if !*verbose {
		logOut = nil
	}

	log.Printf("Initializing chip '%s':", cfg.Chip.Path)

	chip, err := chipopen.OpenChipTiming(cfg.Chip.Path, cfg.Chip.FrameTiming(), logOut)
	if err != nil {
		log.Printf(" -> Failed to open: %v", err)
		return
	}

	info, err := chip.ReadChipInfo()
	if err != nil {
		log.Printf(" -> Failed to identify: %v", err)
		chip.Close()
		return
	}
	log.Println(" -> Chip ready:", info)

	var port serial.Port
	var portRW io.ReadWriter
	if cfg.Serial.Port != "" {
		log.Printf("Opening serial port '%s' at %d baud:", cfg.Serial.Port, cfg.Serial.Baud)

		port, err = openSerial(cfg.Serial)
		if err != nil {
			log.Printf(" -> Failed to open: %v", err)
			chip.Close()
			return
		}
		portRW = port
	}

	b := bridge.New(chip, cfg.Bridge.Options(), logOut)
	bridgeServer := bridge.NewServer(b, portRW, time.Millisecond, log.Printf)

	runCtx, runCancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		bridgeServer.Run(runCtx)
		close(runDone)
	}()

	closeAll := func() {
		runCancel()
		<-runDone

		err := chip.Close()
		if port != nil {
			err = multierr.Append(err, port.Close())
		}
		if err != nil {
			log.Println("Close failed:", err)
		}
	}
	defer closeAll()

	bridgeAPI, err := api.New(info, bridgeServer, cfg.HTTP.CommandTimeout())
	if err != nil {
		log.Println("Failed to create API:", err)
		return
	}

	if cfg.MDNS.Interface != "" {
		httpPort, err := discovery.PortFromAddr(cfg.HTTP.Addr)
		if err != nil {
			log.Println("Cannot announce:", err)
			return
		}

		announcer := discovery.NewAnnouncer(cfg.MDNS.Name, httpPort, info)
		if err := announcer.Start(cfg.MDNS.Interface, cfg.MDNS.WaitIP()); err != nil {
			log.Printf("Failed to announce on '%s': %v", cfg.MDNS.Interface, err)
		} else {
			log.Printf("Announcing '%s' at %s", cfg.MDNS.Name, announcer.CurrentAddress())
			defer announcer.Stop()
		}
	}

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: newHandler(bridgeAPI, cfg.HTTP.APIKey, log.Printf),

		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.HTTP.CommandTimeout() + 5*time.Second,
		IdleTimeout:       30 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("Starting server on: http://%s", cfg.HTTP.Addr)
		log.Println("Server stopped:", server.ListenAndServe())

		select {
		case closeChan <- nil:
		default:
		}
	}()

	<-closeChan
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	server.Shutdown(ctx)
	cancel()
}
