package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("tamapod v%s\n", version)
	fmt.Println("Virtual pet daemon: gesture input, wifi portal, captive hotspot")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  tamapod [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that drives the handheld pet: disambiguates button gestures")
	fmt.Println("  (press, double tap, hold, chords) into pet input and device modes,")
	fmt.Println("  and runs the wifi portal that carries the pet's messages out and")
	fmt.Println("  visitors' messages in via a captive hotspot.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (flags override file values)")
	fmt.Println()
	fmt.Println("  -input-device string")
	fmt.Println("        Linux input event device for the buttons; empty disables")
	fmt.Println("        physical input (IPC-injected edges only)")
	fmt.Println()
	fmt.Println("  -portal-interface string")
	fmt.Println("        Wifi interface for the portal (default \"wlan0\")")
	fmt.Println()
	fmt.Println("  -save-path string")
	fmt.Println("        Savestate file path (default \"/var/lib/tamapod/savestate.bin\")")
	fmt.Println()
	fmt.Printf("  -update-hz int\n        Tick loop frequency in Hz (default %d)\n", defaultUpdateHz)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Unix domain socket path for IPC (default \"/tmp/tamapod.sock\")")
	fmt.Println()
	fmt.Println("  -state-ws-addr string")
	fmt.Println("        State websocket listen address (default \":3001\")")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with defaults")
	fmt.Println("  tamapod")
	fmt.Println()
	fmt.Println("  # Config file with a flag override for debugging")
	fmt.Println("  tamapod -config /etc/tamapod/config.yaml -log-level debug")
	fmt.Println()
	fmt.Println("  # Dev machine: no physical buttons, drive it with tamactl")
	fmt.Println("  tamapod -input-device \"\" -save-path ./savestate.bin")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read access to the input device (root or 'input' group)")
	fmt.Println("  - The portal shells out to nmcli; NetworkManager must be running")
	fmt.Println("  - The captive hotspot binds :80 and :53, which needs CAP_NET_BIND_SERVICE")
}

func main() {
	var (
		configPath      = flag.String("config", "", "Path to YAML config file")
		inputDevice     = flag.String("input-device", "", "Linux input event device for the buttons (empty = IPC only)")
		portalInterface = flag.String("portal-interface", "", "Wifi interface for the portal")
		savePath        = flag.String("save-path", "", "Savestate file path")
		updateHz        = flag.Int("update-hz", 0, "Tick loop frequency in Hz")
		ipcSocketPath   = flag.String("ipc-socket", "", "Unix domain socket path for IPC")
		stateWSAddr     = flag.String("state-ws-addr", "", "State websocket listen address")
		logLevelStr     = flag.String("log-level", "", "Log level: error, warn, info, debug")
		showVersion     = flag.Bool("version", false, "Print version and exit")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	// Config file is primary; flags override only when explicitly set.
	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var overrides FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input-device":
			overrides.InputDevice = inputDevice
		case "portal-interface":
			overrides.PortalInterface = portalInterface
		case "save-path":
			overrides.SavePath = savePath
		case "update-hz":
			overrides.UpdateHz = updateHz
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocketPath
		case "state-ws-addr":
			overrides.StateWSAddr = stateWSAddr
		case "log-level":
			overrides.LogLevel = logLevelStr
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	// Pet core and savestate. A restored state skips the bootstrap sequence.
	core := NewStubCore(logger)
	saver := NewStateSaver(ExpandPath(cfg.Save.Path), core, logger)
	restored, err := saver.Load()
	if err != nil {
		logger.Error("savestate load failed", "error", err)
		os.Exit(1)
	}
	state := NewDeviceState(restored)

	// Central event bus.
	events := make(chan Event, 256)

	// Message store and portal stack.
	store := NewMessageStore(time.Duration(cfg.Message.TTLMS)*time.Millisecond, cfg.Message.MaxLen)
	radio := NewNmcliRadio(cfg.Portal.Interface, logger)

	attempter := NewDeliveryAttempter(radio, logger)
	attempter.associateTimeout = time.Duration(cfg.Portal.AssociateMS) * time.Millisecond
	attempter.endpointPace = time.Duration(cfg.Portal.EndpointPaceMS) * time.Millisecond
	attempter.client = &http.Client{Timeout: time.Duration(cfg.Portal.HTTPTimeoutMS) * time.Millisecond}

	onMessage := func(m MessageReceived) {
		select {
		case events <- m:
		default:
			logger.Warn("event queue full, dropping portal message event")
		}
	}
	hotspot := NewHotspotHost(radio, store, onMessage, logger)
	hotspot.ssidPrefix = cfg.Portal.SSIDPrefix
	hotspot.portalIP = cfg.Portal.HotspotIP
	hotspot.httpAddr = cfg.Portal.HotspotIP + ":80"
	hotspot.dnsAddr = cfg.Portal.HotspotIP + ":53"
	if cfg.Portal.HTTPAddr != "" {
		hotspot.httpAddr = cfg.Portal.HTTPAddr
	}
	if cfg.Portal.DNSAddr != "" {
		hotspot.dnsAddr = cfg.Portal.DNSAddr
	}

	controller := NewPortalController(radio, attempter, hotspot, logger)
	controller.scanInterval = time.Duration(cfg.Portal.ScanIntervalMS) * time.Millisecond
	controller.recordPace = time.Duration(cfg.Portal.RecordPaceMS) * time.Millisecond

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := newPortalWorker(controller, events, logger)
	go worker.Run(ctx)

	deps := &effectDeps{
		core:   core,
		portal: worker,
		store:  store,
		saver:  saver,
	}

	// State websocket: hub, broadcaster, HTTP endpoint.
	broadcasts := make(chan StateBroadcast, 128)
	wsServer := NewServer(logger, events, ServerConfig{})
	go wsServer.Hub().Run(ctx)
	go RunBroadcaster(ctx, wsServer.Hub(), broadcasts, logger)
	go func() {
		if err := runStateWSServer(ctx, cfg.StateWS.Addr, wsServer, logger); err != nil {
			logger.Error("state ws server error", "error", err)
		}
	}()

	// Daemon brain.
	go runDaemon(ctx, events, deps, cfg.ToReduceConfig(), state, cfg.Daemon.UpdateHz, broadcasts, logger)

	// Physical buttons, when configured.
	if len(cfg.Input.Devices) > 0 {
		go func() {
			if err := runInputReader(ctx, cfg.Input.Devices, cfg.Keymap(), events, logger); err != nil {
				logger.Error("input reader error", "error", err,
					"tip", "run as root or add user to 'input' group")
				stop()
			}
		}()
	} else {
		logger.Info("no input devices configured, physical buttons disabled")
	}

	// IPC server.
	go func() {
		if err := runIPCServer(ctx, cfg.IPC.SocketPath, events, logger); err != nil {
			logger.Error("IPC server error", "error", err)
			stop()
		}
	}()

	logger.Info("tamapod running",
		"version", version,
		"input_devices", cfg.Input.Devices,
		"portal_interface", cfg.Portal.Interface,
		"ipc", cfg.IPC.SocketPath,
		"state_ws", cfg.StateWS.Addr,
		"save_path", cfg.Save.Path,
		"restored", restored,
		"update_hz", cfg.Daemon.UpdateHz)

	<-ctx.Done()
	logger.Info("shutting down")

	// Final savestate so a restart skips bootstrap and keeps the pet alive.
	if err := saver.Save(); err != nil {
		logger.Error("final savestate write failed", "error", err)
	}
}
