package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"hausprox/admin"
	"hausprox/button"
	"hausprox/capture"
	"hausprox/cardstore"
	"hausprox/clock"
	"hausprox/controller"
	"hausprox/door"
	"hausprox/eventlog"
	"hausprox/eventpipe"
	"hausprox/indicator"
	"hausprox/metrics"
	"hausprox/mqtt"
	"hausprox/reader"
)

var myBuild string

// Loop periods.
const (
	loopTick     = time.Millisecond
	pingInterval = 120 * time.Second
	strikeTest   = 3 * time.Second
)

// App owns every component. The controller and card store are only touched
// from the main loop goroutine; other goroutines hand work to it through
// requests.
type App struct {
	cfg *Config

	capture   *capture.Buffer
	store     *cardstore.Store
	door      *door.Door
	indicator indicator.Indicator
	buttonSim *button.Sim
	buttonHW  *button.GPIO
	reader    *reader.Reader
	clock     clock.Setter
	logFile   *eventlog.File
	events    *eventlog.Logger
	ctrl      *controller.Controller

	mqtt       *mqtt.Client
	verifier   mqtt.OpenVerifier
	metrics    *metrics.Recorder
	metricsSrv *metrics.Server
	pipe       *eventpipe.EventPipe
	terminal   admin.Terminal

	requests chan func()
	scan     *scanWaiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func main() {
	fmt.Printf("hausprox build %s\n", myBuild)

	cfgfile := flag.String("cfg", "hausprox.yml", "Config file")
	initdb := flag.Bool("initdb", false, "Create an empty card database if none exists")
	flag.Parse()

	cfg, err := LoadConfig(*cfgfile)
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("Init: %v", err)
	}

	if *initdb {
		if err := app.store.Init(); err != nil {
			log.Fatalf("Init card DB: %v", err)
		}
	}

	if w, err := NewConfigWatcher(*cfgfile, app.Reload); err != nil {
		log.Printf("Config reload disabled: %v", err)
	} else {
		go w.Run(app.ctx)
	}

	app.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	app.Close()
	fmt.Println("Shutdown complete")
}

// NewApp builds the components named in cfg. Hardware that is not
// configured is replaced by a no-op or simulated stand-in.
func NewApp(cfg *Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		cfg:       cfg,
		capture:   &capture.Buffer{},
		store:     cardstore.New(cfg.CardDB),
		buttonSim: &button.Sim{},
		requests:  make(chan func()),
		ctx:       ctx,
		cancel:    cancel,
	}

	var err error
	if app.clock, err = clock.New(cfg.Clock); err != nil {
		return nil, fmt.Errorf("init clock: %w", err)
	}

	if app.indicator, err = indicator.New(cfg.Indicator); err != nil {
		return nil, fmt.Errorf("init indicator: %w", err)
	}

	latch, err := door.New(cfg.Door)
	if err != nil {
		return nil, fmt.Errorf("init door: %w", err)
	}
	app.door = door.NewDoor(latch, func(err error) {
		log.Printf("Door latch: %v", err)
	})

	if app.buttonHW, err = button.New(cfg.Button); err != nil {
		return nil, fmt.Errorf("init button: %w", err)
	}
	var line button.Line = app.buttonSim
	if app.buttonHW != nil {
		line = button.Any{app.buttonSim, app.buttonHW}
	}

	if app.reader, err = reader.New(cfg.Reader, app.capture); err != nil {
		return nil, fmt.Errorf("init reader: %w", err)
	}

	app.mqtt, err = mqtt.New(cfg.MQTT, cfg.ClientID, mqtt.Handlers{
		OnConnect: app.onMQTTConnect,
		OnMessage: app.onMQTTMessage,
	})
	if err != nil {
		return nil, fmt.Errorf("init MQTT: %w", err)
	}
	app.verifier = mqtt.OpenVerifier{Secret: cfg.OpenSecret, Door: cfg.ClientID}

	app.logFile = eventlog.NewFile(cfg.LogDir, os.Stdout)
	app.metrics = metrics.NewRecorder(app.door.IsLocked)
	app.events = eventlog.New(app.clock, app.logFile, app.metrics)
	if app.mqtt.IsEnabled() {
		app.events.Add(eventlog.NewMQTT(app.mqtt, mqtt.EventTopic(cfg.ClientID)))
	}
	app.metricsSrv = metrics.NewServer(cfg.Metrics, app.metrics)

	app.ctrl = controller.New(controller.Config{
		Capture:   app.capture,
		Store:     app.store,
		Door:      app.door,
		Log:       app.events,
		Feedback:  app.indicator,
		Button:    line,
		Durations: cfg.Durations(),
	})

	if app.pipe, err = eventpipe.New(cfg.EventPipe, app.onPipeEvent); err != nil {
		return nil, fmt.Errorf("init event pipe: %w", err)
	}

	if app.terminal, err = admin.Open(cfg.Admin); err != nil {
		return nil, fmt.Errorf("init admin console: %w", err)
	}

	return app, nil
}

// Start boots the controller and starts every goroutine.
func (app *App) Start() {
	app.ctrl.Boot()

	app.wg.Add(2)
	go app.loop()
	go app.doorTicker()
	go app.pingSender()
	go func() {
		if err := app.mqtt.Connect(); err != nil {
			log.Printf("MQTT connect: %v", err)
		}
	}()
	if app.metricsSrv != nil {
		go app.metricsSrv.Start()
	}
	if app.pipe != nil {
		go app.pipe.Start()
	}
	if app.terminal != nil {
		console := admin.NewConsole(app, app.terminal, app.terminal, app.cfg.Password)
		go func() {
			if err := console.Run(app.ctx); err != nil && app.ctx.Err() == nil {
				log.Printf("Admin console stopped: %v", err)
			}
		}()
	}
}

// Close stops the goroutines and releases the hardware. The door is left
// locked.
func (app *App) Close() {
	app.cancel()
	app.wg.Wait()

	app.mqtt.Disconnect()
	if app.metricsSrv != nil {
		app.metricsSrv.Close()
	}
	if app.pipe != nil {
		app.pipe.Close()
	}
	if app.terminal != nil {
		app.terminal.Close()
	}
	if app.reader != nil {
		app.reader.Close()
	}
	if app.buttonHW != nil {
		app.buttonHW.Release()
	}
	app.door.Lock()
	app.door.Release()
	app.indicator.Release()
	if c, ok := app.clock.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("Close clock: %v", err)
		}
	}
}

// loop is the main loop: one controller tick per millisecond, with requests
// from other goroutines run in between.
func (app *App) loop() {
	defer app.wg.Done()
	ticker := time.NewTicker(loopTick)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case req := <-app.requests:
			req()
		case <-ticker.C:
			app.ctrl.Tick()
			app.pollScan()
		}
	}
}

// doorTicker counts the door's unlock time down.
func (app *App) doorTicker() {
	defer app.wg.Done()
	ticker := time.NewTicker(controller.DoorTick)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			app.door.Tick()
		}
	}
}

// do runs fn on the main loop and waits for it. It returns false if the app
// is shutting down.
func (app *App) do(fn func()) bool {
	done := make(chan struct{})
	select {
	case app.requests <- func() { fn(); close(done) }:
	case <-app.ctx.Done():
		return false
	}
	select {
	case <-done:
		return true
	case <-app.ctx.Done():
		return false
	}
}

// Reload applies a changed config file.
func (app *App) Reload(cfg *Config) {
	app.do(func() {
		app.ctrl.Configure(cfg.Durations())
	})
}

func (app *App) onPipeEvent(e eventpipe.Event) {
	switch e.Kind {
	case eventpipe.Swipe:
		if app.reader != nil {
			log.Println("Event pipe swipe ignored, a reader is wired")
			return
		}
		for _, level := range e.Levels {
			if !app.capture.Append(level) {
				break
			}
		}
	case eventpipe.Button:
		app.buttonSim.Set(e.Pressed)
	}
}

func (app *App) onMQTTConnect() {
	if err := app.mqtt.Subscribe(mqtt.OpenTopic(app.cfg.ClientID)); err != nil {
		log.Printf("Subscribe error: %v", err)
	}
}

func (app *App) onMQTTMessage(topic string, payload []byte) {
	if topic != mqtt.OpenTopic(app.cfg.ClientID) {
		return
	}
	req, err := app.verifier.Verify(payload)
	if err != nil {
		log.Printf("Remote open rejected: %v", err)
		return
	}
	app.do(func() {
		app.ctrl.RemoteUnlock(req.Member)
	})
}

func (app *App) pingSender() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			app.mqtt.Publish(mqtt.PingTopic(app.cfg.ClientID), `{"status":"ok"}`)
		}
	}
}
