package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/five82/roost/internal/app"
	"github.com/five82/roost/internal/config"
	"github.com/five82/roost/internal/logging"
	"github.com/five82/roost/internal/state"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "roost: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "roost",
		Usage: "touch panel companion for a Klipper printer behind Moonraker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "config file (default ~/.config/roost/config.toml)",
				EnvVars: []string{"ROOST_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error (overrides the config file)",
				EnvVars: []string{"ROOST_LOG_LEVEL"},
			},
			headlessFlag(),
		},
		Action: runPanel,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the panel (default)",
				Flags:  []cli.Flag{headlessFlag()},
				Action: runPanel,
			},
			{
				Name:   "status",
				Usage:  "refresh once and print the printer state",
				Action: runStatus,
			},
			{
				Name:      "gcode",
				Usage:     "send one G-code script and print the outcome",
				ArgsUsage: "<script>",
				Action:    runGcode,
			},
		},
	}
}

func headlessFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "headless",
		Usage: "run the loops and status API without the terminal panel",
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

func runPanel(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	headless := c.Bool("headless")

	// The panel owns the terminal, so logs go to the file it can tail.
	logPath := ""
	if !headless {
		logPath = cfg.LogFile
	}
	logger, closeLog, err := logging.New(cfg.LogLevel, logPath)
	if err != nil {
		return err
	}
	defer closeLog()

	return app.Run(c.Context, app.Options{
		Config:   cfg,
		Logger:   logger,
		LogPath:  logPath,
		Headless: headless,
	})
}

func runStatus(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.New(cfg.LogLevel, "")
	if err != nil {
		return err
	}
	defer closeLog()

	snap, err := app.Status(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	printStatus(cfg, snap)
	return nil
}

func printStatus(cfg config.Config, snap state.Snapshot) {
	p := snap.Printer
	fmt.Printf("printer:   %s\n", cfg.Address())
	fmt.Printf("status:    %s\n", snap.StatusText())
	fmt.Printf("readiness: %s\n", snap.Readiness)
	fmt.Printf("nozzle:    %d / %d °C\n", p.NozzleActual, p.NozzleTarget)
	fmt.Printf("bed:       %d / %d °C\n", p.BedActual, p.BedTarget)
	if p.Printing {
		fmt.Printf("progress:  %d%% %s\n", p.Progress, p.FilePath)
	}
	if w := snap.LastWarning; w.Message != "" {
		fmt.Printf("warning:   %s\n", w.Message)
	}
}

func runGcode(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: roost gcode <script>", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.New(cfg.LogLevel, "")
	if err != nil {
		return err
	}
	defer closeLog()

	res, err := app.SendGcode(c.Context, cfg, logger, c.Args().First())
	if err != nil {
		return err
	}
	logger.Debug("gcode sent", zap.Stringer("result", res))
	fmt.Println(res)
	if !res.Succeeded() {
		return cli.Exit("", 1)
	}
	return nil
}
