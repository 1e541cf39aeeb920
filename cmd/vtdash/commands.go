package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/muurk/vtdash/internal/config"
	"github.com/muurk/vtdash/internal/discovery"
	"github.com/muurk/vtdash/internal/entity"
	"github.com/muurk/vtdash/internal/homeassistant"
	"github.com/muurk/vtdash/internal/logging"
	"github.com/muurk/vtdash/internal/monitor"
	"github.com/muurk/vtdash/internal/session"
	"github.com/muurk/vtdash/internal/ui"
	"github.com/muurk/vtdash/internal/urls"
	"github.com/muurk/vtdash/internal/vt100"
	"go.uber.org/zap"
)

// monitorShutdownTimeout bounds the wait for in-flight status requests
const monitorShutdownTimeout = 5 * time.Second

// Command flags
var (
	watchConfig bool
	scanTimeout int
	scanFirst   bool
)

func init() {
	rootCmd.Flags().BoolVarP(&watchConfig, "watch", "w", false, "Reload the dashboard when the configuration file changes")
	runCmd.Flags().BoolVarP(&watchConfig, "watch", "w", false, "Reload the dashboard when the configuration file changes")
	discoverCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")
	discoverCmd.Flags().BoolVar(&scanFirst, "first", false, "Stop at the first server that answers")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(portsCmd)
}

// runCmd starts the dashboard
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dashboard on the configured terminal",
	Long: `Run the dashboard on the terminal named in terminal.port.

The dashboard runs until "exit" is typed on the terminal or the process is
signalled. If the terminal goes away it is reopened every second. Use the
port name "local" to drive the terminal vtdash was started from, together
with --log-file so log lines do not land on the dashboard.`,
	Example: `  # Run with config.yaml from the current directory
  vtdash run

  # Reload the layout whenever the file is saved
  vtdash run --config /etc/vtdash/config.yaml --watch

  # Drive the local terminal, logging to a file
  vtdash run --log-level debug --log-file vtdash.log`,
	RunE: runDashboard,
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Terminal.Port == vt100.LocalPort && logFile == "" && logLevel != "" {
		logging.Warn("Logging to stdout while driving the local terminal; use --log-file")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if mcfg := cfg.HomeAssistant.Monitoring; mcfg.Enabled {
		mon := monitor.New(&monitor.Config{
			Port:      mcfg.Port,
			Advertise: mcfg.Advertise,
			Name:      cfg.General.Name,
		})
		if err := mon.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), monitorShutdownTimeout)
			defer cancel()
			if err := mon.Shutdown(shutdownCtx); err != nil {
				logging.Warn("Monitoring endpoint did not shut down cleanly", zap.Error(err))
			}
		}()
	}

	logging.Info("Starting dashboard",
		zap.String("config", configPath),
		zap.String("terminal", cfg.Terminal.Port),
		zap.String("server", cfg.HomeAssistant.URL),
		zap.Bool("watch", watchConfig),
	)

	return session.New(cfg, session.Options{
		ConfigPath: configPath,
		Watch:      watchConfig,
	}).Run(ctx)
}

// checkCmd validates the configuration against the live server
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the configuration against Home Assistant",
	Long: `Load the configuration, contact Home Assistant and report any entity in
the layout that Home Assistant does not know about.

Failures include troubleshooting tips for the kind of error seen.`,
	Example: `  vtdash check
  vtdash check --config dashboard.toml`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Configuration Check",
		Command: "vtdash check",
		Params:  []ui.Param{{Key: "Config", Value: configPath}},
		StepNames: []string{
			"Load configuration",
			"Fetch entities from Home Assistant",
			"Resolve layout entities",
		},
		Hints: checkHints,
	})

	return runner.Run(func(onStep ui.StepCallback) (*ui.Result, error) {
		onStep(1, ui.StepRunning, "")
		cfg, err := config.Load(configPath)
		if err != nil {
			onStep(1, ui.StepFailed, "")
			return nil, err
		}
		onStep(1, ui.StepComplete, fmt.Sprintf("%d pages", len(cfg.Layout)))

		onStep(2, ui.StepRunning, cfg.HomeAssistant.URL)
		entities, err := fetchEntities(cmd.Context(), cfg.HomeAssistant.Transport, cfg.HomeAssistant.URL, cfg.HomeAssistant.Token)
		if err != nil {
			onStep(2, ui.StepFailed, homeassistant.ShortMessage(err))
			return nil, err
		}
		onStep(2, ui.StepComplete, humanize.Comma(int64(len(entities)))+" entities")

		onStep(3, ui.StepRunning, "")
		ids := cfg.EntityIDs()
		missing := missingEntities(ids, entities)
		if len(missing) > 0 {
			onStep(3, ui.StepComplete, fmt.Sprintf("%d missing", len(missing)))
		} else {
			onStep(3, ui.StepComplete, "")
		}

		return checkResult(cfg, entities, ids, missing), nil
	})
}

// fetchEntities lists entities over the configured transport. The REST
// client retries transient failures.
func fetchEntities(ctx context.Context, transport, baseURL, token string) ([]*entity.Entity, error) {
	provider, err := homeassistant.NewProvider(transport, baseURL, token)
	if err != nil {
		return nil, err
	}
	if closer, ok := provider.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if client, ok := provider.(*homeassistant.Client); ok {
		return client.Check(ctx)
	}
	return provider.ListEntities(ctx)
}

// checkResult summarises a successful check
func checkResult(cfg *config.Config, entities []*entity.Entity, ids, missing []string) *ui.Result {
	var switches, sensors int
	for _, e := range entities {
		switch e.Kind {
		case entity.KindSwitch:
			switches++
		case entity.KindSensor:
			sensors++
		}
	}

	var result *ui.Result
	if len(missing) == 0 {
		result = ui.NewSuccessResult("Configuration looks good")
	} else {
		result = ui.NewWarningResult(fmt.Sprintf("%d layout entities not found", len(missing)))
	}

	result.
		AddDetail("Server", cfg.HomeAssistant.URL).
		AddDetail("Transport", cfg.HomeAssistant.Transport).
		AddDetail("Terminal", fmt.Sprintf("%s @ %d baud", cfg.Terminal.Port, cfg.Terminal.Baud)).
		AddDetail("Pages", fmt.Sprintf("%d", len(cfg.Layout))).
		AddDetail("Layout", fmt.Sprintf("%d entities", len(ids))).
		AddDetail("Remote", fmt.Sprintf("%s entities (%d switches, %d sensors)",
			humanize.Comma(int64(len(entities))), switches, sensors))

	for _, id := range missing {
		result.AddNote(id + " is not known to Home Assistant")
	}
	return result
}

// missingEntities returns the layout ids Home Assistant did not report
func missingEntities(ids []string, entities []*entity.Entity) []string {
	known := make(map[string]bool, len(entities))
	for _, e := range entities {
		known[e.ID] = true
	}

	var missing []string
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func checkHints(err error) []string {
	if errors.Is(err, config.ErrInvalid) || errors.Is(err, os.ErrNotExist) {
		return []string{
			"Fix the field named in the error in " + configPath,
			"The access token may also be set in " + config.TokenEnvVar,
			"Use --config to point at a different file",
		}
	}
	return homeassistant.TroubleshootingHints(err)
}

// discoverCmd finds Home Assistant servers on the network
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find Home Assistant servers on the local network",
	Long: `Browse for Home Assistant servers using mDNS/DNS-SD discovery.

Every instance that answers before the timeout is listed with its base URL,
which can be copied into homeassistant.url.`,
	Example: `  # Browse for 5 seconds (default)
  vtdash discover

  # Longer scan for slow networks
  vtdash discover --timeout 15

  # Print only the first server to answer
  vtdash discover --first`,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(os.Stdout)
	printer.PrintHeader("Home Assistant Discovery", "vtdash discover",
		ui.Param{Key: "Service", Value: discovery.ServiceType},
		ui.Param{Key: "Timeout", Value: fmt.Sprintf("%ds", scanTimeout)},
	)

	var instances []*discovery.Instance
	err := ui.RunWithSpinner(os.Stdout, "Browsing for Home Assistant...", func() error {
		var err error
		instances, err = scan(cmd.Context(), time.Duration(scanTimeout)*time.Second, scanFirst)
		return err
	})
	if err != nil {
		printer.PrintFailure("Discovery failed", err, []string{
			"Check that multicast is allowed on this network",
			"Make sure UDP port 5353 is not blocked by a firewall",
		})
		return fmt.Errorf("discovery failed: %w", err)
	}

	printer.PrintResult(discoverResult(instances))
	return nil
}

// scan browses for the full timeout, or stops at the first answer
func scan(ctx context.Context, timeout time.Duration, firstOnly bool) ([]*discovery.Instance, error) {
	if !firstOnly {
		return discovery.Discover(ctx, timeout)
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = timeout
	instance, err := scanner.First(ctx)
	if errors.Is(err, discovery.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []*discovery.Instance{instance}, nil
}

func discoverResult(instances []*discovery.Instance) *ui.Result {
	if len(instances) == 0 {
		return ui.NewWarningResult("No Home Assistant instances found").
			AddNote("Ensure Home Assistant is running on this network segment").
			AddNote("Check that the zeroconf integration is enabled: "+urls.Zeroconf).
			AddNote("Try increasing --timeout for slower networks")
	}

	result := ui.NewSuccessResult(fmt.Sprintf("Found %d instance(s)", len(instances)))
	for _, instance := range instances {
		line := fmt.Sprintf("%s  %s", instance.Name, instance.BaseURL())
		if instance.Version != "" {
			line += "  (" + instance.Version + ")"
		}
		result.AddNote(line)
	}
	result.AddDetail("Next", "set homeassistant.url, then run 'vtdash check'")
	return result
}

// portsCmd lists terminals vtdash can drive
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Long: `List the serial ports on this machine. Any of them, or "local" for the
current terminal, can be used as terminal.port.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := vt100.Ports()
		if err != nil {
			return fmt.Errorf("failed to list serial ports: %w", err)
		}
		for _, port := range ports {
			fmt.Println(port)
		}
		fmt.Println(vt100.LocalPort)
		return nil
	},
}
