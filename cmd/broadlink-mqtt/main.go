// Broadlink-mqtt is an MQTT bridge for Broadlink smart-home devices.
//
// It discovers devices on the local network, pairs with them, and
// exposes them over an MQTT broker: remote controls accept codes to
// blast and publish learned captures, air conditioners publish their
// state as retained JSON and accept state changes.
//
// Usage:
//
//	broadlink-mqtt run [flags]
//
// Broker defaults come from the broadlink-cli configuration file; flags
// override them. The broker password is read from the
// BROADLINK_MQTT_PASSWORD environment variable, never from a flag.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/broadlink/internal/bridge"
	"github.com/muurk/broadlink/internal/config"
	"github.com/muurk/broadlink/internal/device"
	"github.com/muurk/broadlink/internal/logging"
	"github.com/muurk/broadlink/internal/transport"
	"github.com/muurk/broadlink/internal/version"
)

// passwordEnvVar names the environment variable holding the broker
// password. Passwords never appear on the command line or in the
// configuration file.
const passwordEnvVar = "BROADLINK_MQTT_PASSWORD"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "broadlink-mqtt",
	Short: "Broadlink MQTT Bridge",
	Long: `An MQTT bridge for Broadlink smart-home devices.

Discovers devices on the local network, pairs with them, and republishes
them over an MQTT broker under a per-device topic tree.

Note: For one-off device control, use the separate 'broadlink-cli' utility.`,
	Version: version.Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Silent unless BROADLINK_LOG_LEVEL is set.
		_ = logging.InitializeFromEnv()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// Run command and flags
var (
	broker       string
	clientID     string
	username     string
	topicPrefix  string
	pollInterval int
	scanTimeout  int
	deviceAddrs  []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bridge",
	Long: `Start the MQTT bridge.

Without --device flags the bridge scans the network at startup and serves
every device that answers. With --device flags only the named addresses
are served; discovery is skipped.

Each flag falls back to the corresponding setting in the broadlink-cli
configuration file when unset.`,
	Example: `  # Serve every discovered device via the configured broker
  broadlink-mqtt run

  # Explicit broker and devices
  broadlink-mqtt run --broker tcp://10.0.0.5:1883 --device 192.168.1.40 --device 192.168.1.45

  # Authenticated broker
  BROADLINK_MQTT_PASSWORD=secret broadlink-mqtt run --username bridge`,
	RunE: runBridge,
}

func init() {
	runCmd.Flags().StringVar(&broker, "broker", "", "Broker URL, e.g. tcp://127.0.0.1:1883")
	runCmd.Flags().StringVar(&clientID, "client-id", "", "MQTT client identifier")
	runCmd.Flags().StringVar(&username, "username", "", "Broker username")
	runCmd.Flags().StringVar(&topicPrefix, "prefix", "", "Topic tree root (default \"broadlink\")")
	runCmd.Flags().IntVar(&pollInterval, "poll", 0, "Climate poll interval in seconds (default 30)")
	runCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Discovery timeout in seconds")
	runCmd.Flags().StringArrayVar(&deviceAddrs, "device", nil, "Device IP address (repeatable; skips discovery)")
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg := bridgeConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	devices, err := findDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return fmt.Errorf("no devices found; check the network or use --device")
	}

	commanders := make([]bridge.Commander, len(devices))
	for i, info := range devices {
		fmt.Printf("Serving %s (%s, %s)\n", displayName(info), info.AddrPort(), info.MACString())
		commanders[i] = device.New(info)
	}

	fmt.Printf("Connecting to %s...\n", cfg.Broker)
	b := bridge.New(cfg, commanders)
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println("Bridge stopped")
	return nil
}

// bridgeConfig merges flags over the stored preferences.
func bridgeConfig() bridge.Config {
	cfg := bridge.Config{
		Broker:       broker,
		ClientID:     clientID,
		Username:     username,
		Password:     os.Getenv(passwordEnvVar),
		TopicPrefix:  topicPrefix,
		PollInterval: time.Duration(pollInterval) * time.Second,
	}

	registry, err := config.LoadRegistry()
	if err != nil || registry.Preferences == nil || registry.Preferences.MQTT == nil {
		if cfg.Broker == "" {
			cfg.Broker = "tcp://127.0.0.1:1883"
		}
		return cfg
	}

	prefs := registry.Preferences.MQTT
	if cfg.Broker == "" {
		cfg.Broker = prefs.Broker
	}
	if cfg.ClientID == "" {
		cfg.ClientID = prefs.ClientID
	}
	if cfg.Username == "" {
		cfg.Username = prefs.Username
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = prefs.TopicPrefix
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Duration(prefs.PollInterval) * time.Second
	}
	return cfg
}

// findDevices resolves the served device set: explicit addresses, or a
// startup discovery scan.
func findDevices(ctx context.Context) ([]device.Info, error) {
	scanner := device.NewScanner()
	scanner.Client.Timeout = time.Duration(scanTimeout) * time.Second

	if len(deviceAddrs) > 0 {
		devices := make([]device.Info, 0, len(deviceAddrs))
		for _, addr := range deviceAddrs {
			parsed, err := parseDeviceAddr(addr)
			if err != nil {
				return nil, err
			}
			info, err := scanner.Probe(ctx, parsed)
			if err != nil {
				return nil, fmt.Errorf("no device at %s: %w", parsed, err)
			}
			devices = append(devices, info)
		}
		return devices, nil
	}

	fmt.Printf("Scanning for devices (timeout: %ds)...\n", scanTimeout)
	return scanner.Scan(ctx)
}

func parseDeviceAddr(s string) (netip.AddrPort, error) {
	if !strings.Contains(s, ":") {
		s += fmt.Sprintf(":%d", transport.DefaultDevicePort)
	}
	addr, err := netip.ParseAddrPort(s)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("invalid device address %q: %w", s, err)
	}
	return addr, nil
}

func displayName(info device.Info) string {
	if info.Name != "" {
		return info.Name
	}
	return info.ModelName()
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("broadlink-mqtt %s (commit: %s)\n", version.Version, version.Commit)
	},
}
