package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/broadlink/internal/config"
	"github.com/muurk/broadlink/internal/device"
	"github.com/muurk/broadlink/internal/protocol"
	"github.com/muurk/broadlink/internal/transport"
	"github.com/muurk/broadlink/internal/tui"
)

// Command flags
var (
	deviceAddr   string
	scanTimeout  int
	learnTimeout int
	securityMode string
)

func init() {
	// Common flags for device commands (persistent on root)
	rootCmd.PersistentFlags().StringVar(&deviceAddr, "device", "", "Device IP address (skips discovery)")
	rootCmd.PersistentFlags().IntVar(&scanTimeout, "timeout", 5, "Discovery timeout in seconds")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(hvacCmd)
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(pickCmd)
}

// scanCmd discovers devices on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Broadlink devices on the network",
	Long: `Scan for Broadlink devices using UDP broadcast discovery.

This command broadcasts a discovery probe and displays every device that
answers within the window, with model, IP, and MAC address. Discovered
devices are remembered in the local registry.`,
	Example: `  # Scan with the default 5-second window
  broadlink-cli scan

  # Longer scan for slow networks
  broadlink-cli scan --timeout 15`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for Broadlink devices (timeout: %ds)...\n\n", scanTimeout)

	ctx, cancel := scanContext()
	defer cancel()

	devices, err := newScanner().Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No devices found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the device is powered on and joined to this network")
		fmt.Println("  - Some networks block broadcast traffic; scan from the same subnet")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Println("  - Use --device flag to specify IP manually if discovery fails")
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(devices))
	for i, info := range devices {
		printDevice(i+1, info)
	}

	rememberDevices(devices)

	fmt.Println("Use 'broadlink-cli info --device <ip>' to inspect a device")
	fmt.Println("Use 'broadlink-cli learn --device <ip>' to capture a remote code")

	return nil
}

// infoCmd displays details for one device
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show device details",
	Long: `Probe a device and display its model, MAC address, capability class,
and pairing lock status.`,
	Example: `  # Probe a known address
  broadlink-cli info --device 192.168.1.40

  # Pick a device interactively
  broadlink-cli info`,
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	info, err := resolveDevice()
	if err != nil {
		return err
	}

	fmt.Printf("Model:    %s (0x%04X)\n", info.ModelName(), info.Model)
	fmt.Printf("Class:    %s\n", info.Kind())
	fmt.Printf("Address:  %s\n", info.AddrPort())
	fmt.Printf("MAC:      %s\n", info.MACString())
	if info.Name != "" {
		fmt.Printf("Name:     %s\n", info.Name)
	}
	if info.Locked {
		fmt.Println("Locked:   yes (device refuses new pairings)")
	}

	if registry, err := config.LoadRegistry(); err == nil {
		if d := registry.GetDevice(info.MACString()); d != nil && d.Nickname != "" {
			fmt.Printf("Nickname: %s\n", d.Nickname)
		}
	}

	return nil
}

// learnCmd captures an IR/RF code from the device
var learnCmd = &cobra.Command{
	Use:   "learn [name]",
	Short: "Capture a remote code",
	Long: `Put the device into learning mode and wait for a button press on the
original remote. The captured code is printed as hex; with a name argument
it is also saved to the local registry for later replay by name.`,
	Example: `  # Capture and print a code
  broadlink-cli learn --device 192.168.1.40

  # Capture and save as "tv_power"
  broadlink-cli learn tv_power --device 192.168.1.40`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLearn,
}

func init() {
	learnCmd.Flags().IntVar(&learnTimeout, "learn-timeout", 30, "Seconds to wait for a button press")
}

func runLearn(cmd *cobra.Command, args []string) error {
	d, err := connect()
	if err != nil {
		return err
	}
	d.LearnTimeout = time.Duration(learnTimeout) * time.Second

	fmt.Println("Learning mode active. Point the remote at the device and press a button...")

	ctx, cancel := context.WithTimeout(context.Background(), d.LearnTimeout+10*time.Second)
	defer cancel()

	code, err := d.LearnCode(ctx)
	if err != nil {
		if device.IsLearnTimeout(err) {
			return fmt.Errorf("no button press seen within %ds", learnTimeout)
		}
		return err
	}

	encoded := hex.EncodeToString(code.Data)
	fmt.Printf("\nCaptured %s code (%d bytes):\n%s\n", code.Type(), len(code.Data), encoded)

	if len(args) == 1 {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		registry.SaveCode(d.Info().MACString(), args[0], encoded)
		if err := registry.Save(); err != nil {
			return fmt.Errorf("failed to save registry: %w", err)
		}
		fmt.Printf("\nSaved as %q\n", args[0])
	}

	return nil
}

// sendCmd transmits a saved or literal code
var sendCmd = &cobra.Command{
	Use:   "send <name-or-hex>",
	Short: "Transmit a remote code",
	Long: `Transmit a code through the device's IR/RF blaster.

The argument is first looked up as a saved code name in the local registry;
if no saved code matches, it is interpreted as a literal hex string.`,
	Example: `  # Replay a saved code
  broadlink-cli send tv_power --device 192.168.1.40

  # Send a literal code
  broadlink-cli send 2600500000012... --device 192.168.1.40`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	d, err := connect()
	if err != nil {
		return err
	}

	encoded := args[0]
	if registry, err := config.LoadRegistry(); err == nil {
		if saved, ok := registry.GetCode(d.Info().MACString(), args[0]); ok {
			encoded = saved
		}
	}

	code, err := hex.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%q is not a saved code name or valid hex: %w", args[0], err)
	}

	ctx, cancel := commandContext()
	defer cancel()

	if err := d.SendCode(ctx, code); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	fmt.Printf("Sent %d bytes\n", len(code))
	return nil
}

// hvacCmd groups the air conditioner subcommands
var hvacCmd = &cobra.Command{
	Use:   "hvac",
	Short: "Control an air conditioner",
}

var hvacGetCmd = &cobra.Command{
	Use:     "get",
	Short:   "Show the current air conditioner state",
	Example: `  broadlink-cli hvac get --device 192.168.1.45`,
	RunE:    runHvacGet,
}

// hvac set flags
var (
	setPower   string
	setMode    string
	setTemp    float64
	setFan     string
	setDisplay string
)

var hvacSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the air conditioner state",
	Long: `Read the current state, apply the requested changes, and write the
result back. Unspecified settings keep their current values.`,
	Example: `  # Cool to 21.5 degrees
  broadlink-cli hvac set --power on --mode cool --temp 21.5 --device 192.168.1.45

  # Just change the fan
  broadlink-cli hvac set --fan low --device 192.168.1.45`,
	RunE: runHvacSet,
}

func init() {
	hvacCmd.AddCommand(hvacGetCmd)
	hvacCmd.AddCommand(hvacSetCmd)

	hvacSetCmd.Flags().StringVar(&setPower, "power", "", "Power (on, off)")
	hvacSetCmd.Flags().StringVar(&setMode, "mode", "", "Mode (auto, cool, dry, heat, fan)")
	hvacSetCmd.Flags().Float64Var(&setTemp, "temp", 0, "Target temperature in °C (16-32, half degrees)")
	hvacSetCmd.Flags().StringVar(&setFan, "fan", "", "Fan speed (auto, low, mid, high)")
	hvacSetCmd.Flags().StringVar(&setDisplay, "display", "", "Front panel display (on, off)")
}

var climateModes = map[string]protocol.ClimateMode{
	"auto": protocol.ModeAuto,
	"cool": protocol.ModeCool,
	"dry":  protocol.ModeDry,
	"heat": protocol.ModeHeat,
	"fan":  protocol.ModeFan,
}

var fanSpeeds = map[string]protocol.FanSpeed{
	"auto": protocol.SpeedAuto,
	"low":  protocol.SpeedLow,
	"mid":  protocol.SpeedMid,
	"high": protocol.SpeedHigh,
}

func modeName(m protocol.ClimateMode) string {
	for name, v := range climateModes {
		if v == m {
			return name
		}
	}
	return fmt.Sprintf("mode %d", m)
}

func fanName(s protocol.FanSpeed) string {
	for name, v := range fanSpeeds {
		if v == s {
			return name
		}
	}
	return fmt.Sprintf("speed %d", s)
}

func parseOnOff(flag, value string) (bool, error) {
	switch value {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --%s value %q (use on/off)", flag, value)
	}
}

func runHvacGet(cmd *cobra.Command, args []string) error {
	d, err := connect()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	state, err := d.GetClimateState(ctx)
	if err != nil {
		return err
	}

	power := "off"
	if state.Power {
		power = "on"
	}
	fmt.Printf("Power:    %s\n", power)
	fmt.Printf("Mode:     %s\n", modeName(state.Mode))
	fmt.Printf("Target:   %.1f°C\n", state.TargetTemp())
	fmt.Printf("Fan:      %s\n", fanName(state.Speed))

	if info, err := d.GetClimateInfo(ctx); err == nil {
		fmt.Printf("Ambient:  %.1f°C\n", info.AmbientTemp)
	}

	return nil
}

func runHvacSet(cmd *cobra.Command, args []string) error {
	d, err := connect()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	// Read-modify-write: unspecified flags keep the unit's current values.
	state, err := d.GetClimateState(ctx)
	if err != nil {
		return fmt.Errorf("failed to read current state: %w", err)
	}

	if setPower != "" {
		if state.Power, err = parseOnOff("power", setPower); err != nil {
			return err
		}
	}
	if setMode != "" {
		mode, ok := climateModes[setMode]
		if !ok {
			return fmt.Errorf("invalid --mode value %q", setMode)
		}
		state.Mode = mode
	}
	if cmd.Flags().Changed("temp") {
		if err := state.SetTargetTemp(setTemp); err != nil {
			return err
		}
	}
	if setFan != "" {
		speed, ok := fanSpeeds[setFan]
		if !ok {
			return fmt.Errorf("invalid --fan value %q", setFan)
		}
		state.Speed = speed
	}
	if setDisplay != "" {
		if state.Display, err = parseOnOff("display", setDisplay); err != nil {
			return err
		}
	}

	if err := d.SetClimateState(ctx, state); err != nil {
		return fmt.Errorf("failed to apply state: %w", err)
	}

	fmt.Println("✓ State applied")
	return nil
}

// provisionCmd joins a factory-reset device to a WiFi network
var provisionCmd = &cobra.Command{
	Use:   "provision <ssid>",
	Short: "Join a factory-reset device to a WiFi network",
	Long: `Send WiFi credentials to a device in AP pairing mode.

Connect your computer to the device's own hotspot first, then run this
command. The credentials are broadcast unencrypted on the hotspot and the
device gives no acknowledgement; it simply drops the hotspot and joins the
named network. The password is prompted, never passed on the command line.`,
	Example: `  # Provision onto a WPA2 network
  broadlink-cli provision HomeWiFi

  # Open network, no password prompt
  broadlink-cli provision CafeGuest --security open`,
	Args: cobra.ExactArgs(1),
	RunE: runProvision,
}

func init() {
	provisionCmd.Flags().StringVar(&securityMode, "security", "wpa2", "Network security (open, wep, wpa1, wpa2, wpa12)")
}

var securityModes = map[string]protocol.SecurityMode{
	"open":  protocol.SecurityOpen,
	"wep":   protocol.SecurityWEP,
	"wpa1":  protocol.SecurityWPA1,
	"wpa2":  protocol.SecurityWPA2,
	"wpa12": protocol.SecurityWPA12,
}

func runProvision(cmd *cobra.Command, args []string) error {
	mode, ok := securityModes[securityMode]
	if !ok {
		return fmt.Errorf("invalid --security value %q", securityMode)
	}

	creds := protocol.NetworkCredentials{
		Mode: mode,
		SSID: args[0],
	}

	if mode != protocol.SecurityOpen {
		fmt.Printf("Password for %q: ", args[0])
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		creds.Password = string(password)
	}

	ctx, cancel := commandContext()
	defer cancel()

	switch err := device.ConnectToNetwork(ctx, creds); {
	case err == nil:
		fmt.Println("Device acknowledged the credentials.")
	case device.IsNoConfirmation(err):
		fmt.Println("Credentials sent; no confirmation received (the device usually reboots without answering).")
	default:
		return fmt.Errorf("provisioning failed: %w", err)
	}

	fmt.Printf("The device should join %q within a minute;\n", args[0])
	fmt.Println("run 'broadlink-cli scan' on that network to find it.")
	return nil
}

// pickCmd launches the interactive device picker
var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Pick a device interactively",
	Long: `Launch the full-screen device picker.

The picker scans the network, lists responding devices, and prints the
selection. It is also the fallback for every command run without --device.`,
	RunE: runPick,
}

func runPick(cmd *cobra.Command, args []string) error {
	info, picked, err := tui.Pick(time.Duration(scanTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("picker error: %w", err)
	}
	if !picked {
		return nil
	}

	printDevice(0, info)
	rememberDevices([]device.Info{info})
	return nil
}

// resolveDevice finds the target device: --device flag, or the picker.
func resolveDevice() (device.Info, error) {
	if deviceAddr != "" {
		addr, err := parseDeviceAddr(deviceAddr)
		if err != nil {
			return device.Info{}, err
		}
		ctx, cancel := scanContext()
		defer cancel()
		info, err := newScanner().Probe(ctx, addr)
		if err != nil {
			return device.Info{}, fmt.Errorf("no device at %s: %w", addr, err)
		}
		return info, nil
	}

	info, picked, err := tui.Pick(time.Duration(scanTimeout) * time.Second)
	if err != nil {
		return device.Info{}, err
	}
	if !picked {
		return device.Info{}, fmt.Errorf("no device selected")
	}
	return info, nil
}

// connect resolves the target device and completes the pairing handshake.
func connect() (*device.Device, error) {
	info, err := resolveDevice()
	if err != nil {
		return nil, err
	}

	d := device.New(info)
	ctx, cancel := commandContext()
	defer cancel()
	if err := d.Authenticate(ctx); err != nil {
		if info.Locked {
			return nil, fmt.Errorf("pairing failed (device is locked; unlock it in the vendor app): %w", err)
		}
		return nil, fmt.Errorf("pairing failed: %w", err)
	}
	return d, nil
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

func newScanner() *device.Scanner {
	s := device.NewScanner()
	s.Client.Timeout = time.Duration(scanTimeout) * time.Second
	return s
}

func scanContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(),
		time.Duration(scanTimeout)*time.Second+5*time.Second)
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func printDevice(index int, info device.Info) {
	if index > 0 {
		fmt.Printf("%d. %s\n", index, displayName(info))
	} else {
		fmt.Printf("%s\n", displayName(info))
	}
	fmt.Printf("   Model:  %s (0x%04X)\n", info.ModelName(), info.Model)
	fmt.Printf("   IP:     %s\n", info.AddrPort())
	fmt.Printf("   MAC:    %s\n", info.MACString())
	if info.Locked {
		fmt.Println("   Locked: yes")
	}
	fmt.Println()
}

func displayName(info device.Info) string {
	if info.Name != "" {
		return info.Name
	}
	return info.ModelName()
}

// rememberDevices updates the registry's last-seen records. Registry
// problems are not fatal to a scan.
func rememberDevices(devices []device.Info) {
	registry, err := config.LoadRegistry()
	if err != nil {
		return
	}
	for _, info := range devices {
		registry.UpdateDeviceLastSeen(info.MACString(), info.AddrPort().String())
	}
	_ = registry.Save()
}
