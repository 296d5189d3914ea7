package bridge

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/muurk/broadlink/internal/device"
	"github.com/muurk/broadlink/internal/logging"
	"github.com/muurk/broadlink/internal/protocol"
)

// Commander is the device surface the bridge drives. *device.Device
// satisfies it; tests substitute a fake.
type Commander interface {
	Info() device.Info
	Authenticate(ctx context.Context) error
	SendCode(ctx context.Context, code []byte) error
	LearnCode(ctx context.Context) (*device.LearnedCode, error)
	GetClimateState(ctx context.Context) (*protocol.ClimateState, error)
	SetClimateState(ctx context.Context, state *protocol.ClimateState) error
	GetClimateInfo(ctx context.Context) (*protocol.ClimateInfo, error)
}

// Config holds the broker connection settings. The zero value is not
// usable; Broker is required.
type Config struct {
	Broker       string
	ClientID     string
	Username     string
	Password     string
	TopicPrefix  string
	PollInterval time.Duration
}

const (
	defaultClientID     = "broadlink-bridge"
	defaultTopicPrefix  = "broadlink"
	defaultPollInterval = 30 * time.Second

	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	commandTimeout = 60 * time.Second
)

// Bridge republishes device state over MQTT and executes commands
// received on the per-device command topics.
type Bridge struct {
	cfg    Config
	client pahomqtt.Client
	logger *zap.Logger

	mu      sync.Mutex
	devices map[string]Commander
}

// New builds a bridge over the given devices. Devices are keyed by
// their MAC-derived topic id; a later duplicate MAC replaces an
// earlier one.
func New(cfg Config, devices []Commander) *Bridge {
	if cfg.ClientID == "" {
		cfg.ClientID = defaultClientID
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = defaultTopicPrefix
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	b := &Bridge{
		cfg:     cfg,
		logger:  logging.GetLogger(),
		devices: make(map[string]Commander, len(devices)),
	}
	for _, d := range devices {
		b.devices[deviceID(d.Info())] = d
	}
	return b
}

// Connect dials the broker and subscribes to the command topics. The
// bridge announces itself on <prefix>/bridge/state and leaves an
// "offline" will behind for unclean exits.
func (b *Bridge) Connect() error {
	opts := pahomqtt.NewClientOptions().
		AddBroker(b.cfg.Broker).
		SetClientID(b.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetWill(bridgeStateTopic(b.cfg.TopicPrefix), "offline", 1, true)
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		b.logger.Info("connected to MQTT broker", zap.String("broker", b.cfg.Broker))
		b.publish(bridgeStateTopic(b.cfg.TopicPrefix), "online", true)
		if token := c.Subscribe(commandFilter(b.cfg.TopicPrefix), 1, b.onMessage); token.Wait() && token.Error() != nil {
			b.logger.Error("command subscription failed", zap.Error(token.Error()))
		}
	})

	b.client = pahomqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect to %s: timed out", b.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", b.cfg.Broker, err)
	}
	return nil
}

// Run connects, authenticates every device, and polls climate state
// until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.Connect(); err != nil {
		return err
	}
	defer b.Stop()

	for id, d := range b.snapshot() {
		if err := b.authenticate(ctx, d); err != nil {
			b.logger.Warn("device authentication failed",
				zap.String("device", id), zap.Error(err))
		}
	}
	b.pollClimate(ctx)

	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.pollClimate(ctx)
		}
	}
}

// Stop announces the bridge as offline and disconnects.
func (b *Bridge) Stop() {
	if b.client == nil || !b.client.IsConnected() {
		return
	}
	b.publish(bridgeStateTopic(b.cfg.TopicPrefix), "offline", true)
	b.client.Disconnect(1000)
}

func (b *Bridge) snapshot() map[string]Commander {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]Commander, len(b.devices))
	for id, d := range b.devices {
		out[id] = d
	}
	return out
}

func (b *Bridge) lookup(id string) (Commander, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devices[id]
	return d, ok
}

func (b *Bridge) authenticate(ctx context.Context, d Commander) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return d.Authenticate(ctx)
}

func (b *Bridge) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	id, action, ok := parseCommandTopic(b.cfg.TopicPrefix, msg.Topic())
	if !ok {
		return
	}
	d, found := b.lookup(id)
	if !found {
		if id != "bridge" {
			b.logger.Warn("command for unknown device",
				zap.String("topic", msg.Topic()))
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch action {
	case actionBlast:
		err = b.blast(ctx, d, msg.Payload())
	case actionLearn:
		err = b.learn(ctx, id, d)
	case actionClimateSet:
		err = b.applyClimateSet(ctx, id, d, msg.Payload())
	case actionCode, actionClimate:
		// Our own publishes echoed back by the wildcard filter.
		return
	default:
		b.logger.Warn("unknown command action",
			zap.String("topic", msg.Topic()), zap.String("action", action))
		return
	}
	if err != nil {
		b.logger.Error("command failed",
			zap.String("device", id), zap.String("action", action), zap.Error(err))
	}
}

// blast decodes a hex code payload and transmits it.
func (b *Bridge) blast(ctx context.Context, d Commander, payload []byte) error {
	code, err := hex.DecodeString(strings.TrimSpace(string(payload)))
	if err != nil {
		return fmt.Errorf("blast payload: %w", err)
	}
	return d.SendCode(ctx, code)
}

// learn captures a code and publishes it as hex on the code topic.
func (b *Bridge) learn(ctx context.Context, id string, d Commander) error {
	code, err := d.LearnCode(ctx)
	if err != nil {
		return err
	}
	b.publish(deviceTopic(b.cfg.TopicPrefix, id, actionCode),
		hex.EncodeToString(code.Data), false)
	return nil
}

// applyClimateSet writes the requested state and republishes what the
// unit reports back, which may differ from what was asked.
func (b *Bridge) applyClimateSet(ctx context.Context, id string, d Commander, payload []byte) error {
	state, err := decodeClimateMessage(payload)
	if err != nil {
		return err
	}
	if err := d.SetClimateState(ctx, state); err != nil {
		return err
	}
	return b.publishClimate(ctx, id, d)
}

// pollClimate republishes the state of every climate device.
func (b *Bridge) pollClimate(ctx context.Context) {
	for id, d := range b.snapshot() {
		if d.Info().Kind() != device.KindClimate {
			continue
		}
		pollCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		err := b.publishClimate(pollCtx, id, d)
		cancel()
		if err != nil {
			b.logger.Warn("climate poll failed",
				zap.String("device", id), zap.Error(err))
		}
	}
}

func (b *Bridge) publishClimate(ctx context.Context, id string, d Commander) error {
	state, err := d.GetClimateState(ctx)
	if err != nil {
		return err
	}
	info, err := d.GetClimateInfo(ctx)
	if err != nil {
		// State alone is still worth publishing.
		b.logger.Debug("climate info query failed",
			zap.String("device", id), zap.Error(err))
		info = nil
	}
	msg, err := encodeClimateMessage(state, info)
	if err != nil {
		return err
	}
	b.publish(deviceTopic(b.cfg.TopicPrefix, id, actionClimate), string(msg), true)
	return nil
}

func (b *Bridge) publish(topic, payload string, retain bool) {
	token := b.client.Publish(topic, 1, retain, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			b.logger.Warn("publish timed out", zap.String("topic", topic))
			return
		}
		if err := token.Error(); err != nil {
			b.logger.Error("publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
}
