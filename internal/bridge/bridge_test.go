package bridge

import (
	"context"
	"encoding/json"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/muurk/broadlink/internal/device"
	"github.com/muurk/broadlink/internal/protocol"
)

func TestParseCommandTopic(t *testing.T) {
	tests := []struct {
		topic      string
		id, action string
		ok         bool
	}{
		{"broadlink/34ea34010203/blast", "34ea34010203", "blast", true},
		{"broadlink/34ea34010203/climate/set", "34ea34010203", "climate/set", true},
		{"broadlink/bridge/state", "bridge", "state", true},
		{"broadlink/34ea34010203", "", "", false},
		{"other/34ea34010203/blast", "", "", false},
		{"broadlink//blast", "", "", false},
	}
	for _, tt := range tests {
		id, action, ok := parseCommandTopic("broadlink", tt.topic)
		if id != tt.id || action != tt.action || ok != tt.ok {
			t.Errorf("parseCommandTopic(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.topic, id, action, ok, tt.id, tt.action, tt.ok)
		}
	}
}

func TestDeviceID(t *testing.T) {
	info := device.Info{MAC: [6]byte{0x34, 0xEA, 0x34, 0x01, 0x02, 0x03}}
	if got := deviceID(info); got != "34ea34010203" {
		t.Errorf("deviceID = %q, want 34ea34010203", got)
	}
}

func TestClimateMessageRoundTrip(t *testing.T) {
	state := &protocol.ClimateState{
		Power:   true,
		Mode:    protocol.ModeHeat,
		Speed:   protocol.SpeedLow,
		Preset:  protocol.PresetMute,
		SwingH:  protocol.SwingHLeftRight,
		SwingV:  protocol.SwingVPos3,
		Display: true,
		Health:  true,
	}
	if err := state.SetTargetTemp(21.5); err != nil {
		t.Fatal(err)
	}

	raw, err := encodeClimateMessage(state, &protocol.ClimateInfo{AmbientTemp: 24.5})
	if err != nil {
		t.Fatalf("encodeClimateMessage: %v", err)
	}

	var msg climateMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("published JSON does not parse: %v", err)
	}
	if msg.Mode != "heat" || msg.FanSpeed != "low" || msg.Preset != "mute" {
		t.Errorf("enum names = %q/%q/%q", msg.Mode, msg.FanSpeed, msg.Preset)
	}
	if msg.AmbientTemp == nil || *msg.AmbientTemp != 24.5 {
		t.Errorf("ambient_temp = %v, want 24.5", msg.AmbientTemp)
	}

	decoded, err := decodeClimateMessage(raw)
	if err != nil {
		t.Fatalf("decodeClimateMessage: %v", err)
	}
	if decoded.Mode != state.Mode || decoded.Speed != state.Speed ||
		decoded.Preset != state.Preset || decoded.SwingH != state.SwingH ||
		decoded.SwingV != state.SwingV || decoded.TargetTemp() != 21.5 {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
	if !decoded.Power || !decoded.Display || !decoded.Health || decoded.Sleep {
		t.Errorf("flag mismatch: %+v", decoded)
	}
}

func TestEncodeClimateMessageWithoutInfo(t *testing.T) {
	raw, err := encodeClimateMessage(&protocol.ClimateState{Mode: protocol.ModeCool}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "ambient_temp") {
		t.Errorf("ambient_temp present without info: %s", raw)
	}
}

func TestDecodeClimateMessageRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not JSON", "on"},
		{"unknown mode", `{"mode":"boost","fan_speed":"auto","preset":"normal","swing_h":"off","swing_v":"off","target_temp":21}`},
		{"unknown fan speed", `{"mode":"cool","fan_speed":"turbo","preset":"normal","swing_h":"off","swing_v":"off","target_temp":21}`},
		{"temperature out of range", `{"mode":"cool","fan_speed":"auto","preset":"normal","swing_h":"off","swing_v":"off","target_temp":45}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeClimateMessage([]byte(tt.payload)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// fakeCommander records calls and serves canned replies.
type fakeCommander struct {
	info device.Info

	mu       sync.Mutex
	sent     [][]byte
	written  []*protocol.ClimateState
	learned  *device.LearnedCode
	state    *protocol.ClimateState
	infoResp *protocol.ClimateInfo
}

func (f *fakeCommander) Info() device.Info                      { return f.info }
func (f *fakeCommander) Authenticate(ctx context.Context) error { return nil }

func (f *fakeCommander) SendCode(ctx context.Context, code []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, code)
	return nil
}

func (f *fakeCommander) LearnCode(ctx context.Context) (*device.LearnedCode, error) {
	return f.learned, nil
}

func (f *fakeCommander) GetClimateState(ctx context.Context) (*protocol.ClimateState, error) {
	return f.state, nil
}

func (f *fakeCommander) SetClimateState(ctx context.Context, state *protocol.ClimateState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, state)
	return nil
}

func (f *fakeCommander) GetClimateInfo(ctx context.Context) (*protocol.ClimateInfo, error) {
	return f.infoResp, nil
}

// fakeToken completes immediately.
type fakeToken struct{}

func (fakeToken) Wait() bool                     { return true }
func (fakeToken) WaitTimeout(time.Duration) bool { return true }
func (fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (fakeToken) Error() error { return nil }

type published struct {
	topic   string
	payload string
	retain  bool
}

// fakeMQTT records publishes; every other operation is inert.
type fakeMQTT struct {
	mu        sync.Mutex
	published []published
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{topic, payload.(string), retained})
	return fakeToken{}
}

func (f *fakeMQTT) IsConnected() bool      { return true }
func (f *fakeMQTT) IsConnectionOpen() bool { return true }
func (f *fakeMQTT) Connect() pahomqtt.Token {
	return fakeToken{}
}
func (f *fakeMQTT) Disconnect(quiesce uint) {}
func (f *fakeMQTT) Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token {
	return fakeToken{}
}
func (f *fakeMQTT) SubscribeMultiple(filters map[string]byte, callback pahomqtt.MessageHandler) pahomqtt.Token {
	return fakeToken{}
}
func (f *fakeMQTT) Unsubscribe(topics ...string) pahomqtt.Token { return fakeToken{} }
func (f *fakeMQTT) AddRoute(topic string, callback pahomqtt.MessageHandler) {}
func (f *fakeMQTT) OptionsReader() pahomqtt.ClientOptionsReader {
	return pahomqtt.ClientOptionsReader{}
}

func (f *fakeMQTT) find(t *testing.T, topic string) published {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.published {
		if p.topic == topic {
			return p
		}
	}
	t.Fatalf("nothing published on %q (got %d messages)", topic, len(f.published))
	return published{}
}

func testInfo(model uint16) device.Info {
	return device.Info{
		Addr:  netip.MustParseAddr("192.0.2.10"),
		Port:  80,
		MAC:   [6]byte{0x34, 0xEA, 0x34, 0x01, 0x02, 0x03},
		Model: model,
	}
}

func testBridge(t *testing.T, d Commander) (*Bridge, *fakeMQTT) {
	t.Helper()
	b := New(Config{Broker: "tcp://127.0.0.1:1883"}, []Commander{d})
	client := &fakeMQTT{}
	b.client = client
	return b, client
}

func TestBlast(t *testing.T) {
	fc := &fakeCommander{info: testInfo(0x649B)}
	b, _ := testBridge(t, fc)

	if err := b.blast(context.Background(), fc, []byte("260004ab\n")); err != nil {
		t.Fatalf("blast: %v", err)
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.sent) != 1 || fc.sent[0][0] != 0x26 || len(fc.sent[0]) != 4 {
		t.Errorf("sent = %x", fc.sent)
	}
}

func TestBlastRejectsBadHex(t *testing.T) {
	fc := &fakeCommander{info: testInfo(0x649B)}
	b, _ := testBridge(t, fc)
	if err := b.blast(context.Background(), fc, []byte("not hex")); err == nil {
		t.Error("expected error for non-hex payload")
	}
}

func TestLearnPublishesCode(t *testing.T) {
	fc := &fakeCommander{
		info:    testInfo(0x649B),
		learned: &device.LearnedCode{Data: []byte{protocol.CodeMarkerIR, 0x00, 0x04, 0xAB}},
	}
	b, client := testBridge(t, fc)

	if err := b.learn(context.Background(), "34ea34010203", fc); err != nil {
		t.Fatalf("learn: %v", err)
	}
	p := client.find(t, "broadlink/34ea34010203/code")
	if p.payload != "260004ab" {
		t.Errorf("code payload = %q, want 260004ab", p.payload)
	}
	if p.retain {
		t.Error("captured codes must not be retained")
	}
}

func TestApplyClimateSetRepublishesState(t *testing.T) {
	reported := &protocol.ClimateState{
		Power:  true,
		Mode:   protocol.ModeCool,
		Speed:  protocol.SpeedAuto,
		SwingH: protocol.SwingHOff,
		SwingV: protocol.SwingVOff,
	}
	if err := reported.SetTargetTemp(23); err != nil {
		t.Fatal(err)
	}
	fc := &fakeCommander{
		info:     testInfo(0x4E2A),
		state:    reported,
		infoResp: &protocol.ClimateInfo{Power: true, AmbientTemp: 26},
	}
	b, client := testBridge(t, fc)

	set := `{"power":true,"mode":"cool","fan_speed":"auto","preset":"normal","swing_h":"off","swing_v":"off","target_temp":23}`
	if err := b.applyClimateSet(context.Background(), "34ea34010203", fc, []byte(set)); err != nil {
		t.Fatalf("applyClimateSet: %v", err)
	}

	fc.mu.Lock()
	if len(fc.written) != 1 || fc.written[0].Mode != protocol.ModeCool || fc.written[0].TargetTemp() != 23 {
		t.Errorf("written = %+v", fc.written)
	}
	fc.mu.Unlock()

	p := client.find(t, "broadlink/34ea34010203/climate/state")
	if !p.retain {
		t.Error("climate state must be retained")
	}
	var msg climateMessage
	if err := json.Unmarshal([]byte(p.payload), &msg); err != nil {
		t.Fatalf("published state does not parse: %v", err)
	}
	if msg.Mode != "cool" || msg.TargetTemp != 23 {
		t.Errorf("published state = %+v", msg)
	}
	if msg.AmbientTemp == nil || *msg.AmbientTemp != 26 {
		t.Errorf("ambient_temp = %v, want 26", msg.AmbientTemp)
	}
}

func TestApplyClimateSetRejectsBadPayload(t *testing.T) {
	fc := &fakeCommander{info: testInfo(0x4E2A)}
	b, client := testBridge(t, fc)
	if err := b.applyClimateSet(context.Background(), "34ea34010203", fc, []byte("{")); err == nil {
		t.Error("expected error for malformed payload")
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.published) != 0 {
		t.Errorf("published %d messages for a rejected set", len(client.published))
	}
}

func TestPollClimateSkipsRemotes(t *testing.T) {
	remote := &fakeCommander{info: testInfo(0x649B)}
	b, client := testBridge(t, remote)

	b.pollClimate(context.Background())

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.published) != 0 {
		t.Errorf("published %d messages for a remote-only bridge", len(client.published))
	}
}

var _ Commander = (*device.Device)(nil)
