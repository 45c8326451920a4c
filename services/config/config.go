package config

import (
	"context"
	"time"

	"uartdiag/bus"
	"uartdiag/errcode"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

var (
	TopicDiag      = bus.T(configPrefix, "diag")
	TopicHeartbeat = bus.T(configPrefix, "heartbeat")
)

// Timings are the LED delays. Defaults are scaled from busy-wait loop
// counts at roughly 4 µs per 1000 iterations.
type Timings struct {
	BlinkHalf  time.Duration `json:"blink_half"`  // 1e6 iterations
	PressFlash time.Duration `json:"press_flash"` // 5e5
	PressStep  time.Duration `json:"press_step"`  // 3e5
	AllOn      time.Duration `json:"all_on"`      // 1e6
	BootDelay  time.Duration `json:"boot_delay"`  // 2e6
}

type Config struct {
	Baud              uint32        `json:"baud"`
	Debounce          time.Duration `json:"debounce"`
	IgnoreLineEndings bool          `json:"ignore_line_endings"`
	Telemetry         bool          `json:"telemetry"`
	Timings           Timings       `json:"timings"`
}

// Heartbeat is published on its own topic for the heartbeat service.
type Heartbeat struct {
	Interval time.Duration `json:"interval"` // 0 disables
}

func Default() Config {
	return Config{
		Baud:              9600,
		Debounce:          50 * time.Millisecond,
		IgnoreLineEndings: true,
		Timings: Timings{
			BlinkHalf:  250 * time.Millisecond,
			PressFlash: 125 * time.Millisecond,
			PressStep:  75 * time.Millisecond,
			AllOn:      250 * time.Millisecond,
			BootDelay:  500 * time.Millisecond,
		},
	}
}

const maxStep = 5 * time.Second

var bauds = []uint32{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// Validate clamps timings into range and rejects unsupported baud rates.
func (c *Config) Validate() error {
	if c.Baud == 0 {
		c.Baud = 9600
	}
	ok := false
	for _, b := range bauds {
		if b == c.Baud {
			ok = true
			break
		}
	}
	if !ok {
		return &errcode.E{C: errcode.InvalidConfig, Op: "validate", Msg: "unsupported baud"}
	}
	c.Debounce = clamp(c.Debounce, 0, time.Second)
	t := &c.Timings
	t.BlinkHalf = clamp(t.BlinkHalf, 0, maxStep)
	t.PressFlash = clamp(t.PressFlash, 0, maxStep)
	t.PressStep = clamp(t.PressStep, 0, maxStep)
	t.AllOn = clamp(t.AllOn, 0, maxStep)
	t.BootDelay = clamp(t.BootDelay, 0, maxStep)
	return nil
}

func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type Service struct {
	Name      string
	Diag      Config
	Heartbeat Heartbeat
}

func NewService(diag Config, hb Heartbeat) *Service {
	return &Service{Name: serviceName, Diag: diag, Heartbeat: hb}
}

// Publish validates and publishes each section as a retained message.
func (s *Service) Publish(conn *bus.Connection) error {
	cfg := s.Diag
	if err := cfg.Validate(); err != nil {
		return err
	}
	if s.Heartbeat.Interval < 0 {
		s.Heartbeat.Interval = 0
	}
	conn.Publish(conn.NewMessage(TopicDiag, cfg, true))
	conn.Publish(conn.NewMessage(TopicHeartbeat, s.Heartbeat, true))
	return nil
}

// Start publishes from a goroutine; failures are logged.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if ctx.Err() != nil {
			return
		}
		if err := s.Publish(conn); err != nil {
			println("[config] publish failed:", err.Error())
		}
	}()
}
