package types

// ---- Service state (retained) ----

type DiagState struct {
	Level  string `json:"level"`  // "booting", "ready", "stopped"
	Status string `json:"status"` // freeform short code
	TS     int64  `json:"ts_ms"`
}

// ---- LEDs ----

// LED identifies one of the board LEDs, or all of them.
type LED uint8

const (
	LEDGreen LED = iota
	LEDBlue
	LEDRed
	LEDAll
)

func (l LED) Valid() bool { return l <= LEDAll }

// Label is the upper-case name used on telemetry lines.
func (l LED) Label() string {
	switch l {
	case LEDGreen:
		return "GREEN"
	case LEDBlue:
		return "BLUE"
	case LEDRed:
		return "RED"
	case LEDAll:
		return "ALL"
	default:
		return "NONE"
	}
}

// LEDState is a snapshot of the three outputs.
type LEDState struct {
	Green bool `json:"green"`
	Blue  bool `json:"blue"`
	Red   bool `json:"red"`
}

func (s LEDState) Any() bool { return s.Green || s.Blue || s.Red }
func (s LEDState) All() bool { return s.Green && s.Blue && s.Red }

// ---- Button ----

type ButtonEvent struct {
	Pressed bool  `json:"pressed"`
	TS      int64 `json:"ts_ms"`
}

// ---- Serial ----

type RxByte struct {
	B  byte  `json:"b"`
	TS int64 `json:"ts_ms"`
}

// ---- Commands ----

// CommandReply is returned on diag/control/command requests.
type CommandReply struct {
	OK    bool     `json:"ok"`
	Lines []string `json:"lines,omitempty"`
	Error string   `json:"error,omitempty"`
}

// ---- Counters ----

type DiagStats struct {
	Presses  uint32 `json:"presses"`
	RxBytes  uint32 `json:"rx_bytes"`
	RxDrops  uint32 `json:"rx_drops"`
	IRQDrops uint32 `json:"irq_drops"`
	Commands uint32 `json:"commands"`
}
