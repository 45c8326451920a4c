package types

// ------------------------
// Serial
// ------------------------

type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

func (p Parity) String() string {
	switch p {
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	default:
		return "none"
	}
}

// SerialFormat describes the line settings of the console port.
type SerialFormat struct {
	Baud     uint32 `json:"baud"`
	DataBits uint8  `json:"data_bits"`
	StopBits uint8  `json:"stop_bits"`
	Parity   Parity `json:"parity"`
}

// Console8N1 is the format both ends of the diagnostic link use.
func Console8N1(baud uint32) SerialFormat {
	return SerialFormat{Baud: baud, DataBits: 8, StopBits: 1, Parity: ParityNone}
}
