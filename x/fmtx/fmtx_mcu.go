//go:build stm32f7 || rp2040 || rp2350

package fmtx

// --- Public API (signature matches fmt) ---

func Sprintf(format string, a ...any) string {
	var b builder
	b.format(format, a...)
	return string(b.buf)
}

// --- Internals: tiny formatter subset ---
// Supports %s %q %d %c %x %v %t %% and a width for %s/%d. No flags.

type builder struct{ buf []byte }

func (b *builder) byte(c byte)  { b.buf = append(b.buf, c) }
func (b *builder) str(s string) { b.buf = append(b.buf, s...) }

func (b *builder) any(v any) {
	switch x := v.(type) {
	case string:
		b.str(x)
	case []byte:
		b.buf = append(b.buf, x...)
	case bool:
		if x {
			b.str("true")
		} else {
			b.str("false")
		}
	case error:
		b.str(x.Error())
	default:
		if i, ok := toI64(v); ok {
			b.int(i, 10)
			return
		}
		b.str("<?>")
	}
}

func (b *builder) int(v int64, base uint64) {
	if v < 0 {
		b.byte('-')
		b.uint(uint64(-v), base)
		return
	}
	b.uint(uint64(v), base)
}

func (b *builder) uint(u uint64, base uint64) {
	const digits = "0123456789abcdef"
	var tmp [20]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = digits[u%base]
		u /= base
		if u == 0 {
			break
		}
	}
	b.buf = append(b.buf, tmp[i:]...)
}

func (b *builder) pad(n int) {
	for ; n > 0; n-- {
		b.byte(' ')
	}
}

func (b *builder) format(format string, args ...any) {
	ai := 0
	for i := 0; i < len(format); {
		c := format[i]
		if c != '%' {
			b.byte(c)
			i++
			continue
		}
		i++
		if i < len(format) && format[i] == '%' {
			b.byte('%')
			i++
			continue
		}
		width := 0
		for i < len(format) && '0' <= format[i] && format[i] <= '9' {
			width = width*10 + int(format[i]-'0')
			i++
		}
		if i >= len(format) || ai >= len(args) {
			return
		}
		verb := format[i]
		arg := args[ai]
		ai++
		i++

		start := len(b.buf)
		switch verb {
		case 's', 'v':
			b.any(arg)
		case 'q':
			s, _ := arg.(string)
			b.quote(s)
		case 'd':
			n, _ := toI64(arg)
			b.int(n, 10)
		case 'x':
			n, _ := toI64(arg)
			b.uint(uint64(n), 16)
		case 'c':
			n, _ := toI64(arg)
			b.rune(rune(n))
		case 't':
			v, _ := arg.(bool)
			b.any(v)
		default:
			b.byte('%')
			b.byte(verb)
		}
		if w := len(b.buf) - start; width > w {
			// right-align: shift what we wrote
			out := append([]byte(nil), b.buf[start:]...)
			b.buf = b.buf[:start]
			b.pad(width - w)
			b.buf = append(b.buf, out...)
		}
	}
}

func (b *builder) rune(r rune) {
	switch {
	case r < 0x80:
		b.byte(byte(r))
	case r < 0x800:
		b.byte(0xC0 | byte(r>>6))
		b.byte(0x80 | byte(r)&0x3F)
	default:
		b.byte(0xE0 | byte(r>>12))
		b.byte(0x80 | byte(r>>6)&0x3F)
		b.byte(0x80 | byte(r)&0x3F)
	}
}

func (b *builder) quote(s string) {
	b.byte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '"':
			b.byte('\\')
			b.byte(s[i])
		case '\n':
			b.str(`\n`)
		case '\r':
			b.str(`\r`)
		case '\t':
			b.str(`\t`)
		default:
			b.byte(s[i])
		}
	}
	b.byte('"')
}

func toI64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32: // covers rune
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8: // covers byte
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return int64(t), true
	default:
		return 0, false
	}
}
