//go:build !(stm32f7 || rp2040 || rp2350)

package fmtx

import "fmt"

func Sprintf(format string, a ...any) string { return fmt.Sprintf(format, a...) }
