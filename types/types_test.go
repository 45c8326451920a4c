package types

import "testing"

func TestLEDLabels(t *testing.T) {
	for led, want := range map[LED]string{
		LEDGreen: "GREEN",
		LEDBlue:  "BLUE",
		LEDRed:   "RED",
		LEDAll:   "ALL",
		LED(9):   "NONE",
	} {
		if got := led.Label(); got != want {
			t.Fatalf("LED(%d).Label() = %q, want %q", led, got, want)
		}
	}
	if LED(4).Valid() {
		t.Fatal("LED(4) should be invalid")
	}
}

func TestLEDStateHelpers(t *testing.T) {
	if (LEDState{}).Any() {
		t.Fatal("zero state should report no LED on")
	}
	if !(LEDState{Green: true, Blue: true, Red: true}).All() {
		t.Fatal("all three set should report All")
	}
	if (LEDState{Green: true}).All() {
		t.Fatal("one LED should not report All")
	}
}
