package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestGetDisplayWalletAddress(t *testing.T) {
	long := "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"
	if got := GetDisplayWalletAddress(long); got != "5Q544f...e4j1" {
		t.Errorf("GetDisplayWalletAddress = %s", got)
	}
	if got := GetDisplayWalletAddress("short"); got != "short" {
		t.Errorf("短地址不应缩写: %s", got)
	}
}

func TestConvertToPercentage(t *testing.T) {
	if got := ConvertToPercentage(0.8512); got != "85.12%" {
		t.Errorf("ConvertToPercentage = %s", got)
	}
}

func TestFormatVolume(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2500000", "2.5M"},
		{"1500", "1.5k"},
		{"12.34567", "12.3456"},
	}
	for _, tc := range cases {
		if got := FormatVolume(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Errorf("FormatVolume(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
