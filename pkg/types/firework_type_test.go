package types

import "testing"

func TestParseFireworkType(t *testing.T) {
	tests := []struct {
		input   string
		want    FireworkType
		wantErr bool
	}{
		{"sphere", FireworkSphere, false},
		{"Ring", FireworkRing, false},
		{" willow ", FireworkWillow, false},
		{"STROBE", FireworkStrobe, false},
		{"", FireworkNone, false},
		{"peony", FireworkNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFireworkType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFireworkType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFireworkType(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestFireworkTypeRoundTrip 验证 String() 与 ParseFireworkType 互逆
func TestFireworkTypeRoundTrip(t *testing.T) {
	for _, ft := range AllFireworkTypes {
		if !ft.IsValid() {
			t.Errorf("%v should be valid", ft)
		}
		parsed, err := ParseFireworkType(ft.String())
		if err != nil || parsed != ft {
			t.Errorf("round trip of %v gave %v (err=%v)", ft, parsed, err)
		}
	}
	if FireworkNone.IsValid() {
		t.Error("FireworkNone should not be a launchable type")
	}
}
