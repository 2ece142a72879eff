package core

import "testing"

func TestParseWon(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1000000", 1000000, false},
		{"1,000,000", 1000000, false},
		{" 25 000원 ", 25000, false},
		{"", 0, true},
		{"0", 0, true},
		{"-100", 0, true},
		{"12.5", 0, true},
		{"abc", 0, true},
		{"1,000,000,000,000,000", MaxAmount, false},
		{"1,000,000,000,000,001", 0, true},
		{"4,000,000,000,000,000,000", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWon(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseWon(%q) = %d, %v; want %d, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestFormatWon(t *testing.T) {
	tests := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		33900:    "33,900",
		1000000:  "1,000,000",
		-1234567: "-1,234,567",
	}
	for in, want := range tests {
		if got := FormatWon(in); got != want {
			t.Errorf("FormatWon(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestIdentifierFormatting(t *testing.T) {
	if got := FormatBizNumber("1234567890"); got != "123 45 67890" {
		t.Errorf("FormatBizNumber = %q", got)
	}
	if got := FormatBizNumber("123"); got != "123" {
		t.Errorf("short biz number must pass through, got %q", got)
	}
	if got := NormalizeBizNumber("123 45-67890"); got != "1234567890" || !ValidBizNumber("123 45 67890") {
		t.Errorf("NormalizeBizNumber = %q", got)
	}
	if ValidBizNumber("12345") {
		t.Errorf("5 digits must be invalid")
	}
	if got := FormatResidentNumber("9001011234567"); got != "900101-1234567" {
		t.Errorf("FormatResidentNumber = %q", got)
	}
	if got := MaskResidentNumber("9001011234567"); got != "900101-1******" {
		t.Errorf("MaskResidentNumber = %q", got)
	}
}

func TestPhone(t *testing.T) {
	got, err := ParsePhone("010-1234-5678")
	if err != nil || got != "01012345678" {
		t.Fatalf("ParsePhone = %q, %v", got, err)
	}
	if _, err := ParsePhone("12"); err == nil {
		t.Fatalf("expected error for short number")
	}
	if got := FormatPhone("01012345678"); got != "010-1234-5678" {
		t.Fatalf("FormatPhone = %q", got)
	}
}
