package encoding

import "testing"

func TestEUCKRRoundTrip(t *testing.T) {
	tests := []string{
		"data\\texture\\grass.bmp",
		"유저인터페이스",
		"내부소품\\집01.rsm",
		"",
	}

	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			if got := EUCKRToUTF8(UTF8ToEUCKR(s)); got != s {
				t.Errorf("round trip = %q, want %q", got, s)
			}
		})
	}
}

func TestEUCKRToUTF8_KnownBytes(t *testing.T) {
	// 0xC7D1 0xB1DB is "한글" in EUC-KR.
	if got := EUCKRToUTF8([]byte{0xC7, 0xD1, 0xB1, 0xDB}); got != "한글" {
		t.Errorf("got %q, want 한글", got)
	}
}

func TestUTF8ToEUCKR_Unencodable(t *testing.T) {
	s := "emoji 🙂"
	if got := string(UTF8ToEUCKR(s)); got != s {
		t.Errorf("unencodable text must fall back to UTF-8, got %q", got)
	}
}

func TestNormalizeGRFPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"data\\Texture\\BG.BMP", "data/texture/bg.bmp"},
		{"./data/model/a.rsm", "data/model/a.rsm"},
		{"data//model/../model/A.rsm", "data/model/a.rsm"},
		{"/abs/path", "/abs/path"},
		{"", ""},
		{"데이터\\모델.RSM", "데이터/모델.rsm"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeGRFPath(tt.in); got != tt.want {
				t.Errorf("NormalizeGRFPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFixedString(t *testing.T) {
	field := make([]byte, 16)
	copy(field, UTF8ToEUCKR("나무.rsm"))

	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"padded korean", field, "나무.rsm"},
		{"no terminator", []byte("abc"), "abc"},
		{"garbage after nul", []byte("ab\x00cd"), "ab"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FixedString(tt.in); got != tt.want {
				t.Errorf("FixedString = %q, want %q", got, tt.want)
			}
		})
	}
}
