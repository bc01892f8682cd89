package label

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Label
		wantErr bool
	}{
		{"bot", Bot, false},
		{"BOT", Bot, false},
		{"Human", Human, false},
		{"unlabeled", Unlabeled, false},
		{"2", Bot, false},
		{"1", Human, false},
		{"0", Unlabeled, false},
		{"3", Unlabeled, true},
		{"cyborg", Unlabeled, true},
	}
	for _, tc := range tests {
		got, err := Parse(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLabel_TextRoundTrip(t *testing.T) {
	b, err := Bot.MarshalText()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "bot" {
		t.Errorf("MarshalText = %q, want bot", b)
	}

	var l Label
	if err := l.UnmarshalText([]byte("human")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l != Human {
		t.Errorf("UnmarshalText = %v, want human", l)
	}

	if _, err := Label(9).MarshalText(); err == nil {
		t.Error("expected error for invalid label")
	}
}
