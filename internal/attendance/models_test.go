package attendance

import "testing"

func TestStatus(t *testing.T) {
	tests := []struct {
		status Status
		valid  bool
		label  string
	}{
		{StatusPresent, true, "Present"},
		{StatusAbsent, true, "Absent"},
		{StatusLate, true, "Late"},
		{"X", false, "X"},
		{"", false, ""},
	}
	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.valid {
			t.Errorf("%q.Valid() = %v, want %v", tt.status, got, tt.valid)
		}
		if got := tt.status.Label(); got != tt.label {
			t.Errorf("%q.Label() = %q, want %q", tt.status, got, tt.label)
		}
	}
}
