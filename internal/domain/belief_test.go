package domain

import "testing"

func TestStanceStatusActive(t *testing.T) {
	tests := []struct {
		name   string
		status StanceStatus
		want   bool
	}{
		{"current is active", StanceCurrent, true},
		{"locked is active", StanceLocked, true},
		{"superseded is not active", StanceSuperseded, false},
		{"unknown is not active", StanceStatus("archived"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Active(); got != tt.want {
				t.Errorf("%s.Active() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestValidTriggerType(t *testing.T) {
	valid := []string{"auto", "manual", "nudge", "lock", "unlock"}
	for _, v := range valid {
		if !ValidTriggerType(v) {
			t.Errorf("expected %q to be valid", v)
		}
	}
	if ValidTriggerType("decay") {
		t.Error("expected decay to be invalid")
	}
	if ValidTriggerType("") {
		t.Error("expected empty string to be invalid")
	}
}

func TestStanceSnapshot(t *testing.T) {
	v := &StanceVersion{
		Text:       "types pay off at scale",
		Confidence: 0.8,
		Status:     StanceLocked,
	}

	snap := v.Snapshot()
	if snap.Text != v.Text || snap.Confidence != v.Confidence || snap.Status != v.Status {
		t.Errorf("Snapshot() = %+v, want fields from %+v", snap, v)
	}
}
