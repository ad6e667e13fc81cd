package model

import "testing"

func TestPriority_Rank(t *testing.T) {
	order := []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow, PriorityBackground}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("expected %s to rank above %s", order[i-1], order[i])
		}
	}
	if Priority("bogus").Rank() != PriorityBackground.Rank() {
		t.Error("unknown priority should rank as background")
	}
}

func TestConfidence_Downgrade(t *testing.T) {
	cases := []struct{ from, want Confidence }{
		{ConfidenceVeryHigh, ConfidenceHigh},
		{ConfidenceHigh, ConfidenceMedium},
		{ConfidenceMedium, ConfidenceLow},
		{ConfidenceLow, ConfidenceUncertain},
		{ConfidenceUncertain, ConfidenceUncertain},
	}
	for _, tc := range cases {
		if got := tc.from.Downgrade(); got != tc.want {
			t.Errorf("%s.Downgrade() = %s, want %s", tc.from, got, tc.want)
		}
	}
}

func TestConfidence_AutoExecutable(t *testing.T) {
	if !ConfidenceVeryHigh.AutoExecutable() || !ConfidenceHigh.AutoExecutable() {
		t.Error("very_high and high must be auto-executable")
	}
	for _, c := range []Confidence{ConfidenceMedium, ConfidenceLow, ConfidenceUncertain} {
		if c.AutoExecutable() {
			t.Errorf("%s must not be auto-executable", c)
		}
	}
}

func TestDecision_Executable(t *testing.T) {
	yes, no := true, false

	d := Decision{RequiresApproval: false}
	if !d.Executable() {
		t.Error("no approval required: executable")
	}

	d = Decision{RequiresApproval: true}
	if d.Executable() {
		t.Error("approval required but not granted: not executable")
	}

	d = Decision{RequiresApproval: true, Approved: &yes}
	if !d.Executable() {
		t.Error("approval granted: executable")
	}

	d = Decision{RequiresApproval: false, Approved: &no}
	if d.Executable() {
		t.Error("rejected decision must never execute")
	}
}
