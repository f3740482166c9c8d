package types

import "testing"

func TestResourceNamespace(t *testing.T) {
	if got := ResourceID("postgres"); got != "resource:postgres" {
		t.Errorf("ResourceID: got %q", got)
	}
	if got := ResourceName("resource:postgres"); got != "postgres" {
		t.Errorf("ResourceName: got %q", got)
	}
	if got := ResourceName("worker-1"); got != "" {
		t.Errorf("ResourceName on worker target: got %q", got)
	}
}

func TestSeverityOrdering(t *testing.T) {
	if !(SeverityLow < SeverityMedium && SeverityMedium < SeverityHigh && SeverityHigh < SeverityCritical) {
		t.Error("severity constants are not ordered")
	}
	if SeverityCritical.String() != "critical" {
		t.Errorf("got %q", SeverityCritical.String())
	}
	if Severity(99).String() != "unknown" {
		t.Errorf("got %q", Severity(99).String())
	}
}
