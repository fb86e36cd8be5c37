package snapshot

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tenantsync/internal/document"
	"github.com/roach88/tenantsync/internal/harness"
)

func mustObj(t *testing.T, src string) document.Object {
	t.Helper()
	return harness.Obj(t, src)
}

func TestRender_NoChanges(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, DiffResult{})

	if buf.String() != "No configuration changes.\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestRender_Report(t *testing.T) {
	a := Contents{
		"rule_label": {
			{RemoteID: "1", Name: "L1", Payload: mustObj(t, `{"id": 1, "name": "L1", "color": "blue"}`)},
			{RemoteID: "2", Name: "L2", Payload: mustObj(t, `{"id": 2, "name": "L2"}`)},
		},
		"firewall_rule": {
			{RemoteID: "10", Name: "R1", Payload: mustObj(t, `{"id": 10, "name": "R1", "action": "ALLOW", "modifiedTime": 1}`)},
		},
	}
	b := Contents{
		"rule_label": {
			{RemoteID: "1", Name: "L1", Payload: mustObj(t, `{"id": 1, "name": "L1", "color": "red"}`)},
			{RemoteID: "3", Name: "L3", Payload: mustObj(t, `{"id": 3, "name": "L3"}`)},
		},
		"firewall_rule": {
			{RemoteID: "10", Name: "R1", Payload: mustObj(t, `{"id": 10, "name": "R1", "action": "ALLOW", "modifiedTime": 2}`)},
		},
	}

	var buf bytes.Buffer
	Render(&buf, Diff(a, b))

	g := goldie.New(t)
	g.Assert(t, "diff_report", buf.Bytes())
}
