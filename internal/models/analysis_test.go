package models

import "testing"

func TestDanglingConnections(t *testing.T) {
	res := CanonicalResult{
		Components: []Component{{Token: "L1H5"}, {Token: "L2H3"}},
		Connections: []Connection{
			{From: "L1H5", To: "L2H3", Weight: 0.9},
			{From: "L2H3", To: "L7H1", Weight: 0.3},
		},
	}

	dangling := res.DanglingConnections()
	if len(dangling) != 1 || dangling[0].To != "L7H1" {
		t.Fatalf("unexpected dangling connections: %+v", dangling)
	}
}
