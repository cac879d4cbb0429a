package domain

import "testing"

func TestLabelPattern(t *testing.T) {
	pattern := LabelPattern([]string{"Tenant", "ACI"})
	if pattern != ":ACI:Tenant" {
		t.Fatalf("unexpected pattern %s", pattern)
	}
	if LabelPattern(nil) != "" {
		t.Fatalf("empty labels should render empty pattern")
	}
}

func TestMakeKey(t *testing.T) {
	cases := []struct {
		got  string
		want string
	}{
		{MakeKey(PrefixNode, 101), "NODE_101"},
		{MakeKey(PrefixBD, "common", "web"), "BD_common/web"},
		{MakeKey(PrefixSubnet, "prod", "web", "10.1.1.1/24"), "SUBNET_prod/web/10.1.1.1/24"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Fatalf("got %s, want %s", c.got, c.want)
		}
	}
}
