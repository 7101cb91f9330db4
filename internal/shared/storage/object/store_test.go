package object

import (
	"regexp"
	"testing"
	"time"
)

func TestKeyGenFormat(t *testing.T) {
	g := KeyGen{
		Now:    func() time.Time { return time.UnixMilli(1700000000123) },
		Random: func() string { return "a1b2c3" },
	}
	if got := g.Key("user-1", "Banner.PNG"); got != "user-1/1700000000123-a1b2c3.png" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := g.Key("user-1", "blob"); got != "user-1/1700000000123-a1b2c3.jpg" {
		t.Fatalf("unexpected default extension key %q", got)
	}
}

func TestKeyGenDefaultsAreUnique(t *testing.T) {
	g := KeyGen{}
	pattern := regexp.MustCompile(`^u/\d+-[0-9a-f]+\.jpeg$`)
	a, b := g.Key("u", "x.jpeg"), g.Key("u", "x.jpeg")
	if !pattern.MatchString(a) {
		t.Fatalf("key %q does not match scheme", a)
	}
	if a == b {
		t.Fatalf("expected distinct keys, got %q twice", a)
	}
}

func TestValidKey(t *testing.T) {
	if !ValidKey("u1/1-a.jpg") {
		t.Fatalf("expected valid key")
	}
	for _, bad := range []string{"", "/abs", "u1/../x", "u1//x", `u1\x`} {
		if ValidKey(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}
