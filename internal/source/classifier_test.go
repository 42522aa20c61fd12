package source

import (
	"testing"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
)

func TestClassifyByPackage(t *testing.T) {
	cases := []struct {
		pkg  string
		want models.Platform
	}{
		{"com.ubercab.driver", models.PlatformUber},
		{"com.ubercab", models.PlatformUber},
		{"com.taxis99.driver", models.Platform99},
		{"com.app99.pay", models.Platform99},
		{"com.whatsapp", models.PlatformUnknown},
		{"", models.PlatformUnknown},
	}
	for _, c := range cases {
		if got := Classify(c.pkg, ""); got != c.want {
			t.Fatalf("Classify(%q) = %v, want %v", c.pkg, got, c.want)
		}
	}
}

func TestClassifyByText(t *testing.T) {
	if got := Classify("", "Nova corrida UberX\nR$ 18,50"); got != models.PlatformUber {
		t.Fatalf("expected uber, got %v", got)
	}
	if got := Classify("", "99Pop · 2,3 km\nR$ 12,00"); got != models.Platform99 {
		t.Fatalf("expected 99, got %v", got)
	}
}

func TestClassifyPackageWinsOverText(t *testing.T) {
	got := Classify("com.ubercab.driver", "mentions 99pop somewhere")
	if got != models.PlatformUber {
		t.Fatalf("package id should take precedence, got %v", got)
	}
}

func TestClassifyNeverPanicsOnGarbage(t *testing.T) {
	inputs := []string{"", "\x00\xff", "     ", "99", "uber"}
	for _, in := range inputs {
		_ = Classify(in, in)
	}
	if got := Classify("garbage", "no markers here at all"); got != models.PlatformUnknown {
		t.Fatalf("expected unknown, got %v", got)
	}
}
