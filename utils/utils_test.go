package utils

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/Pallinder/go-randomdata"
)

var pixelRatioTests = []struct {
	dpr, max float64
	out      float64
}{
	{1, 2, 1},
	{1.5, 2, 1.5},
	{2, 2, 2},
	{3, 2, 2},
	{0, 2, 1},
	{-1, 2, 1},
	{3, 0, 3},
}

func TestClampPixelRatio(t *testing.T) {
	for _, test := range pixelRatioTests {
		if result := ClampPixelRatio(test.dpr, test.max); result != test.out {
			t.Errorf("ClampPixelRatio(%v,%v)=%v; expected %v", test.dpr, test.max, result, test.out)
		}
	}
}

func TestRandomNameGeneratorUnique(t *testing.T) {
	var rng RandomNameGenerator
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		name := rng.RandomName()
		if seen[name] {
			t.Fatalf("RandomName() returned duplicate %q", name)
		}
		seen[name] = true
	}
}

func TestSDumpShallow(t *testing.T) {
	type inner struct{ Data []byte }
	type outer struct{ In *inner }
	out := SDumpShallow(&outer{In: &inner{Data: make([]byte, 1024)}})
	if !strings.Contains(out, "max depth reached") {
		t.Errorf("SDumpShallow did not stop at max depth:\n%s", out)
	}
}

func TestRandomNameGeneratorKeepsGlobalSource(t *testing.T) {
	defer randomdata.CustomRand(rand.New(rand.NewSource(time.Now().UnixNano())))

	randomdata.CustomRand(rand.New(rand.NewSource(7)))
	expected := randomdata.SillyName()

	randomdata.CustomRand(rand.New(rand.NewSource(7)))
	var rng RandomNameGenerator
	if name := rng.RandomName(); name != expected {
		t.Errorf("RandomName()=%q; expected %q from the installed source", name, expected)
	}
}
