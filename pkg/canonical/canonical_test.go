package canonical

import "testing"

func TestNormalize_Basic(t *testing.T) {
	got := Normalize("  Gaussian   Splatting! ")
	if got != "gaussian splatting" {
		t.Fatalf("expected 'gaussian splatting', got %q", got)
	}
	if got != Normalize("gaussian splatting") {
		t.Fatalf("differently punctuated spellings should normalize equal")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Neural Radiance Fields (NeRF)",
		"  GPT-4  ",
		"ResNet-50",
		"über-Ansatz",
		"",
		"!!!",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalize_KeepsHyphensAndDigits(t *testing.T) {
	got := Normalize("ResNet-50")
	if got != "resnet-50" {
		t.Fatalf("expected 'resnet-50', got %q", got)
	}
}

func TestNormalize_StripsPunctuation(t *testing.T) {
	a := Normalize("Neural Radiance Fields (NeRF)")
	b := Normalize("neural radiance fields nerf")
	if a != b {
		t.Fatalf("expected %q == %q", a, b)
	}
}

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	got := Normalize("a \t b\n\nc")
	if got != "a b c" {
		t.Fatalf("expected 'a b c', got %q", got)
	}
}
