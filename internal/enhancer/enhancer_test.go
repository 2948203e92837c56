package enhancer

import "testing"

func TestDenormByte(t *testing.T) {
	if denormByte(-0.2) != 0 {
		t.Fatal("negative values should clamp to 0")
	}
	if denormByte(1.5) != 255 {
		t.Fatal("values above 1 should clamp to 255")
	}
	if got := denormByte(1.0); got != 255 {
		t.Fatalf("denormByte(1.0) = %d", got)
	}
	if got := denormByte(0); got != 0 {
		t.Fatalf("denormByte(0) = %d", got)
	}
}

func TestNewRestorerUnknownModel(t *testing.T) {
	if _, err := NewRestorer("realesrgan", "m.onnx", "cpu"); err == nil {
		t.Fatal("unknown restorer model should error")
	}
}
