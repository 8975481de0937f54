package digest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// sha512("abc") from FIPS 180-2.
const abcDigest = "ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a" +
	"2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f"

func TestBytes(t *testing.T) {
	if got := Bytes([]byte("abc")); got != abcDigest {
		t.Errorf("Bytes = %s", got)
	}
}

func TestReaderMatchesBytes(t *testing.T) {
	got, err := Reader(strings.NewReader("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if got != abcDigest {
		t.Errorf("Reader = %s", got)
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jar")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := File(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != abcDigest {
		t.Errorf("File = %s", got)
	}

	if _, err := File(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEqual(t *testing.T) {
	if !Equal(strings.ToUpper(abcDigest), " "+abcDigest+"\n") {
		t.Error("Equal should ignore case and whitespace")
	}
	if Equal(abcDigest, Bytes([]byte("abd"))) {
		t.Error("different digests compared equal")
	}
}

func TestValid(t *testing.T) {
	good := Bytes([]byte("x"))
	tests := []struct {
		hash string
		want bool
	}{
		{good, true},
		{strings.ToUpper(good), true},
		{"", false},
		{"abc", false},
		{strings.Repeat("z", 128), false},
	}
	for _, tt := range tests {
		if got := Valid(tt.hash); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.hash, got, tt.want)
		}
	}
}
