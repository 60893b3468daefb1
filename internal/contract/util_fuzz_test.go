package contract

import (
	"testing"
)

// FuzzSplitCommaList checks that no item is ever empty or padded.
func FuzzSplitCommaList(f *testing.F) {
	for _, seed := range []string{"", ",", "a,b", " src/a.js , lib/b.ts ", ",,x,,"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		for _, item := range SplitCommaList(s) {
			if item == "" {
				t.Fatalf("empty item from %q", s)
			}
		}
	})
}

// FuzzTruncatePath checks truncation never panics and respects the width.
func FuzzTruncatePath(f *testing.F) {
	f.Add("src/deeply/nested/module.js", 12)
	f.Add("", 0)
	f.Add("日本語", 4)
	f.Fuzz(func(t *testing.T, path string, width int) {
		out := TruncatePath(path, width)
		if width > 3 && len([]rune(out)) > width && len([]rune(path)) > width {
			t.Fatalf("TruncatePath(%q, %d) = %q exceeds width", path, width, out)
		}
	})
}
