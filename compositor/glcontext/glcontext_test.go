package glcontext

import "testing"

func TestSplitTokensWhitespaceSeparated(t *testing.T) {
	got := splitTokens("FOOBAR BAZ")
	want := []string{"FOOBAR", "BAZ"}
	if len(got) != len(want) {
		t.Fatalf("splitTokens(%q) = %v, want %v", "FOOBAR BAZ", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("splitTokens(%q)[%d] = %q, want %q", "FOOBAR BAZ", i, got[i], want[i])
		}
	}
}

// TestHasExtensionMatchesWholeTokensOnly: "FOO" must not match as a
// substring of "FOOBAR", only as a whole whitespace-delimited token.
func TestHasExtensionMatchesWholeTokensOnly(t *testing.T) {
	cases := []struct {
		extensionString string
		query           string
		want            bool
	}{
		{"FOOBAR BAZ", "FOO", false},
		{"BAZ FOO BAR", "FOO", true},
		{"", "FOO", false},
		{"FOO", "FOO", true},
	}
	for _, c := range cases {
		set := make(map[string]bool)
		for _, tok := range splitTokens(c.extensionString) {
			set[tok] = true
		}
		ctx := &Context{extensions: set}
		if got := ctx.HasExtension(c.query); got != c.want {
			t.Errorf("HasExtension(%q) in %q = %v, want %v", c.query, c.extensionString, got, c.want)
		}
	}
}

func TestCStringNilPointerIsEmpty(t *testing.T) {
	if got := cString(0); got != "" {
		t.Fatalf("cString(0) = %q, want empty", got)
	}
}

// TestReleaseLibraryWithoutRetainIsNoOp pins the counter guard on the
// process-wide library handle: releasing with no outstanding retains
// must not underflow or touch a handle that was never opened.
func TestReleaseLibraryWithoutRetainIsNoOp(t *testing.T) {
	releaseLibrary()
	sharedLibrary.Lock()
	defer sharedLibrary.Unlock()
	if sharedLibrary.refs != 0 || sharedLibrary.handle != 0 {
		t.Fatalf("expected untouched library state, refs=%d handle=%#x", sharedLibrary.refs, sharedLibrary.handle)
	}
}
