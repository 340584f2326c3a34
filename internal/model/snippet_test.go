package model

import (
	"strings"
	"testing"
)

func TestPlainTextSnippet_KeepsBlockBoundaries(t *testing.T) {
	got := PlainTextSnippet("<div><p>Meeting moved to 5pm.</p><p>Bring the Q3 numbers.</p></div>")
	want := "Meeting moved to 5pm.\nBring the Q3 numbers."
	if got != want {
		t.Errorf("PlainTextSnippet = %q, want %q", got, want)
	}
}

func TestPlainTextSnippet_LineBreaks(t *testing.T) {
	got := PlainTextSnippet("Hi Sam,<br>see you at 3.<br/>Thanks")
	want := "Hi Sam,\nsee you at 3.\nThanks"
	if got != want {
		t.Errorf("PlainTextSnippet = %q, want %q", got, want)
	}
}

func TestPlainTextSnippet_KeepsLinkTargets(t *testing.T) {
	got := PlainTextSnippet(`<p>Your code is <b>482913</b>.</p><p><a href="https://example.com/reset?t=abc">Reset password</a></p>`)
	if !strings.Contains(got, "Your code is 482913.") {
		t.Errorf("PlainTextSnippet = %q, lost inline text", got)
	}
	if !strings.Contains(got, "Reset password (https://example.com/reset?t=abc)") {
		t.Errorf("PlainTextSnippet = %q, lost link target", got)
	}
}

func TestPlainTextSnippet_SkipsBareAndScriptLinks(t *testing.T) {
	got := PlainTextSnippet(`<p><a href="https://example.com">https://example.com</a> <a href="#top">top</a></p><script>track()</script>`)
	want := "https://example.com top"
	if got != want {
		t.Errorf("PlainTextSnippet = %q, want %q", got, want)
	}
}

func TestPlainTextSnippet_PlainUnchanged(t *testing.T) {
	for _, in := range []string{"a < b and c > d", "line one\n\n  line two", ""} {
		if got := PlainTextSnippet(in); got != in {
			t.Errorf("PlainTextSnippet(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestPlainTextSnippet_EmptyMarkupUnchanged(t *testing.T) {
	in := "<div><img src=\"x.png\"></div>"
	if got := PlainTextSnippet(in); got != in {
		t.Errorf("PlainTextSnippet = %q, want input back", got)
	}
}
