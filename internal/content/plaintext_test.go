package content

import (
	"strings"
	"testing"
)

func TestHTMLToPlainText(t *testing.T) {
	input := `<h3>Aspirin</h3><p>A <strong>NSAID</strong> used for <em>pain</em>.<br>Second line</p>` +
		`<ul><li>Analgesic</li><li>Antipyretic</li></ul><img src="data:image/png;base64,AAAA">`

	got := HTMLToPlainText(input)
	want := "Aspirin\n\nA NSAID used for pain.\nSecond line\n\n• Analgesic\n\n• Antipyretic\n\n[Image]"
	if got != want {
		t.Fatalf("unexpected plain text\n got: %q\nwant: %q", got, want)
	}
}

func TestHTMLToPlainTextDecodesEntities(t *testing.T) {
	got := HTMLToPlainText("<p>Hi &amp; bye &lt;3</p>")
	if got != "Hi & bye <3" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestHTMLToPlainTextDropsScripts(t *testing.T) {
	got := HTMLToPlainText("<p>ok</p><script>alert(1)</script>")
	if strings.Contains(got, "alert") {
		t.Fatalf("script content leaked: %q", got)
	}
}

func TestHTMLToPlainTextEmpty(t *testing.T) {
	if got := HTMLToPlainText("   "); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestUnescapeLiterals(t *testing.T) {
	got := UnescapeLiterals(`line\nnext \u00e9t\u00e9 \"quoted\" it\'s`)
	want := "line\nnext été \"quoted\" it's"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestUnescapeAttribute(t *testing.T) {
	got := UnescapeAttribute(`&lt;p class=&quot;x&quot;&gt;A&nbsp;&amp;&nbsp;B&lt;/p&gt;`)
	if got != `<p class="x">A & B</p>` {
		t.Fatalf("unexpected %q", got)
	}
}
