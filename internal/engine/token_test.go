package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestExtractClientToken(t *testing.T) {
	cases := []struct {
		script string
		want   string
		ok     bool
	}{
		{script: `var u="https://api.example/x?client_id=tok123";`, want: "tok123", ok: true},
		{script: `a=1;client_id=abcDEF987"&x`, want: "abcDEF987", ok: true},
		{script: `no token here`, ok: false},
		{script: `client_id=""`, ok: false},
		{script: `client_id=unterminated`, ok: false},
	}
	for _, tc := range cases {
		got, ok := ExtractClientToken(tc.script)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ExtractClientToken(%q) = (%q, %v), want (%q, %v)", tc.script, got, ok, tc.want, tc.ok)
		}
	}
}

func TestClientScriptCandidatesOrder(t *testing.T) {
	page := `<script src="https://a-v2.sndcdn.com/assets/0-aaa.js"></script>
<script src="https://a-v2.sndcdn.com/assets/12-bbb.js"></script>
<script src="https://a-v2.sndcdn.com/assets/49-ccc.js"></script>`

	got := clientScriptCandidates("https://a-v2.sndcdn.com/assets/0-aaa.js", page)
	want := []string{
		"https://a-v2.sndcdn.com/assets/0-aaa.js",
		"https://a-v2.sndcdn.com/assets/49-ccc.js",
		"https://a-v2.sndcdn.com/assets/12-bbb.js",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected candidates:\n got %v\nwant %v", got, want)
	}

	if got := clientScriptCandidates("", ""); !reflect.DeepEqual(got, []string{DefaultClientScriptURL}) {
		t.Fatalf("expected default script only, got %v", got)
	}
}

func TestTokenResolverFallsBackToPageScripts(t *testing.T) {
	configured := "https://a-v2.sndcdn.com/assets/0-stale.js"
	fetcher := newFakeFetcher(map[string]string{
		configured: `console.log("no token")`,
		"https://a-v2.sndcdn.com/assets/49-live.js": `var q="?client_id=fresh42";`,
	})
	page := `<script src="https://a-v2.sndcdn.com/assets/49-live.js"></script>`

	resolver := &TokenResolver{Fetcher: fetcher, ScriptURL: configured}
	token, err := resolver.Resolve(context.Background(), page)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if token != "fresh42" {
		t.Fatalf("unexpected token: %q", token)
	}
}

func TestTokenResolverReportsLastFailure(t *testing.T) {
	configured := "https://a-v2.sndcdn.com/assets/0-stale.js"
	fetcher := newFakeFetcher(map[string]string{
		configured: `nothing`,
	})

	resolver := &TokenResolver{Fetcher: fetcher, ScriptURL: configured}
	token, err := resolver.Resolve(context.Background(), "")
	if token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Marker != "client_id=" {
		t.Fatalf("unexpected marker: %q", parseErr.Marker)
	}
}
