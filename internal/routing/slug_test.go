package routing

import "testing"

func TestMakeSlug(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Home", "home"},
		{"About Us", "about-us"},
		{"Hello,  World!", "hello-world"},
		{"Ünïcödé Tîtle", "n-c-d-t-tle"},
		{"---", "page"},
		{"", "page"},
		{"MiXeD CaSe 42", "mixed-case-42"},
	}
	for _, tc := range cases {
		if got := MakeSlug(tc.in); got != tc.want {
			t.Errorf("MakeSlug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildPath(t *testing.T) {
	cases := []struct {
		parent, slug, want string
	}{
		{"", "", "/"},
		{"", "about", "/about"},
		{"docs", "", "/docs"},
		{"/docs/", "/intro/", "/docs/intro"},
	}
	for _, tc := range cases {
		if got := BuildPath(tc.parent, tc.slug); got != tc.want {
			t.Errorf("BuildPath(%q, %q) = %q, want %q", tc.parent, tc.slug, got, tc.want)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	if got := NormalizePath(""); got != "" {
		t.Fatalf("empty path must stay empty, got %q", got)
	}
	if got := NormalizePath("about/"); got != "/about" {
		t.Fatalf("NormalizePath = %q, want /about", got)
	}
	if got := NormalizePath("/"); got != "/" {
		t.Fatalf("NormalizePath(/) = %q", got)
	}
}
