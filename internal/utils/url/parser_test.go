package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://cr.indeed.com/jobs?q=&l=Costa+Rica",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %s", u)
		}
	}
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		base, href, want string
	}{
		{"https://cr.indeed.com/jobs?q=java", "/rc/clk?jk=abc", "https://cr.indeed.com/rc/clk?jk=abc"},
		{"https://cr.indeed.com/jobs", "https://example.com/apply", "https://example.com/apply"},
		{"https://cr.indeed.com/jobs", "  /viewjob?jk=1 ", "https://cr.indeed.com/viewjob?jk=1"},
	}
	for _, c := range cases {
		if got := ResolveURL(c.base, c.href); got != c.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", c.base, c.href, got, c.want)
		}
	}
}

func TestPageURL(t *testing.T) {
	cases := []struct {
		start string
		n     int
		want  string
	}{
		{"https://cr.indeed.com/jobs?q=&l=Costa+Rica", 0, "https://cr.indeed.com/jobs?q=&l=Costa+Rica"},
		{"https://cr.indeed.com/jobs?q=&l=Costa+Rica", 1, "https://cr.indeed.com/jobs?q=&l=Costa+Rica&start=10"},
		{"https://cr.indeed.com/jobs?q=&l=Costa+Rica", 3, "https://cr.indeed.com/jobs?q=&l=Costa+Rica&start=30"},
		{"https://cr.indeed.com/empleos", 2, "https://cr.indeed.com/empleos?start=20"},
	}
	for _, c := range cases {
		if got := PageURL(c.start, c.n, 10); got != c.want {
			t.Errorf("PageURL(%q, %d) = %q, want %q", c.start, c.n, got, c.want)
		}
	}
}

func TestViewJobURLAndOrigin(t *testing.T) {
	if got := ViewJobURL("https://cr.indeed.com/", "a1b2"); got != "https://cr.indeed.com/viewjob?jk=a1b2" {
		t.Errorf("ViewJobURL = %q", got)
	}
	if got := Origin("https://cr.indeed.com/jobs?q=x"); got != "https://cr.indeed.com" {
		t.Errorf("Origin = %q", got)
	}
	if got := Origin("not a url"); got != "" {
		t.Errorf("Origin of garbage = %q", got)
	}
}
