// # internal/pattern/pattern_test.go
package pattern

import "testing"

func TestSubstitute(t *testing.T) {
	attrs := map[string]string{
		"project":  "billing",
		"revision": "a1b2c3d",
		"pass":     "42",
		"ext":      "dot",
	}

	cases := []struct {
		name    string
		pattern string
		want    string
		wantErr bool
	}{
		{
			"plain tokens",
			"reports/[project]-[pass].[ext]",
			"reports/billing-42.dot",
			false,
		},
		{
			"no tokens",
			"reports/graph.dot",
			"reports/graph.dot",
			false,
		},
		{
			"optional segment present",
			"reports/[project](-[revision]).[ext]",
			"reports/billing-a1b2c3d.dot",
			false,
		},
		{
			"missing required token",
			"reports/[unknown].dot",
			"",
			true,
		},
		{
			"unclosed token",
			"reports/[project",
			"",
			true,
		},
		{
			"unclosed optional segment",
			"reports/[project](-[revision]",
			"",
			true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := New(tc.pattern).Substitute(attrs)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Substitute: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSubstitute_OptionalSegmentDropped(t *testing.T) {
	attrs := map[string]string{
		"project": "billing",
		"ext":     "tsv",
	}

	got, err := New("reports/[project](-[revision]).[ext]").Substitute(attrs)
	if err != nil {
		t.Fatalf("Substitute: %v", err)
	}
	if got != "reports/billing.tsv" {
		t.Errorf("got %q, want reports/billing.tsv", got)
	}

	// Empty values behave like missing values.
	attrs["revision"] = ""
	got, err = New("([revision]/)[project].[ext]").Substitute(attrs)
	if err != nil {
		t.Fatalf("Substitute: %v", err)
	}
	if got != "billing.tsv" {
		t.Errorf("got %q, want billing.tsv", got)
	}
}
