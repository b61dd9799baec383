package configtree

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleConfig = `interfaces {
    ethernet eth0 {
        address 192.0.2.1/24
        address 2001:db8::1/64
        description "uplink port"
    }
    loopback lo {
    }
}
system {
    host-name vyos
    ipv6 {
        disable-forwarding
    }
}
// Warning: Do not remove the following line.
// vyos-config-version: "system@27"
`

func TestParse_RoundTrip(t *testing.T) {
	tree, err := Parse(sampleConfig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(sampleConfig, tree.String()); diff != "" {
		t.Errorf("String() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Structure(t *testing.T) {
	tree, err := Parse(sampleConfig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !tree.IsTag([]string{"interfaces", "ethernet"}) {
		t.Error("expected interfaces ethernet to be a tag node")
	}
	if diff := cmp.Diff([]string{"eth0"}, tree.Children([]string{"interfaces", "ethernet"})); diff != "" {
		t.Errorf("Children() mismatch (-want +got):\n%s", diff)
	}

	got, err := tree.Values([]string{"interfaces", "ethernet", "eth0", "description"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"uplink port"}, got); diff != "" {
		t.Errorf("Values() mismatch (-want +got):\n%s", diff)
	}

	if !tree.Exists([]string{"system", "ipv6", "disable-forwarding"}) {
		t.Error("expected valueless leaf to exist")
	}
}

func TestParse_Comments(t *testing.T) {
	input := `/* managed by cloud-init */
system {
    /* the name */
    host-name vyos
}
`
	tree, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// top-level comments move to the footer, nested ones are dropped
	want := "system {\n    host-name vyos\n}\n/* managed by cloud-init */\n"
	if diff := cmp.Diff(want, tree.String()); diff != "" {
		t.Errorf("String() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_BlockCommentFooter(t *testing.T) {
	input := `system {
    host-name vyos
}
/* Warning: Do not remove the following line. */
/* === vyatta-config-version: "broadcast-relay@1:cluster@1:system@10" === */
/* Release version: 1.2.6 */
`
	tree, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(input, tree.String()); diff != "" {
		t.Errorf("String() mismatch (-want +got):\n%s", diff)
	}

	v := "r1"
	if err := tree.Set([]string{"system", "host-name"}, &v, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := strings.Replace(input, "host-name vyos", "host-name r1", 1)
	if diff := cmp.Diff(want, tree.String()); diff != "" {
		t.Errorf("String() after Set mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Backslashes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		value string
		// output is the rendered value when it differs from input
		output string
	}{
		{name: "unknown escape kept", input: `"Welcome\nto VyOS"`, value: `Welcome\nto VyOS`},
		{name: "escaped quote", input: `"say \"hi\""`, value: `say "hi"`},
		{name: "escaped backslash", input: `"C:\\vyos"`, value: `C:\vyos`, output: `"C:\vyos"`},
		{name: "trailing backslash", input: `"end\\"`, value: `end\`},
	}

	doc := func(v string) string {
		return "system {\n    login {\n        banner {\n            pre-login " + v + "\n        }\n    }\n}\n"
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := doc(tt.input)
			tree, err := Parse(input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			path := []string{"system", "login", "banner", "pre-login"}
			got, err := tree.Values(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff([]string{tt.value}, got); diff != "" {
				t.Errorf("Values() mismatch (-want +got):\n%s", diff)
			}
			want := input
			if tt.output != "" {
				want = doc(tt.output)
			}
			if diff := cmp.Diff(want, tree.String()); diff != "" {
				t.Errorf("String() mismatch (-want +got):\n%s", diff)
			}

			reparsed, err := Parse(tree.String())
			if err != nil {
				t.Fatalf("rendered tree does not parse: %v", err)
			}
			got, err = reparsed.Values(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff([]string{tt.value}, got); diff != "" {
				t.Errorf("value changed after re-parse (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "missing close", input: "system {\n    host-name vyos\n"},
		{name: "stray close", input: "}\n"},
		{name: "too many words", input: "system {\n    host-name vyos extra\n}\n"},
		{name: "unterminated quote", input: "system {\n    host-name \"vyos\n}\n"},
		{name: "unterminated comment", input: "/* system {\n"},
		{name: "brace without name", input: "{\n}\n"},
		{name: "command line", input: "set system host-name 'vyos'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("expected *SyntaxError, got %v", err)
			}
		})
	}
}

func TestTree_StringAfterSet(t *testing.T) {
	tree := New()
	for _, cmd := range []struct {
		path  []string
		value string
	}{
		{[]string{"interfaces", "ethernet", "eth0", "address"}, "192.0.2.1/24"},
		{[]string{"interfaces", "ethernet", "eth0", "vif", "10", "description"}, "guest lan"},
		{[]string{"service", "ssh", "port"}, "22"},
	} {
		v := cmd.value
		if err := tree.Set(cmd.path, &v, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for _, p := range [][]string{
		{"interfaces", "ethernet"},
		{"interfaces", "ethernet", "eth0", "vif"},
	} {
		if err := tree.SetTag(p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	want := `interfaces {
    ethernet eth0 {
        address 192.0.2.1/24
        vif 10 {
            description "guest lan"
        }
    }
}
service {
    ssh {
        port 22
    }
}
`
	if diff := cmp.Diff(want, tree.String()); diff != "" {
		t.Errorf("String() mismatch (-want +got):\n%s", diff)
	}

	reparsed, err := Parse(tree.String())
	if err != nil {
		t.Fatalf("rendered tree does not parse: %v", err)
	}
	if diff := cmp.Diff(tree.String(), reparsed.String()); diff != "" {
		t.Errorf("re-rendered mismatch (-want +got):\n%s", diff)
	}
}

func TestQuote(t *testing.T) {
	tests := map[string]string{
		"eth0":          "eth0",
		"192.0.2.1/24":  "192.0.2.1/24",
		"":              `""`,
		"two words":     `"two words"`,
		`say "hi"`:      `"say \"hi\""`,
		"//not-comment": `"//not-comment"`,
		"a{b":           `"a{b"`,
		`Welcome\nto`:   `"Welcome\nto"`,
		`a\`:            `"a\\"`,
		`a\"b`:          `"a\\\"b"`,
	}
	for in, want := range tests {
		if got := quote(in); got != want {
			t.Errorf("quote(%q) = %s, want %s", in, got, want)
		}
	}
}
