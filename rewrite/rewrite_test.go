// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package rewrite

import (
	"errors"
	"flag"
	"os"
	"strings"
	"testing"

	"go.astrophena.name/srctidy/testutil"
)

var update = flag.Bool("update", false, "update golden files")

func TestIncludesGolden(t *testing.T) {
	testutil.RunGolden(t, "testdata/*.in", func(t *testing.T, match string) []byte {
		src, err := os.ReadFile(match)
		if err != nil {
			t.Fatal(err)
		}
		out, _, err := Includes{}.Rewrite(src)
		if err != nil {
			t.Fatal(err)
		}
		return out
	}, *update)
}

func TestIncludes(t *testing.T) {
	cases := map[string]struct {
		ext         string
		in          string
		want        string
		wantChanged bool
	}{
		"hh to hpp": {
			in:          `#include "util.hh"`,
			want:        `#include "util.hpp"`,
			wantChanged: true,
		},
		"angle bracket untouched": {
			in:   "#include <vector>\n#include <x.y>\n",
			want: "#include <vector>\n#include <x.y>\n",
		},
		"mixed": {
			in:          "#include <vector>\n#include \"helper.h\"\n",
			want:        "#include <vector>\n#include \"helper.hpp\"\n",
			wantChanged: true,
		},
		"already canonical": {
			in:   `#include "a.hpp"`,
			want: `#include "a.hpp"`,
		},
		"no extension": {
			in:   `#include "config"`,
			want: `#include "config"`,
		},
		"custom extension without dot": {
			ext:         "hxx",
			in:          `#include "a.h"`,
			want:        `#include "a.hxx"`,
			wantChanged: true,
		},
		"custom extension with dollar": {
			ext:         ".$1",
			in:          `#include "a.h"`,
			want:        `#include "a.$1"`,
			wantChanged: true,
		},
		"empty": {},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, changed, err := Includes{Ext: tc.ext}.Rewrite([]byte(tc.in))
			testutil.AssertEqual(t, err, nil)
			testutil.AssertEqual(t, string(got), tc.want)
			testutil.AssertEqual(t, changed, tc.wantChanged)
		})
	}
}

func TestIncludesNotText(t *testing.T) {
	_, changed, err := Includes{}.Rewrite([]byte("#include \"a.h\"\n\xff\xfe"))
	if !errors.Is(err, ErrNotText) {
		t.Fatalf("want ErrNotText, got %v", err)
	}
	testutil.AssertEqual(t, changed, false)
}

func TestIncludeExtension(t *testing.T) {
	testutil.AssertEqual(t, IncludeExtension(`#include "a/b.h"`, "hpp"), `#include "a/b.hpp"`)
	testutil.AssertEqual(t, IncludeExtension(`#include <a/b.h>`, "hpp"), `#include <a/b.h>`)
	testutil.AssertEqual(t, IncludeExtension(`#include "a.h"`, ""), `#include "a.hpp"`)
}

func TestParse(t *testing.T) {
	got := Parse([]byte("#include <vector>\n#include  \"io/file.hh\"\n#include \"x.y.h\"\n"))
	want := []Directive{
		{Prefix: `#include  "`, Stem: "io/file", Ext: ".hh", Suffix: `"`},
		{Prefix: `#include "`, Stem: "x.y", Ext: ".h", Suffix: `"`},
	}
	testutil.AssertEqual(t, got, want)
	testutil.AssertEqual(t, got[0].String(), `#include  "io/file.hh"`)
}

func checkIncludeProperties(t *testing.T, src string) {
	t.Helper()
	once, _, err := Includes{}.Rewrite([]byte(src))
	if err != nil {
		return
	}
	twice, changed, err := Includes{}.Rewrite(once)
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if changed || string(twice) != string(once) {
		t.Fatalf("rewrite is not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
	for _, d := range Parse(once) {
		if d.Ext != DefaultExt {
			t.Fatalf("directive %q has extension %q after rewrite", d, d.Ext)
		}
	}
}

func TestIncludesProperties(t *testing.T) {
	inputs := []string{
		"",
		`#include "a.h"`,
		`#include "a.b.c"`,
		`#include "#include "a.b"`,
		"#include \"a\n.b\"",
		`#include "a.h" #include "b.hh" #include <c.h>`,
		`#include ".h"`,
		`#include "..."`,
	}
	for _, in := range inputs {
		checkIncludeProperties(t, in)
	}
}

func FuzzIncludes(f *testing.F) {
	f.Add(`#include "util.hh"`)
	f.Add("#include <vector>\n#include \"helper.h\"\n")
	f.Add(`#include"a.b.c"x"d.e"`)
	f.Fuzz(func(t *testing.T, src string) {
		checkIncludeProperties(t, src)
	})
}

func TestThrows(t *testing.T) {
	cases := map[string]struct {
		in          string
		want        string
		wantChanged bool
	}{
		"simple": {
			in:          `throw error("bad input");`,
			want:        `throw except::exc<error>("bad input");`,
			wantChanged: true,
		},
		"namespaced with spaces": {
			in:          `throw   mc::library_error ( "out of memory" ) ;`,
			want:        `throw except::exc<mc::library_error>("out of memory");`,
			wantChanged: true,
		},
		"escaped quotes": {
			in:          `throw error("say \"hi\"");`,
			want:        `throw except::exc<error>("say \"hi\"");`,
			wantChanged: true,
		},
		"already wrapped": {
			in:   `throw except::exc<error>("bad input");`,
			want: `throw except::exc<error>("bad input");`,
		},
		"rethrow": {
			in:   "throw;",
			want: "throw;",
		},
		"non-literal argument": {
			in:   "throw error(msg);",
			want: "throw error(msg);",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, changed, err := Throws{}.Rewrite([]byte(tc.in))
			testutil.AssertEqual(t, err, nil)
			testutil.AssertEqual(t, string(got), tc.want)
			testutil.AssertEqual(t, changed, tc.wantChanged)

			again, _, _ := Throws{}.Rewrite(got)
			testutil.AssertEqual(t, string(again), string(got))
		})
	}
}

func TestRewriterInterface(t *testing.T) {
	for _, r := range []Rewriter{Includes{}, Throws{}} {
		if _, _, err := r.Rewrite([]byte{0xff}); !errors.Is(err, ErrNotText) {
			t.Errorf("%T: want ErrNotText for binary content, got %v", r, err)
		}
		out, changed, err := r.Rewrite([]byte("plain text\n"))
		testutil.AssertEqual(t, err, nil)
		testutil.AssertEqual(t, changed, false)
		if !strings.HasPrefix(string(out), "plain") {
			t.Errorf("%T changed unrelated content: %q", r, out)
		}
	}
}
