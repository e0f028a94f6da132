package main

import (
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/tdewolff/test"
	"github.com/xmlmin/xmlmin"
)

func TestCreateTasks(t *testing.T) {
	fsys := fstest.MapFS{
		"a.xml":     {},
		"dir/b.xml": {},
		"dir/c.txt": {},
	}

	tests := []struct {
		input, output string
		tasks         map[string]string
	}{
		// root file
		{"a.xml", "", map[string]string{"a.xml": ""}},
		{"a.xml", ".", map[string]string{"a.xml": "a.xml"}},
		{"a.xml", "out", map[string]string{"a.xml": "out"}},
		{"a.xml", "out/", map[string]string{"a.xml": "out/a.xml"}},

		// nested file
		{"dir/b.xml", "", map[string]string{"dir/b.xml": ""}},
		{"dir/b.xml", "out/", map[string]string{"dir/b.xml": "out/b.xml"}},

		// directory, skips files with other extensions
		{"dir", "out/", map[string]string{"dir/b.xml": "out/dir/b.xml"}},
		{"dir/", "out/", map[string]string{"dir/b.xml": "out/b.xml"}},
	}

	recursive = true
	for _, tt := range tests {
		t.Run(tt.input+" => "+tt.output, func(t *testing.T) {
			tasks, _, err := createTasks(fsys, []string{tt.input}, tt.output)
			test.Error(t, err)
			if len(tasks) != len(tt.tasks) {
				test.Fail(t, fmt.Sprintf("missing %v", tt.tasks))
			}
			for _, task := range tasks {
				if dst, ok := tt.tasks[task.src]; !ok || dst != task.dst {
					test.Fail(t, fmt.Sprintf("unexpected %s => %s", task.src, task.dst))
				}
			}
		})
	}
}

func TestFileMatches(t *testing.T) {
	test.That(t, fileMatches("doc.xml"), "xml must match")
	test.That(t, fileMatches("feed.rss"), "rss must match")
	test.That(t, fileMatches("a/b/schema.xsd"), "xsd must match")
	test.That(t, !fileMatches("notes.txt"), "txt must not match")
	test.That(t, !fileMatches("xml"), "missing extension must not match")
}

func TestTristateScan(t *testing.T) {
	var v xmlmin.Tristate

	n, err := Tristate{&v}.Scan([]string{"strict"})
	test.Error(t, err)
	test.T(t, n, 1)
	test.T(t, v, xmlmin.Strict)

	n, err = Tristate{&v}.Scan([]string{"-o"})
	test.Error(t, err)
	test.T(t, n, 0)
	test.T(t, v, xmlmin.True)

	_, err = Tristate{&v}.Scan([]string{"bogus"})
	test.That(t, err != nil, "must reject unknown value")
}
