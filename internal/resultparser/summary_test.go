// Copyright (C) 2024 The Android Open Source Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resultparser_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"android.googlesource.com/platform/test/vts/errors"
	"android.googlesource.com/platform/test/vts/internal/reporting"
	"android.googlesource.com/platform/test/vts/internal/resultparser"
	"android.googlesource.com/platform/test/vts/testutil"
)

// parseSummary decodes text and reports it with a fixed elapsed time.
func parseSummary(t *testing.T, text string) []reporting.Event {
	t.Helper()
	doc, err := resultparser.DecodeSummary(strings.NewReader(text))
	if err != nil {
		t.Fatal("DecodeSummary failed: ", err)
	}
	var rec reporting.Recorder
	chk := reporting.NewChecker(&rec)
	resultparser.ParseSummary(doc, chk, module, time.Second)
	if err := chk.Err(); err != nil {
		t.Error("Bad event order: ", err)
	}
	return rec.Events()
}

func TestParseSummaryNormal(t *testing.T) {
	got := parseSummary(t, `{
  "SampleLightFuzzTest": [
    {"name": "t1", "passed": true},
    {"name": "t2", "passed": false, "failureMessage": "unit test"}
  ]
}`)
	want := []reporting.Event{
		runStarted(module, 2),
		started("t1"),
		ended("t1"),
		started("t2"),
		failed("t2", "unit test"),
		ended("t2"),
		runEnded(time.Second),
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Events mismatch (-got +want):\n%s", diff)
	}
}

func TestParseSummaryClassError(t *testing.T) {
	got := parseSummary(t, `{
  "SampleLightFuzzTest": [
    {"name": "t1", "passed": false, "failureMessage": "unit test"}
  ],
  "moduleError": "class error"
}`)
	want := []reporting.Event{
		runStarted(module, 1),
		started("t1"),
		failed("t1", "unit test"),
		ended("t1"),
		{Type: reporting.EventRunFailed, Message: "class error"},
		runEnded(time.Second),
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Events mismatch (-got +want):\n%s", diff)
	}
}

func TestParseSummaryFailedWithoutMessage(t *testing.T) {
	got := parseSummary(t, `{"SampleLightFuzzTest": [{"name": "t1", "passed": false}]}`)
	want := []reporting.Event{
		runStarted(module, 1),
		started("t1"),
		failed("t1", resultparser.FailedMessage),
		ended("t1"),
		runEnded(time.Second),
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Events mismatch (-got +want):\n%s", diff)
	}
}

func TestParseSummaryEmpty(t *testing.T) {
	got := parseSummary(t, `{}`)
	want := []reporting.Event{runStarted(module, 0), runEnded(time.Second)}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Events mismatch (-got +want):\n%s", diff)
	}
}

func TestParseSummaryModuleOrder(t *testing.T) {
	// Keys are deliberately out of alphabetical order.
	doc, err := resultparser.DecodeSummary(strings.NewReader(`{
  "Zeta": [{"name": "z2", "passed": true}, {"name": "z1", "passed": true}],
  "moduleError": "broken",
  "Alpha": [{"name": "a", "passed": true}]
}`))
	if err != nil {
		t.Fatal("DecodeSummary failed: ", err)
	}
	var rec reporting.Recorder
	resultparser.ParseSummary(doc, &rec, "run", 0)

	var got []string
	for _, e := range rec.Events() {
		got = append(got, e.String())
	}
	want := []string{
		"RunStarted(Zeta, 2)",
		"TestStarted(Zeta#z2)",
		"TestEnded(Zeta#z2)",
		"TestStarted(Zeta#z1)",
		"TestEnded(Zeta#z1)",
		`RunFailed("broken")`,
		"RunEnded(0s)",
		"RunStarted(Alpha, 1)",
		"TestStarted(Alpha#a)",
		"TestEnded(Alpha#a)",
		`RunFailed("broken")`,
		"RunEnded(0s)",
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Events mismatch (-got +want):\n%s", diff)
	}
}

func TestDecodeSummaryErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
	}{
		{"Empty", ``},
		{"NotObject", `[]`},
		{"Truncated", `{"Mod": [`},
		{"ModuleErrorNotString", `{"moduleError": 3}`},
		{"ModuleNotList", `{"Mod": "x"}`},
		{"CaseWithoutName", `{"Mod": [{"passed": true}]}`},
		{"CaseWithoutPassed", `{"Mod": [{"name": "a"}]}`},
		{"NullCase", `{"Mod": [null]}`},
		{"DuplicateModule", `{"Mod": [], "Mod": []}`},
		{"TrailingData", `{} {}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resultparser.DecodeSummary(strings.NewReader(tc.text))
			var derr *resultparser.DocumentError
			if !errors.As(err, &derr) {
				t.Errorf("DecodeSummary returned %v; want *DocumentError", err)
			}
		})
	}
}

func TestReadSummary(t *testing.T) {
	dir := testutil.TempDir(t)
	if err := testutil.WriteFiles(dir, map[string]string{
		resultparser.SummaryFilename: `{"Mod": [{"name": "a", "passed": true}]}`,
		"bad.json":                   `{"Mod": 1}`,
	}); err != nil {
		t.Fatal(err)
	}

	doc, err := resultparser.ReadSummary(filepath.Join(dir, resultparser.SummaryFilename))
	if err != nil {
		t.Fatal("ReadSummary failed: ", err)
	}
	if len(doc.Modules) != 1 || doc.Modules[0].Name != "Mod" || len(doc.Modules[0].Cases) != 1 {
		t.Errorf("ReadSummary returned unexpected document: %+v", doc)
	}

	_, err = resultparser.ReadSummary(filepath.Join(dir, "bad.json"))
	var derr *resultparser.DocumentError
	if !errors.As(err, &derr) {
		t.Errorf("ReadSummary returned %v; want *DocumentError", err)
	}
}
