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

package runner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"android.googlesource.com/platform/test/vts/errors"
	"android.googlesource.com/platform/test/vts/internal/resultparser"
)

const (
	// logPathKey is the descriptor field naming the runner's log directory.
	logPathKey = "log_path"
	// testCasePathKey is the descriptor field holding the test case path.
	testCasePathKey = "test_case_path"

	logDirName = "logs"
)

// Invocation holds the state of one runner invocation. It owns a scratch
// directory containing the descriptor and the runner's log directory.
type Invocation struct {
	// Module is the name the run is reported under.
	Module string
	// ScratchDir is deleted by Finalize.
	ScratchDir string
	// LogDir is the log directory passed to the runner.
	LogDir string
	// DescriptorPath is the JSON descriptor passed to the runner.
	DescriptorPath string
	// Command is the full runner command line.
	Command []string
	// ExpectedTests are reported in line mode even if the log lacks them.
	ExpectedTests []string

	once        sync.Once
	finalizeErr error
}

// SummaryPath returns where the runner writes its summary document.
func (inv *Invocation) SummaryPath() string {
	return filepath.Join(inv.LogDir, resultparser.SummaryFilename)
}

// Finalize deletes the scratch directory. Only the first call has any
// effect; later calls return the first result.
func (inv *Invocation) Finalize() error {
	inv.once.Do(func() {
		if inv.ScratchDir != "" {
			inv.finalizeErr = os.RemoveAll(inv.ScratchDir)
		}
	})
	return inv.finalizeErr
}

// moduleName derives the reported module name from a test case path such
// as "vts/testcases/host/sample/SampleLightTest".
func moduleName(testCasePath string) string {
	return strings.TrimSuffix(filepath.Base(testCasePath), ".py")
}

// dottedPath converts a test case path to the module path given to the
// interpreter's module flag.
func dottedPath(testCasePath string) string {
	p := strings.TrimSuffix(filepath.ToSlash(filepath.Clean(testCasePath)), ".py")
	return strings.ReplaceAll(strings.Trim(p, "/"), "/", ".")
}

// buildDescriptor returns the descriptor for an invocation: the test config
// at testConfigPath if it exists, overlaid with extra, then the fields the
// harness controls.
func buildDescriptor(testConfigPath string, extra map[string]interface{}, logDir, testCasePath string) (map[string]interface{}, error) {
	desc := make(map[string]interface{})
	if testConfigPath != "" {
		b, err := os.ReadFile(testConfigPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, err
		default:
			if err := json.Unmarshal(b, &desc); err != nil {
				return nil, errors.Wrapf(err, "bad test config %s", testConfigPath)
			}
			if desc == nil {
				desc = make(map[string]interface{})
			}
		}
	}
	for k, v := range extra {
		desc[k] = v
	}
	desc[logPathKey] = logDir
	desc[testCasePathKey] = testCasePath
	return desc, nil
}
