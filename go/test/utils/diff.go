/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package utils

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
)

// MustMatchFn returns a diff function for a test file. Unexported fields
// are compared, protobuf messages are compared with proto.Equal, and the
// fields named by ignoredFields (as ".name" path steps) are skipped:
//
//	var mustMatch = utils.MustMatchFn(".ExecTime")
//	mustMatch(t, want, got, "planned statement")
func MustMatchFn(ignoredFields ...string) func(t *testing.T, want, got any, errMsg ...string) {
	diffOpts := []cmp.Option{
		cmp.Comparer(func(a, b proto.Message) bool {
			return proto.Equal(a, b)
		}),
		cmp.Exporter(func(reflect.Type) bool {
			return true
		}),
		cmpIgnoreFields(ignoredFields...),
	}
	return func(t *testing.T, want, got any, errMsg ...string) {
		t.Helper()
		diff := cmp.Diff(want, got, diffOpts...)
		if diff != "" {
			t.Fatalf("%v: (-want +got)\n%v", errMsg, diff)
		}
	}
}

// MustMatch is MustMatchFn with no ignored fields.
var MustMatch = MustMatchFn()

// Skips fields of pathNames for cmp.Diff.
// Similar to cmpopts.IgnoreFields, but allows unexported fields.
func cmpIgnoreFields(pathNames ...string) cmp.Option {
	skipFields := make(map[string]bool, len(pathNames))
	for _, name := range pathNames {
		skipFields[name] = true
	}

	return cmp.FilterPath(func(path cmp.Path) bool {
		for _, ps := range path {
			if skipFields[ps.String()] {
				return true
			}
		}
		return false
	}, cmp.Ignore())
}

// MustMatchPB unmarshals expected as text format into a message of the same
// type as pb and compares the two.
func MustMatchPB(t *testing.T, expected string, pb proto.Message) {
	t.Helper()

	expectedPb := pb.ProtoReflect().New().Interface()
	if err := prototext.Unmarshal([]byte(expected), expectedPb); err != nil {
		t.Fatal(err)
	}

	MustMatch(t, expectedPb, pb)
}
