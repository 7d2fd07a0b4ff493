// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdat

import (
	"runtime/debug"
	"testing"
)

func TestVersionOf(t *testing.T) {
	for _, tc := range []struct {
		name    string
		info    *debug.BuildInfo
		version string
		sum     string
	}{
		{
			name: "nil",
		},
		{
			name: "main",
			info: &debug.BuildInfo{
				Main: debug.Module{Path: root, Version: "(devel)"},
			},
			version: "(devel)",
		},
		{
			name: "dep",
			info: &debug.BuildInfo{
				Main: debug.Module{Path: "example.org/daq"},
				Deps: []*debug.Module{
					{Path: "go-hep.org/x/hep", Version: "v0.32.1", Sum: "h1:hep"},
					{Path: root, Version: "v0.1.0", Sum: "h1:mdat"},
				},
			},
			version: "v0.1.0",
			sum:     "h1:mdat",
		},
		{
			name: "replace-path-version",
			info: &debug.BuildInfo{
				Deps: []*debug.Module{
					{
						Path: root, Version: "v0.1.0",
						Replace: &debug.Module{Path: "example.org/mdat", Version: "v0.2.0", Sum: "h1:fork"},
					},
				},
			},
			version: "example.org/mdat v0.2.0",
			sum:     "h1:fork",
		},
		{
			name: "replace-version",
			info: &debug.BuildInfo{
				Deps: []*debug.Module{
					{
						Path: root, Version: "v0.1.0",
						Replace: &debug.Module{Version: "v0.2.0", Sum: "h1:v2"},
					},
				},
			},
			version: "v0.2.0",
			sum:     "h1:v2",
		},
		{
			name: "replace-local",
			info: &debug.BuildInfo{
				Deps: []*debug.Module{
					{
						Path: root, Version: "v0.1.0",
						Replace: &debug.Module{},
					},
				},
			},
			version: "v0.1.0*",
		},
		{
			name: "missing",
			info: &debug.BuildInfo{
				Main: debug.Module{Path: "example.org/daq"},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			version, sum := versionOf(tc.info)
			if version != tc.version {
				t.Fatalf("invalid version: got=%q, want=%q", version, tc.version)
			}
			if sum != tc.sum {
				t.Fatalf("invalid sum: got=%q, want=%q", sum, tc.sum)
			}
		})
	}
}
