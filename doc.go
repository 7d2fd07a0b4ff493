// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mdat holds code to decode and convert MCPD list-mode data.
//
// The mcpd package decodes and encodes mdat streams.
// Commands under cmd/ convert mdat files to ROOT and LCIO, display them
// and publish their records over TDAQ.
package mdat // import "github.com/go-lpc/mdat"

import (
	"fmt"
	"runtime/debug"
)

const root = "github.com/go-lpc/mdat"

// Version returns the version of mdat and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	if b.Main.Path == root {
		return moduleVersion(b.Main)
	}

	for _, m := range b.Deps {
		if m.Path != root {
			continue
		}
		return moduleVersion(*m)
	}
	return "", ""
}

func moduleVersion(m debug.Module) (version, sum string) {
	if m.Replace == nil {
		return m.Version, m.Sum
	}
	switch {
	case m.Replace.Version != "" && m.Replace.Path != "":
		return fmt.Sprintf("%s %s", m.Replace.Path, m.Replace.Version), m.Replace.Sum
	case m.Replace.Version != "":
		return m.Replace.Version, m.Replace.Sum
	case m.Replace.Path != "":
		return m.Replace.Path, m.Replace.Sum
	default:
		return m.Version + "*", ""
	}
}
