// Package nwota delivers incremental over-the-air updates of an NW.js
// application's asset bundle.
// This file contains the package-descriptor version source.
package nwota

import (
	"encoding/json"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// DescriptorVersionSource reads the application version from the bundle's
// own package descriptor (the NW.js package.json). Fields are tried in
// order, so the conventional precedence is expressed as
//
//	Fields: []string{"appVersion", "version"}
//
// and a missing file, unreadable JSON, or absent fields all read as
// "no version here", deferring to the next source in the chain.
type DescriptorVersionSource struct {
	FS     billy.Filesystem
	Path   string
	Fields []string
}

// Name implements VersionSource.
func (d DescriptorVersionSource) Name() string { return "descriptor:" + d.Path }

// Version implements VersionSource.
func (d DescriptorVersionSource) Version() (string, bool) {
	data, err := util.ReadFile(d.FS, d.Path)
	if err != nil {
		return "", false
	}

	var descriptor map[string]any
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return "", false
	}

	for _, field := range d.Fields {
		if v, ok := descriptor[field].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
