// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stream

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultVersion is the XMPP version sent in stream headers.
var DefaultVersion = Version{Major: 1, Minor: 0}

// ErrBadVersion is returned when a version string cannot be parsed.
var ErrBadVersion = errors.New("stream: XMPP version must be of the form major.minor")

// Version is a version of XMPP.
// The zero value means that no version attribute was present.
type Version struct {
	Major uint8
	Minor uint8
}

// ParseVersion parses a string of the form "Major.Minor" into a Version struct
// or returns an error.
func ParseVersion(s string) (Version, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, ErrBadVersion
	}
	maj, err := strconv.ParseUint(major, 10, 8)
	if err != nil {
		return Version{}, ErrBadVersion
	}
	min, err := strconv.ParseUint(minor, 10, 8)
	if err != nil {
		return Version{}, ErrBadVersion
	}
	return Version{Major: uint8(maj), Minor: uint8(min)}, nil
}

// Less reports whether v is a lower version than other.
func (v Version) Less(other Version) bool {
	return v.Major < other.Major || (v.Major == other.Major && v.Minor < other.Minor)
}

// String prints the version in the form "Major.Minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// MarshalXMLAttr satisfies the MarshalerAttr interface and marshals the version
// as an XML attribute using its string representation.
func (v Version) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return xml.Attr{Name: name, Value: v.String()}, nil
}

// UnmarshalXMLAttr satisfies the UnmarshalerAttr interface and unmarshals an
// XML attribute into a valid XMPP version (or returns an error).
func (v *Version) UnmarshalXMLAttr(attr xml.Attr) error {
	newVersion, err := ParseVersion(attr.Value)
	if err != nil {
		return err
	}
	*v = newVersion
	return nil
}
