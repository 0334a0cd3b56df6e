// Copyright 2014 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jid

import (
	"encoding/xml"
	"errors"
	"net"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/text/secure/precis"
)

// Errors returned while parsing or constructing a JID.
var (
	ErrInvalidUTF8      = errors.New("jid: contains invalid UTF-8")
	ErrEmptyLocalpart   = errors.New("jid: the localpart must be larger than 0 bytes")
	ErrEmptyResource    = errors.New("jid: the resourcepart must be larger than 0 bytes")
	ErrForbiddenLocal   = errors.New("jid: localpart contains forbidden characters")
	ErrLongLocalpart    = errors.New("jid: the localpart must be smaller than 1024 bytes")
	ErrLongResourcepart = errors.New("jid: the resourcepart must be smaller than 1024 bytes")
	ErrDomainLength     = errors.New("jid: the domainpart must be between 1 and 1023 bytes")
	ErrInvalidIP6       = errors.New("jid: domainpart is not a valid IPv6 address")
)

// JID represents an XMPP address (Jabber ID) comprising a localpart,
// domainpart, and resourcepart. All parts of a JID are guaranteed to be valid
// UTF-8 and will be represented in their canonical form which gives comparison
// the greatest chance of succeeding.
//
// The zero value is the empty address and is only useful to signal the absence
// of an address (for instance a stanza without a "to" attribute).
type JID struct {
	local    string
	domain   string
	resource string
}

// Parse constructs a new JID from the given string representation.
func Parse(s string) (JID, error) {
	localpart, domainpart, resourcepart, err := SplitString(s)
	if err != nil {
		return JID{}, err
	}
	return New(localpart, domainpart, resourcepart)
}

// MustParse is like Parse but panics if the JID cannot be parsed.
// It simplifies safe initialization of JIDs from known-good constant strings.
func MustParse(s string) JID {
	j, err := Parse(s)
	if err != nil {
		if strconv.CanBackquote(s) {
			s = "`" + s + "`"
		} else {
			s = strconv.Quote(s)
		}
		panic(`jid: Parse(` + s + `): ` + err.Error())
	}
	return j
}

// New constructs a new JID from the given localpart, domainpart, and
// resourcepart.
func New(localpart, domainpart, resourcepart string) (JID, error) {
	if !utf8.ValidString(localpart) || !utf8.ValidString(resourcepart) {
		return JID{}, ErrInvalidUTF8
	}

	// RFC 7622 §3.2.1: each A-label MUST be converted to a U-label during
	// preparation of a string for inclusion in a domainpart slot.
	domainpart, err := idna.ToUnicode(domainpart)
	if err != nil {
		return JID{}, err
	}
	if !utf8.ValidString(domainpart) {
		return JID{}, ErrInvalidUTF8
	}
	domainpart = strings.ToLower(domainpart)

	if localpart != "" {
		localpart, err = precis.UsernameCasePreserved.String(localpart)
		if err != nil {
			return JID{}, err
		}
	}
	if resourcepart != "" {
		resourcepart, err = resourceProfile(resourcepart)
		if err != nil {
			return JID{}, err
		}
	}

	if err := commonChecks(localpart, domainpart, resourcepart); err != nil {
		return JID{}, err
	}

	return JID{
		local:    localpart,
		domain:   domainpart,
		resource: resourcepart,
	}, nil
}

func resourceProfile(s string) (string, error) {
	return precis.OpaqueString.String(s)
}

// WithResource returns a copy of the JID with a new resourcepart.
// This elides validation of the localpart and domainpart.
func (j JID) WithResource(resourcepart string) (JID, error) {
	j.resource = ""
	if resourcepart == "" {
		return j, nil
	}
	if !utf8.ValidString(resourcepart) {
		return JID{}, ErrInvalidUTF8
	}
	rp, err := resourceProfile(resourcepart)
	if err != nil {
		return JID{}, err
	}
	if len(rp) > 1023 {
		return JID{}, ErrLongResourcepart
	}
	j.resource = rp
	return j, nil
}

// Bare returns a copy of the JID without a resourcepart. This is sometimes
// called a "bare" or "stripped" JID.
func (j JID) Bare() JID {
	j.resource = ""
	return j
}

// Domain returns a copy of the JID without a resourcepart or localpart.
func (j JID) Domain() JID {
	return JID{domain: j.domain}
}

// Localpart gets the localpart of a JID (eg "username").
func (j JID) Localpart() string {
	return j.local
}

// Domainpart gets the domainpart of a JID (eg. "example.net").
func (j JID) Domainpart() string {
	return j.domain
}

// Resourcepart gets the resourcepart of a JID.
func (j JID) Resourcepart() string {
	return j.resource
}

// IsZero reports whether j is the empty address.
func (j JID) IsZero() bool {
	return j == JID{}
}

// IsBare reports whether j has no resourcepart.
func (j JID) IsBare() bool {
	return j.resource == ""
}

// Network satisfies the net.Addr interface by returning the name of the network
// ("xmpp").
func (JID) Network() string {
	return "xmpp"
}

// String converts a JID to its string representation.
func (j JID) String() string {
	var b strings.Builder
	b.Grow(len(j.local) + len(j.domain) + len(j.resource) + 2)
	if j.local != "" {
		b.WriteString(j.local)
		b.WriteByte('@')
	}
	b.WriteString(j.domain)
	if j.resource != "" {
		b.WriteByte('/')
		b.WriteString(j.resource)
	}
	return b.String()
}

// Equal reports whether all parts of the two normalized JIDs are equal.
func (j JID) Equal(j2 JID) bool {
	return j == j2
}

// MarshalXML satisfies the xml.Marshaler interface and marshals the JID as
// XML chardata.
func (j JID) MarshalXML(e *xml.Encoder, start xml.StartElement) (err error) {
	if err = e.EncodeToken(start); err != nil {
		return
	}
	if err = e.EncodeToken(xml.CharData(j.String())); err != nil {
		return
	}
	return e.EncodeToken(start.End())
}

// UnmarshalXML satisfies the xml.Unmarshaler interface and unmarshals the JID
// from the elements chardata.
func (j *JID) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	data := struct {
		CharData string `xml:",chardata"`
	}{}
	if err := d.DecodeElement(&data, &start); err != nil {
		return err
	}
	j2, err := Parse(data.CharData)
	if err != nil {
		return err
	}
	*j = j2
	return nil
}

// MarshalXMLAttr satisfies the xml.MarshalerAttr interface and marshals the JID
// as an XML attribute.
func (j JID) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if j.IsZero() {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: j.String()}, nil
}

// UnmarshalXMLAttr satisfies the xml.UnmarshalerAttr interface and unmarshals
// an XML attribute into a valid JID (or returns an error).
func (j *JID) UnmarshalXMLAttr(attr xml.Attr) error {
	if attr.Value == "" {
		*j = JID{}
		return nil
	}
	j2, err := Parse(attr.Value)
	if err != nil {
		return err
	}
	*j = j2
	return nil
}

// SplitString splits out the localpart, domainpart, and resourcepart from a
// string representation of a JID. The parts are not guaranteed to be valid, and
// each part must be 1023 bytes or less.
func SplitString(s string) (localpart, domainpart, resourcepart string, err error) {
	// RFC 7622 §3.1: the separator characters '@' and '/' are matched before
	// applying any transformation algorithms.
	if sep := strings.Index(s, "/"); sep != -1 {
		if sep == len(s)-1 {
			return "", "", "", ErrEmptyResource
		}
		resourcepart = s[sep+1:]
		s = s[:sep]
	}

	switch sep := strings.Index(s, "@"); sep {
	case -1:
		domainpart = s
	case 0:
		return "", "", "", ErrEmptyLocalpart
	default:
		domainpart = s[sep+1:]
		localpart = s[:sep]
	}

	// A trailing label separator MUST be stripped before any other
	// canonicalization steps are taken.
	domainpart = strings.TrimSuffix(domainpart, ".")
	return localpart, domainpart, resourcepart, nil
}

func checkIP6String(domainpart string) error {
	if l := len(domainpart); l > 2 && strings.HasPrefix(domainpart, "[") &&
		strings.HasSuffix(domainpart, "]") {
		if ip := net.ParseIP(domainpart[1 : l-1]); ip == nil || ip.To4() != nil {
			return ErrInvalidIP6
		}
	}
	return nil
}

func commonChecks(localpart, domainpart, resourcepart string) error {
	if len(localpart) > 1023 {
		return ErrLongLocalpart
	}

	// RFC 7622 §3.3.1 provides a small table of characters which are still not
	// allowed in localparts even though the IdentifierClass base class doesn't
	// forbid them.
	if strings.ContainsAny(localpart, `"&'/:<>@`) {
		return ErrForbiddenLocal
	}

	if len(resourcepart) > 1023 {
		return ErrLongResourcepart
	}

	if l := len(domainpart); l < 1 || l > 1023 {
		return ErrDomainLength
	}

	return checkIP6String(domainpart)
}
