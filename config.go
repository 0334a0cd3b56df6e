// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"crypto/tls"

	"github.com/adhearsion/blather-sub001/jid"
	"golang.org/x/text/language"
	"mellium.im/sasl"
)

// TLSPolicy controls whether STARTTLS is negotiated.
type TLSPolicy uint8

const (
	// TLSRequired negotiates STARTTLS and fails the session if the server does
	// not offer it.
	TLSRequired TLSPolicy = iota

	// TLSOptional negotiates STARTTLS if the server offers it.
	TLSOptional

	// TLSDisabled never negotiates STARTTLS.
	TLSDisabled
)

// Config represents the configuration of an XMPP session.
type Config struct {
	// JID is the address to authenticate as.
	// For components it is the component's domain.
	JID jid.JID

	// The authorization identity, and password to authenticate with.
	// Identity is used when a user wants to act on behalf of another user. For
	// instance, an admin might want to log in as another user to help them
	// troubleshoot an issue. Normally it is left blank and the localpart of the
	// JID is used.
	Identity, Password string

	// Host and Port override the address that is dialed.
	// If Host is empty the address is looked up using the domainpart of JID.
	Host string
	Port uint16

	TLS       TLSPolicy
	TLSConfig *tls.Config

	// The default language for any streams constructed using this config.
	Lang language.Tag

	// Mechanisms is the list of SASL mechanisms in order of preference.
	// If it is empty DefaultMechanisms is used.
	Mechanisms []sasl.Mechanism

	// Component selects the XEP-0114 component protocol, authenticating with
	// Secret instead of SASL.
	Component bool
	Secret    string
}

// DefaultMechanisms returns the mechanisms used when none are configured.
// JIDs without a localpart authenticate anonymously.
func DefaultMechanisms(j jid.JID) []sasl.Mechanism {
	if j.Localpart() == "" {
		return []sasl.Mechanism{Anonymous}
	}
	return []sasl.Mechanism{
		sasl.ScramSha256Plus,
		sasl.ScramSha1Plus,
		sasl.ScramSha256,
		sasl.ScramSha1,
		sasl.Plain,
	}
}

func (c Config) mechanisms() []sasl.Mechanism {
	if len(c.Mechanisms) > 0 {
		return c.Mechanisms
	}
	return DefaultMechanisms(c.JID)
}

func (c Config) tlsConfig() *tls.Config {
	var cfg *tls.Config
	if c.TLSConfig != nil {
		cfg = c.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = c.JID.Domainpart()
	}
	return cfg
}
