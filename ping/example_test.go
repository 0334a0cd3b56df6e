// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ping_test

import (
	"fmt"
	"log"

	"github.com/adhearsion/blather-sub001/jid"
	"github.com/adhearsion/blather-sub001/ping"
)

func Example() {
	j := jid.MustParse("feste@example.net/siJo4eeT")
	iq, err := ping.IQ(j)
	if err != nil {
		log.Fatal(err)
	}
	iq.SetID("123")
	fmt.Println(iq)
	// Output:
	// <iq xmlns="jabber:client" type="get" to="feste@example.net/siJo4eeT" id="123"><ping xmlns="urn:xmpp:ping"></ping></iq>
}
