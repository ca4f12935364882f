// Command pdpd runs the XACML 3.0 Policy Decision Point server.
package main

import "github.com/xacmlgo/pdp/cmd/pdpd/cmd"

func main() {
	cmd.Execute()
}
