// Command auditquery reads the audit history kept by a PostgreSQL backed auditstore.
//
//	auditquery migrate
//	auditquery snapshots Person/frodo --limit 10
//	auditquery changes --author gandalf --from 2025-01-01T00:00:00Z
//	auditquery latest Person/frodo --eventual
//	auditquery history Person/frodo#address
//
// Settings are read from --config (YAML), AUDITSTORE_* environment variables and flags.
package main

import (
	"fmt"
	"os"
)

func main() {
	a := newApp()
	err := newRootCmd(a).Execute()
	a.close()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
