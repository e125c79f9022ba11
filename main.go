// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/modbridge/modbridge/cmd/modbridge"

func main() {
	cmd.Execute()
}
