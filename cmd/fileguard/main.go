// Command fileguard runs commands with files and directories guarded.
package main

import "github.com/fileguard-project/fileguard/internal/cli"

func main() {
	cli.Execute()
}
