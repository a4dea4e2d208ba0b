// Command cursorbox manages a library of Windows cursors.
package main

import "github.com/mesh-intelligence/cursorbox/internal/cli"

func main() {
	cli.Execute()
}
