// The main package for the jobscout executable.
package main

import "github.com/seekwell/jobscout/cmd"

func main() {
	cmd.Execute()
}
