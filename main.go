// Command adfilter is a filtering DNS server that blocks and rewrites the
// requests with adblock-style rules.
package main

import "github.com/fcchbjm/adfilter/internal/cmd"

func main() {
	cmd.Main()
}
