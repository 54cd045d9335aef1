// ./main.go
package main

import (
	"github.com/hexblade/pagepilot/cmd"
)

func main() {
	cmd.Execute()
}
