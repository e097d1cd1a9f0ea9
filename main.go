// Public domain.

package main

import "github.com/soniakeys/diffcor/internal/dcprog"

func main() {
	dcprog.Main()
}
