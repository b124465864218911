package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/AmanKumar-0/linkedin-application-bot/cmd"
)

func main() {
	err := cmd.Execute()
	if err != nil && !errors.Is(err, cmd.ErrRateCap) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cmd.ExitCode(err))
}
