package main

import (
	"os"

	revchatcmder "github.com/reviewagent/revchat/cmd/revchat"
)

func main() {
	cmd := revchatcmder.NewRevchatCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
