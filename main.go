package main

import "github.com/kamusis/imgsearch/cmd"

func main() {
	cmd.Execute()
}
