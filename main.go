package main

import "github.com/fancyplanties/planty/cmd/planty"

func main() {
	planty.Execute()
}
