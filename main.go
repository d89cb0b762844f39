package main

import "github.com/kamilpajak/flakewatch/cmd/flakewatch"

func main() {
	flakewatch.Execute()
}
